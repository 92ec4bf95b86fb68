package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requiem/domain/report"
	"requiem/internal/errors"
	"requiem/internal/testkit"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
}

func TestRunAnalysis_DecodesReport(t *testing.T) {
	var got report.AnalysisRequest
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathAnalysis, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, testkit.FullResponseJSON)
	})

	req, err := report.NewAnalysisRequest("abc123", 5.0, 0.95)
	require.NoError(t, err)

	resp, err := client.RunAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req, got)
	assert.Equal(t, report.ChapterCount, resp.Len())

	ch, ok := resp.Outcome(report.KeyDescriptive).(*report.ChapterResult)
	require.True(t, ok)
	assert.Equal(t, "Chapter 1", ch.Title)
	assert.Equal(t, "Size_(n)", ch.Results[0].Name)
}

func TestRunAnalysis_FailureModes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"server error with message", http.StatusBadRequest, `{"error": "invalid or expired session"}`, "invalid or expired session"},
		{"server error without body", http.StatusInternalServerError, ``, "service replied 500"},
		{"malformed body", http.StatusOK, `{"capitulo1_descriptiva": `, "not valid JSON"},
		{"no chapter keys", http.StatusOK, `{"status": "ready"}`, "no recognizable chapter"},
		{"array body", http.StatusOK, `[1, 2]`, "no recognizable chapter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.RunAnalysis(context.Background(), report.AnalysisRequest{SessionID: "x", ConfidenceLevel: 0.95})
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeRequestFailed), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestRunAnalysis_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(Config{BaseURL: url}).RunAnalysis(context.Background(), report.AnalysisRequest{SessionID: "x"})
	assert.True(t, errors.HasCode(err, errors.CodeRequestFailed))
}

func TestRunAnalysis_MalformedBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://bad host:99999"}).RunAnalysis(context.Background(), report.AnalysisRequest{SessionID: "x"})
	assert.True(t, errors.HasCode(err, errors.CodeRequestFailed))
}

func TestRunAnalysis_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.RunAnalysis(context.Background(), report.AnalysisRequest{SessionID: "x"})
	assert.True(t, errors.HasCode(err, errors.CodeRequestFailed))
}

func TestUploadDataset_SendsMultipart(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathUpload, r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "hours.csv", header.Filename)
		assert.Equal(t, "horas\n5\n6\n", string(content))
		_, _ = io.WriteString(w, `{"session_id": "s-1", "estadisticas": {"n": 2, "media": 5.5, "std": 0.7071}, "conteo": {"filas_validas": 2}}`)
	})

	res, err := client.UploadDataset(context.Background(), "hours.csv", strings.NewReader("horas\n5\n6\n"))
	require.NoError(t, err)
	assert.Equal(t, "s-1", res.SessionID)
	assert.Equal(t, 2, res.Records())
	assert.InDelta(t, 5.5, res.Summary.Mean, 1e-9)
}

func TestGenerateSample_RejectsUnsuccessfulReply(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success": false}`)
	})
	_, err := client.GenerateSample(context.Background(), report.SampleRequest{N: 10, Mean: 5, StdDev: 1})
	assert.True(t, errors.HasCode(err, errors.CodeRequestFailed))
}

func TestCheckHealth(t *testing.T) {
	var calls int32
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{"status": "ready"}`)
	})
	assert.NoError(t, client.CheckHealth(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
