package ui

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requiem/adapters/backend"
	"requiem/adapters/plotly"
	"requiem/internal/analysis"
	"requiem/internal/api"
	"requiem/internal/config"
	"requiem/internal/errors"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	engine := analysis.NewEngine(analysis.NewMemoryStore(), analysis.EngineConfig{MaxConcurrency: 5, CacheSize: 8})
	service := httptest.NewServer(api.NewServer(engine, config.Defaults().Analysis, gin.TestMode).Handler())
	t.Cleanup(service.Close)

	a, err := NewApp(Config{
		Backend:           backend.NewClient(backend.Config{BaseURL: service.URL, Timeout: 5 * time.Second}),
		Translator:        plotly.NewTranslator(),
		RequestTimeout:    5 * time.Second,
		FrameInterval:     time.Millisecond,
		DefaultThreshold:  5,
		DefaultConfidence: 0.95,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url, body string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := c.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestIndex_IssuesClientCookie(t *testing.T) {
	a := newTestApp(t)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="`+reportRegion+`"`)
	assert.Contains(t, w.Header().Get("Set-Cookie"), clientCookie+"=")
	assert.Equal(t, 1, a.ClientCount())
}

func TestStaticAssets(t *testing.T) {
	a := newTestApp(t)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "EventSource")
}

func TestAnalysis_WithoutSession(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	status, body := postJSON(t, newBrowser(t), srv.URL+"/ui/analysis", `{}`)
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Contains(t, body["error"], "load a dataset")
}

func TestAnalysis_InvalidConfidence(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()
	browser := newBrowser(t)

	status, _ := postJSON(t, browser, srv.URL+"/ui/sample", `{"n": 50, "media": 5, "desviacion": 1}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = postJSON(t, browser, srv.URL+"/ui/analysis", `{"umbral": 5, "nivel_confianza": 1.2}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUpload_NoFile(t *testing.T) {
	a := newTestApp(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ui/upload", bytes.NewBufferString("x"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=nothing")
	a.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSampleThenAnalysis_StreamsReport(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()
	browser := newBrowser(t)

	status, body := postJSON(t, browser, srv.URL+"/ui/sample", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 100, body["records"])
	assert.Contains(t, body["preview"], "n=100")

	status, body = postJSON(t, browser, srv.URL+"/ui/analysis", `{"umbral": 5, "nivel_confianza": 0.95}`)
	require.Equal(t, http.StatusAccepted, status)
	assert.EqualValues(t, 1, body["generation"])

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/ui/events", nil)
	require.NoError(t, err)
	resp, err := browser.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	counts := map[string]int{}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "event: ") {
			continue
		}
		ev := strings.TrimPrefix(line, "event: ")
		counts[ev]++
		if ev == string(EventTypeset) {
			break
		}
	}
	require.NoError(t, scanner.Err())

	assert.Equal(t, 1, counts[string(EventReset)])
	assert.Equal(t, 5, counts[string(EventAppend)])
	assert.Equal(t, 5, counts[string(EventPlot)])
	assert.Equal(t, 1, counts[string(EventTypeset)])
}

func TestCleanupIdle(t *testing.T) {
	a := newTestApp(t)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, 1, a.ClientCount())

	assert.Equal(t, 0, a.CleanupIdle(time.Hour))
	assert.Equal(t, 1, a.ClientCount())

	assert.Equal(t, 1, a.CleanupIdle(0))
	assert.Equal(t, 0, a.ClientCount())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.AnalysisInProgress(), http.StatusConflict},
		{errors.NoActiveSession(), http.StatusPreconditionFailed},
		{errors.ValidationError("bad"), http.StatusBadRequest},
		{errors.InvalidInput("bad"), http.StatusBadRequest},
		{errors.RequestFailed("down", nil), http.StatusBadGateway},
		{errors.RequestFailed("analysis request failed", errors.ValidationError("invalid or expired session")), http.StatusBadGateway},
		{errors.InternalError("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), errors.GetCode(tt.err))
	}
}
