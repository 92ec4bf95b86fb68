package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"requiem/domain/report"
	"requiem/internal/analysis"
	"requiem/internal/config"
)

func newTestServer() *Server {
	engine := analysis.NewEngine(analysis.NewMemoryStore(), analysis.EngineConfig{MaxConcurrency: 5, CacheSize: 8})
	return NewServer(engine, config.Defaults().Analysis, gin.TestMode)
}

func do(t *testing.T, s *Server, method, path, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	return do(t, s, http.MethodPost, path, "application/json", bytes.NewBufferString(body))
}

func upload(t *testing.T, s *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, form.Close())
	return do(t, s, http.MethodPost, "/api/upload", form.FormDataContentType(), &buf)
}

func TestHealth(t *testing.T) {
	w := postJSON(t, newTestServer(), "/api/analisis_rapido", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ready"}`, w.Body.String())
}

func TestUploadThenAnalyze(t *testing.T) {
	s := newTestServer()

	w := upload(t, s, "usage.csv", "user;horas_uso\na;4,5\nb;6\nc;5.5\nd;30\ne;7\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sessionID := gjson.Get(w.Body.String(), "session_id").String()
	require.NotEmpty(t, sessionID)
	assert.Equal(t, int64(4), gjson.Get(w.Body.String(), "conteo.filas_validas").Int())
	assert.Equal(t, int64(4), gjson.Get(w.Body.String(), "estadisticas.n").Int())

	for _, path := range []string{"/api/analisis_completo", "/analysis/run"} {
		w = postJSON(t, s, path, `{"session_id": "`+sessionID+`", "umbral": 5.0, "nivel_confianza": 0.95}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := report.NewAnalysisResponse()
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), resp))
		assert.Equal(t, report.ChapterCount, resp.Len())
		assert.Equal(t, "hipotesis", gjson.Get(w.Body.String(), "capitulo4_hipotesis.grafico_datos.tipo").String())
		assert.Equal(t, "comparacion", gjson.Get(w.Body.String(), "capitulo5_comparacion.grafico_datos.tipo").String())
	}
}

func TestAnalyze_Errors(t *testing.T) {
	s := newTestServer()

	w := postJSON(t, s, "/api/analisis_completo", `{"session_id": "unknown"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid or expired session", gjson.Get(w.Body.String(), "error").String())

	w = postJSON(t, s, "/api/analisis_completo", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, s, "/api/analisis_completo", `{"session_id": "x", "nivel_confianza": 1.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, gjson.Get(w.Body.String(), "error").String(), "confidence")
}

func TestUpload_Rejections(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no numeric column", "name\nana\nbob\n", "no numeric"},
		{"too few values", "horas\n5\n6\n", "minimum 3"},
		{"zero variance", "horas\n5\n5\n5\n5\n", "Zero variance"},
		{"header only", "horas\n", "header row"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := upload(t, s, "data.csv", tt.content)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, gjson.Get(w.Body.String(), "error").String(), tt.want)
		})
	}

	w := do(t, s, http.MethodPost, "/api/upload", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateSample(t *testing.T) {
	s := newTestServer()

	w := postJSON(t, s, "/api/generar_ejemplo", `{"n": 40, "media": 6, "desviacion": 1.2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, gjson.Get(w.Body.String(), "success").Bool())
	assert.Equal(t, int64(40), gjson.Get(w.Body.String(), "estadisticas.n").Int())
	assert.Len(t, gjson.Get(w.Body.String(), "session_id").String(), 12)

	w = postJSON(t, s, "/api/generar_ejemplo", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(100), gjson.Get(w.Body.String(), "estadisticas.n").Int())

	w = postJSON(t, s, "/api/generar_ejemplo", `{"n": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "success").Bool())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer()
	postJSON(t, s, "/api/generar_ejemplo", `{"n": 10}`)

	w := do(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "requiem_datasets_ingested_total"))
}
