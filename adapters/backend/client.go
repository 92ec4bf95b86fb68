// Package backend is the HTTP client for the analysis service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"requiem/domain/report"
	"requiem/internal/errors"
	"requiem/ports"
)

const (
	PathAnalysis = "/analysis/run"
	PathUpload   = "/api/upload"
	PathSample   = "/api/generar_ejemplo"
	PathHealth   = "/api/analisis_rapido"

	// maxBodyBytes bounds a reply; a full report with raw samples stays far
	// below it
	maxBodyBytes = 32 << 20
)

// Config holds the client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the analysis service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ ports.AnalysisBackend = (*Client)(nil)

// NewClient creates a client for the service at cfg.BaseURL
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RunAnalysis requests the full report. Any transport fault, non-2xx status
// or body without a recognizable chapter set is a REQUEST_FAILED error.
func (c *Client) RunAnalysis(ctx context.Context, req report.AnalysisRequest) (*report.AnalysisResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode analysis request")
	}

	body, err := c.do(ctx, http.MethodPost, PathAnalysis, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	if !hasChapterKey(body) {
		return nil, errors.RequestFailed("analysis reply carries no recognizable chapter", nil)
	}

	resp := report.NewAnalysisResponse()
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.RequestFailed("malformed analysis reply", err)
	}
	log.Printf("[Backend] Analysis for session %s returned %d/%d chapters", req.SessionID, resp.Len(), report.ChapterCount)
	return resp, nil
}

// UploadDataset posts a file as multipart form field "file"
func (c *Client) UploadDataset(ctx context.Context, filename string, content io.Reader) (*report.IngestResult, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build upload form")
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, errors.Wrap(err, "failed to read upload content")
	}
	if err := form.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finish upload form")
	}

	body, err := c.do(ctx, http.MethodPost, PathUpload, form.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	return decodeIngest(body)
}

// GenerateSample asks the service to synthesize a dataset
func (c *Client) GenerateSample(ctx context.Context, req report.SampleRequest) (*report.IngestResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode sample request")
	}
	body, err := c.do(ctx, http.MethodPost, PathSample, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return decodeIngest(body)
}

// CheckHealth pings the service
func (c *Client) CheckHealth(ctx context.Context) error {
	body, err := c.do(ctx, http.MethodPost, PathHealth, "application/json", strings.NewReader(`{"session_id":"ping"}`))
	if err != nil {
		return err
	}
	if status := gjson.GetBytes(body, "status").String(); status != "ready" {
		return errors.RequestFailed(fmt.Sprintf("service not ready (status %q)", status), nil)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.RequestFailed("invalid analysis service address", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.RequestFailed("analysis service unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.RequestFailed("failed to read service reply", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(data, "error").String()
		if msg == "" {
			msg = fmt.Sprintf("service replied %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, errors.RequestFailed(msg, nil)
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.RequestFailed("service reply is not valid JSON", nil)
	}
	return data, nil
}

func hasChapterKey(body []byte) bool {
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return false
	}
	for _, key := range report.ChapterOrder() {
		if root.Get(string(key)).Exists() {
			return true
		}
	}
	return false
}

func decodeIngest(body []byte) (*report.IngestResult, error) {
	var res report.IngestResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errors.RequestFailed("malformed ingestion reply", err)
	}
	if res.Error != "" {
		return nil, errors.RequestFailed(res.Error, nil)
	}
	if res.Success != nil && !*res.Success {
		return nil, errors.RequestFailed("ingestion was not successful", nil)
	}
	if strings.TrimSpace(res.SessionID) == "" {
		return nil, errors.RequestFailed("ingestion reply carries no session id", nil)
	}
	return &res, nil
}
