package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"requiem/adapters/excel"
	"requiem/domain/report"
	"requiem/internal/analysis"
	"requiem/internal/errors"
)

// analysisBody is the analysis request as sent by clients. Missing
// parameters fall back to the configured defaults.
type analysisBody struct {
	SessionID       string   `json:"session_id" binding:"required"`
	Threshold       *float64 `json:"umbral"`
	ConfidenceLevel *float64 `json:"nivel_confianza"`
}

// sampleBody is the synthetic sample request
type sampleBody struct {
	N      *int     `json:"n"`
	Mean   *float64 `json:"media"`
	StdDev *float64 `json:"desviacion"`
}

// Sample defaults when a field is omitted
const (
	defaultSampleN      = 100
	defaultSampleMean   = 5.5
	defaultSampleStdDev = 1.5
)

func (s *Server) handleAnalysis(c *gin.Context) {
	var body analysisBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	p := analysis.Params{
		Threshold:       s.defaults.DefaultThreshold,
		ConfidenceLevel: s.defaults.DefaultConfidence,
	}
	if body.Threshold != nil {
		p.Threshold = *body.Threshold
	}
	if body.ConfidenceLevel != nil {
		p.ConfidenceLevel = *body.ConfidenceLevel
	}
	if _, err := report.NewAnalysisRequest(body.SessionID, p.Threshold, p.ConfidenceLevel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errors.Message(err)})
		return
	}

	resp, err := s.engine.Analyze(c.Request.Context(), body.SessionID, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file received"})
		return
	}
	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty file name"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open the uploaded file"})
		return
	}
	defer file.Close()

	table, err := excel.NewDataReader(header.Filename).Read(file)
	if err != nil {
		log.Printf("[API] Upload %s rejected: %v", header.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.engine.IngestTable(c.Request.Context(), header.Filename, table.Headers, table.Rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSample(c *gin.Context) {
	var body sampleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON body"})
		return
	}
	req := report.SampleRequest{N: defaultSampleN, Mean: defaultSampleMean, StdDev: defaultSampleStdDev}
	if body.N != nil {
		req.N = *body.N
	}
	if body.Mean != nil {
		req.Mean = *body.Mean
	}
	if body.StdDev != nil {
		req.StdDev = *body.StdDev
	}

	res, err := s.engine.IngestSample(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "error": errors.Message(err)})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": errors.Message(err)})
}

func statusFor(err error) int {
	switch {
	case errors.HasCode(err, errors.CodeValidationError),
		errors.HasCode(err, errors.CodeInvalidInput),
		errors.HasCode(err, errors.CodeNoActiveSession):
		return http.StatusBadRequest
	case errors.HasCode(err, errors.CodeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
