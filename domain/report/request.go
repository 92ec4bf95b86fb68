package report

import (
	"math"
	"strings"

	"requiem/internal/errors"
)

// AnalysisRequest is the body of a full analysis run. It is a value type and
// is never modified once built.
type AnalysisRequest struct {
	SessionID       string  `json:"session_id"`
	Threshold       float64 `json:"umbral"`
	ConfidenceLevel float64 `json:"nivel_confianza"`
}

// NewAnalysisRequest validates and builds a request
func NewAnalysisRequest(sessionID string, threshold, confidenceLevel float64) (AnalysisRequest, error) {
	if strings.TrimSpace(sessionID) == "" {
		return AnalysisRequest{}, errors.NoActiveSession()
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return AnalysisRequest{}, errors.InvalidInput("threshold must be a finite number")
	}
	if !(confidenceLevel > 0 && confidenceLevel < 1) {
		return AnalysisRequest{}, errors.InvalidInput("confidence level must be in (0, 1)")
	}
	return AnalysisRequest{
		SessionID:       sessionID,
		Threshold:       threshold,
		ConfidenceLevel: confidenceLevel,
	}, nil
}
