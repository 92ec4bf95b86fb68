package report

import (
	"fmt"

	"requiem/internal/errors"
)

// SampleSummary is the summary the ingestion service returns for a dataset
type SampleSummary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"media"`
	StdDev float64 `json:"std"`
}

// Validate checks that the summary is usable
func (s SampleSummary) Validate() error {
	if s.N < 0 {
		return errors.InvalidInput("sample size must not be negative")
	}
	if s.StdDev < 0 {
		return errors.InvalidInput("standard deviation must not be negative")
	}
	return nil
}

// Preview renders the one-line sample preview shown after ingestion
func (s SampleSummary) Preview() string {
	return fmt.Sprintf("n=%d | μ=%.3f | s=%.3f", s.N, s.Mean, s.StdDev)
}

// Session is the client-side reference to an ingested dataset
type Session struct {
	ID      string
	Summary *SampleSummary
}

// IngestResult is the ingestion service reply for an upload or a synthetic
// sample
type IngestResult struct {
	SessionID string        `json:"session_id"`
	Summary   SampleSummary `json:"estadisticas"`
	Count     *IngestCount  `json:"conteo,omitempty"`
	Success   *bool         `json:"success,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// IngestCount carries the number of rows kept after cleaning
type IngestCount struct {
	ValidRows int `json:"filas_validas"`
}

// Records returns the number of usable records in the dataset
func (r IngestResult) Records() int {
	if r.Count != nil {
		return r.Count.ValidRows
	}
	return r.Summary.N
}

// SampleRequest asks the service to synthesize a dataset
type SampleRequest struct {
	N      int     `json:"n"`
	Mean   float64 `json:"media"`
	StdDev float64 `json:"desviacion"`
}
