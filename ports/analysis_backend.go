package ports

import (
	"context"
	"io"

	"requiem/domain/report"
)

// AnalysisBackend is the remote statistics service
type AnalysisBackend interface {
	// RunAnalysis requests the full multi-chapter report
	RunAnalysis(ctx context.Context, req report.AnalysisRequest) (*report.AnalysisResponse, error)

	// UploadDataset ingests a CSV or XLSX file and opens a session
	UploadDataset(ctx context.Context, filename string, content io.Reader) (*report.IngestResult, error)

	// GenerateSample synthesizes a dataset and opens a session
	GenerateSample(ctx context.Context, req report.SampleRequest) (*report.IngestResult, error)

	// CheckHealth pings the service
	CheckHealth(ctx context.Context) error
}
