package api

import (
	"context"
	"io"

	"requiem/adapters/excel"
	"requiem/domain/report"
	"requiem/internal/analysis"
	"requiem/internal/errors"
	"requiem/ports"
)

// LocalBackend serves report hosts straight from an in-process engine,
// skipping HTTP. Used by the CLI when no service URL is given.
type LocalBackend struct {
	engine *analysis.Engine
}

var _ ports.AnalysisBackend = (*LocalBackend)(nil)

// NewLocalBackend wraps engine
func NewLocalBackend(engine *analysis.Engine) *LocalBackend {
	return &LocalBackend{engine: engine}
}

func (b *LocalBackend) RunAnalysis(ctx context.Context, req report.AnalysisRequest) (*report.AnalysisResponse, error) {
	return b.engine.Analyze(ctx, req.SessionID, analysis.Params{
		Threshold:       req.Threshold,
		ConfidenceLevel: req.ConfidenceLevel,
	})
}

func (b *LocalBackend) UploadDataset(ctx context.Context, filename string, content io.Reader) (*report.IngestResult, error) {
	table, err := excel.NewDataReader(filename).Read(content)
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.WithCode(errors.CodeValidationError, err)
	}
	return b.engine.IngestTable(ctx, filename, table.Headers, table.Rows)
}

func (b *LocalBackend) GenerateSample(ctx context.Context, req report.SampleRequest) (*report.IngestResult, error) {
	return b.engine.IngestSample(ctx, req)
}

func (b *LocalBackend) CheckHealth(ctx context.Context) error {
	return ctx.Err()
}
