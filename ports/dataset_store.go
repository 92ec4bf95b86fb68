package ports

import (
	"context"
	"time"

	"requiem/domain/report"
)

// Dataset is an ingested sample held by the analysis service
type Dataset struct {
	ID        string               `db:"id"`
	Source    string               `db:"source"`
	Values    []float64            `db:"-"`
	Summary   report.SampleSummary `db:"-"`
	CreatedAt time.Time            `db:"created_at"`
}

// DatasetStore keeps ingested datasets for the analysis service
type DatasetStore interface {
	// Save stores a dataset under its ID
	Save(ctx context.Context, ds *Dataset) error

	// Get returns the dataset, or a NOT_FOUND error
	Get(ctx context.Context, id string) (*Dataset, error)

	// DeleteOlderThan drops datasets created before the cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
