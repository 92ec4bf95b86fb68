// Package postgres persists analysis datasets in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"requiem/domain/report"
	"requiem/internal/errors"
	"requiem/internal/migration"
	"requiem/ports"
)

// datasetRow mirrors one row of analysis_datasets
type datasetRow struct {
	ID        string          `db:"id"`
	Source    string          `db:"source"`
	Values    pq.Float64Array `db:"vals"`
	N         int             `db:"n"`
	Mean      float64         `db:"mean"`
	StdDev    float64         `db:"std_dev"`
	CreatedAt time.Time       `db:"created_at"`
}

// datasetRepository implements ports.DatasetStore
type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) ports.DatasetStore {
	return &datasetRepository{db: db}
}

// Connect opens the database and migrates the schema
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("failed to connect to database: %w", err))
	}
	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("schema %s: %w", runner.Version(), err))
	}
	return db, nil
}

// Save inserts or replaces a dataset
func (r *datasetRepository) Save(ctx context.Context, ds *ports.Dataset) error {
	row := datasetRow{
		ID:        ds.ID,
		Source:    ds.Source,
		Values:    pq.Float64Array(ds.Values),
		N:         ds.Summary.N,
		Mean:      ds.Summary.Mean,
		StdDev:    ds.Summary.StdDev,
		CreatedAt: ds.CreatedAt,
	}
	query := `INSERT INTO analysis_datasets (id, source, vals, n, mean, std_dev, created_at)
		VALUES (:id, :source, :vals, :n, :mean, :std_dev, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source, vals = EXCLUDED.vals, n = EXCLUDED.n,
			mean = EXCLUDED.mean, std_dev = EXCLUDED.std_dev, created_at = EXCLUDED.created_at`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}

// Get retrieves a dataset by its ID
func (r *datasetRepository) Get(ctx context.Context, id string) (*ports.Dataset, error) {
	var row datasetRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, source, vals, n, mean, std_dev, created_at FROM analysis_datasets WHERE id = $1`, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("dataset")
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return &ports.Dataset{
		ID:        row.ID,
		Source:    row.Source,
		Values:    []float64(row.Values),
		Summary:   report.SampleSummary{N: row.N, Mean: row.Mean, StdDev: row.StdDev},
		CreatedAt: row.CreatedAt,
	}, nil
}

// DeleteOlderThan removes datasets created before cutoff
func (r *datasetRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analysis_datasets WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete datasets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted datasets: %w", err)
	}
	return int(n), nil
}
