package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"requiem/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.1.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. Every step is
// idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createDatasetsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analysis_datasets table")
	}

	if err := r.addDatasetSourceColumn(ctx, db); err != nil {
		return errors.Wrap(err, "failed to add source to analysis_datasets")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createDatasetsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_datasets (
			id          TEXT PRIMARY KEY,
			vals        DOUBLE PRECISION[] NOT NULL,
			n           INTEGER NOT NULL,
			mean        DOUBLE PRECISION NOT NULL,
			std_dev     DOUBLE PRECISION NOT NULL,
			created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// addDatasetSourceColumn upgrades tables created before uploads recorded
// their file name
func (r *MigrationRunner) addDatasetSourceColumn(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_name = 'analysis_datasets' AND column_name = 'source'
			) THEN
				ALTER TABLE analysis_datasets ADD COLUMN source TEXT NOT NULL DEFAULT '';
			END IF;
		END $$;
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_analysis_datasets_created_at ON analysis_datasets (created_at)
	`)
	return err
}
