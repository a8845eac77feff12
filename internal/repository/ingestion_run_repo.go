package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

// IngestionRunRepository handles data access for ingestion run records
type IngestionRunRepository struct {
	pool *pgxpool.Pool
}

// NewIngestionRunRepository creates a new ingestion run repository
func NewIngestionRunRepository(pool *pgxpool.Pool) *IngestionRunRepository {
	return &IngestionRunRepository{pool: pool}
}

// runColumns is the canonical column list for ingestion_runs, used across all queries.
const runColumns = `id, status, source, content_hash, header_row, column_map,
	drop_report, rows_in, rows_out, last_error, duration_ms, started_at,
	completed_at, created_at`

// scanRun scans a row into an IngestionRun using the canonical column order.
func scanRun(row pgx.Row, run *models.IngestionRun) error {
	return row.Scan(
		&run.ID,
		&run.Status,
		&run.Source,
		&run.ContentHash,
		&run.HeaderRow,
		&run.ColumnMap,
		&run.DropReport,
		&run.RowsIn,
		&run.RowsOut,
		&run.LastError,
		&run.DurationMs,
		&run.StartedAt,
		&run.CompletedAt,
		&run.CreatedAt,
	)
}

// Create inserts a new ingestion run record
func (r *IngestionRunRepository) Create(ctx context.Context, run *models.IngestionRun) error {
	if run == nil {
		return errors.New("ingestion run cannot be nil")
	}

	query := `
		INSERT INTO ingestion_runs (
			id, status, source, content_hash, header_row, column_map,
			drop_report, rows_in, rows_out, last_error, duration_ms, started_at,
			completed_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING ` + runColumns

	return scanRun(r.pool.QueryRow(
		ctx, query,
		run.ID, run.Status, run.Source, run.ContentHash, run.HeaderRow, nullJSON(run.ColumnMap),
		nullJSON(run.DropReport), run.RowsIn, run.RowsOut, run.LastError, run.DurationMs, run.StartedAt,
		run.CompletedAt, run.CreatedAt,
	), run)
}

// Complete stores the outcome of a successful run
func (r *IngestionRunRepository) Complete(ctx context.Context, run *models.IngestionRun) error {
	if run == nil {
		return errors.New("ingestion run cannot be nil")
	}

	query := `
		UPDATE ingestion_runs
		SET status = $2, header_row = $3, column_map = $4, drop_report = $5,
		    rows_in = $6, rows_out = $7, duration_ms = $8,
		    completed_at = COALESCE($9, NOW())
		WHERE id = $1
		RETURNING ` + runColumns

	err := scanRun(r.pool.QueryRow(
		ctx, query,
		run.ID, run.Status, run.HeaderRow, nullJSON(run.ColumnMap), nullJSON(run.DropReport),
		run.RowsIn, run.RowsOut, run.DurationMs, run.CompletedAt,
	), run)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.New("ingestion run not found")
		}
		return err
	}
	return nil
}

// UpdateStatus updates the status and related fields for an ingestion run
func (r *IngestionRunRepository) UpdateStatus(
	ctx context.Context,
	runID uuid.UUID,
	status string,
	lastError *string,
	durationMs *int,
) error {
	query := `
		UPDATE ingestion_runs
		SET status = $1,
		    last_error = COALESCE($2, last_error),
		    duration_ms = COALESCE($3, duration_ms),
		    completed_at = CASE WHEN $1 IN ('succeeded', 'failed') THEN NOW() ELSE completed_at END
		WHERE id = $4
		RETURNING id
	`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query, status, lastError, durationMs, runID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.New("ingestion run not found")
		}
		return err
	}

	return nil
}

// GetByID retrieves an ingestion run by ID
func (r *IngestionRunRepository) GetByID(ctx context.Context, runID uuid.UUID) (*models.IngestionRun, error) {
	query := `SELECT ` + runColumns + ` FROM ingestion_runs WHERE id = $1`
	return r.getOne(ctx, query, runID)
}

// GetLatestSucceeded returns the most recent successful run, or nil, nil
// when there is none.
func (r *IngestionRunRepository) GetLatestSucceeded(ctx context.Context) (*models.IngestionRun, error) {
	query := `SELECT ` + runColumns + ` FROM ingestion_runs
		WHERE status = 'succeeded'
		ORDER BY completed_at DESC NULLS LAST, created_at DESC
		LIMIT 1`
	return r.getOne(ctx, query)
}

func (r *IngestionRunRepository) getOne(ctx context.Context, query string, args ...any) (*models.IngestionRun, error) {
	run := &models.IngestionRun{}
	err := scanRun(r.pool.QueryRow(ctx, query, args...), run)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

// List returns ingestion runs newest first. A limit <= 0 means 50.
func (r *IngestionRunRepository) List(ctx context.Context, limit int) ([]models.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + runColumns + ` FROM ingestion_runs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]models.IngestionRun, 0)
	for rows.Next() {
		var run models.IngestionRun
		if err := scanRun(rows, &run); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// nullJSON maps an empty document to SQL NULL.
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
