package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

// ObservationRepository handles data access for canonical observations
type ObservationRepository struct {
	pool *pgxpool.Pool
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(pool *pgxpool.Pool) *ObservationRepository {
	return &ObservationRepository{pool: pool}
}

// BulkInsert performs a batch insert of the observations of one run
func (r *ObservationRepository) BulkInsert(ctx context.Context, runID uuid.UUID, observations []models.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO observations (
			run_id, city, state_code, region, product, product_class,
			price_mean, price_min, price_max, price_stddev, stations_surveyed,
			price_unit, period_start, period_end
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	for _, o := range observations {
		batch.Queue(
			query,
			runID,
			o.City,
			o.StateCode,
			string(o.Region),
			o.Product,
			string(o.ProductClass),
			o.PriceMean,
			o.PriceMin,
			o.PriceMax,
			o.PriceStdDev,
			o.StationsSurveyed,
			o.PriceUnit,
			dateOrNil(o.Period.Start),
			dateOrNil(o.Period.End),
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(observations); i++ {
		_, err := results.Exec()
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByRun retrieves the observations of a run in insertion order
func (r *ObservationRepository) GetByRun(ctx context.Context, runID uuid.UUID) ([]models.Observation, error) {
	query := `
		SELECT city, state_code, region, product, product_class,
		       price_mean, price_min, price_max, price_stddev, stations_surveyed,
		       price_unit, period_start, period_end
		FROM observations
		WHERE run_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	observations := make([]models.Observation, 0)
	for rows.Next() {
		var (
			o             models.Observation
			region, class string
			start, end    *time.Time
		)
		err := rows.Scan(
			&o.City,
			&o.StateCode,
			&region,
			&o.Product,
			&class,
			&o.PriceMean,
			&o.PriceMin,
			&o.PriceMax,
			&o.PriceStdDev,
			&o.StationsSurveyed,
			&o.PriceUnit,
			&start,
			&end,
		)
		if err != nil {
			return nil, err
		}
		o.Region = models.Region(region)
		o.ProductClass = models.ProductClass(class)
		if start != nil {
			o.Period.Start = start.UTC()
		}
		if end != nil {
			o.Period.End = end.UTC()
		}
		observations = append(observations, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return observations, nil
}

func dateOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
