// Package postgres implements the persistence contracts on PostgreSQL for
// deployments that already run a database and prefer it over Redis. Records
// keep the same key-value shape; payloads are stored as JSONB.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bdougie/vitals/internal/domain"
	"github.com/bdougie/vitals/internal/repository"
)

// Store implements repository.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping probes database liveness.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PutSample inserts a raw sample. Keys are write-once; a replayed delivery
// of the same key is a no-op.
func (s *Store) PutSample(ctx context.Context, key string, sample domain.Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	const query = `INSERT INTO performance_samples (key, metric, recorded_at, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, key, string(sample.Name), sample.Timestamp, payload); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}

// ListRecentSamples returns up to limit samples for a metric, newest first.
func (s *Store) ListRecentSamples(ctx context.Context, metric domain.MetricName, limit int) ([]domain.Sample, error) {
	if limit <= 0 {
		return nil, nil
	}
	const query = `SELECT payload FROM performance_samples
		WHERE metric = $1 ORDER BY recorded_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, string(metric), limit)
	if err != nil {
		return nil, fmt.Errorf("read recent samples: %w", err)
	}
	defer rows.Close()

	var samples []domain.Sample
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var sample domain.Sample
		if err := json.Unmarshal(payload, &sample); err != nil {
			continue
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// GetDayAggregate fetches one day bucket.
func (s *Store) GetDayAggregate(ctx context.Context, date string) (*domain.DayAggregate, error) {
	const query = `SELECT payload FROM performance_aggregates WHERE date = $1`
	var payload []byte
	if err := s.pool.QueryRow(ctx, query, date).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("read aggregate %s: %w", date, err)
	}
	var aggregate domain.DayAggregate
	if err := json.Unmarshal(payload, &aggregate); err != nil {
		return nil, fmt.Errorf("decode aggregate %s: %w", date, err)
	}
	return &aggregate, nil
}

// PutDayAggregate replaces one day bucket. Last writer wins.
func (s *Store) PutDayAggregate(ctx context.Context, aggregate *domain.DayAggregate) error {
	payload, err := json.Marshal(aggregate)
	if err != nil {
		return fmt.Errorf("marshal aggregate: %w", err)
	}
	const query = `INSERT INTO performance_aggregates (date, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (date) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`
	if _, err := s.pool.Exec(ctx, query, aggregate.Date, payload); err != nil {
		return fmt.Errorf("write aggregate %s: %w", aggregate.Date, err)
	}
	return nil
}

// PutAlertBatch appends one evaluator run's alerts.
func (s *Store) PutAlertBatch(ctx context.Context, batch *domain.AlertBatch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal alert batch: %w", err)
	}
	key := repository.AlertBatchKey(batch.Date, batch.Timestamp)
	const query = `INSERT INTO performance_alert_batches (key, date, written_at, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, key, batch.Date, batch.Timestamp, payload); err != nil {
		return fmt.Errorf("write alert batch: %w", err)
	}
	return nil
}

// ListAlertBatches returns all batches recorded for a date, oldest first.
func (s *Store) ListAlertBatches(ctx context.Context, date string) ([]domain.AlertBatch, error) {
	const query = `SELECT payload FROM performance_alert_batches
		WHERE date = $1 ORDER BY written_at ASC`
	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("read alert batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.AlertBatch
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var batch domain.AlertBatch
		if err := json.Unmarshal(payload, &batch); err != nil {
			continue
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}
