// Package redisstore implements the persistence contracts on Redis. Logical
// namespaces map to key prefixes; retention is enforced with per-record TTLs
// since the pipeline keeps no long-term history.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/bdougie/vitals/internal/domain"
	"github.com/bdougie/vitals/internal/repository"
)

const (
	dataPrefix  = "performance-data:"
	alertPrefix = "performance-alerts:"

	// recentKeep bounds the per-metric live-view index.
	recentKeep = 50
)

// Options configures the Redis connection and retention windows.
type Options struct {
	Addr         string
	Password     string
	DB           int
	SampleTTL    time.Duration
	AggregateTTL time.Duration
	AlertTTL     time.Duration
}

// Store is a Redis-backed implementation of repository.Store.
type Store struct {
	client       *redis.Client
	sampleTTL    time.Duration
	aggregateTTL time.Duration
	alertTTL     time.Duration
}

var _ repository.Store = (*Store)(nil)

// New connects to Redis and verifies the connection with a ping.
func New(opts Options) (*Store, error) {
	if opts.SampleTTL <= 0 {
		opts.SampleTTL = 7 * 24 * time.Hour
	}
	if opts.AggregateTTL <= 0 {
		opts.AggregateTTL = 30 * 24 * time.Hour
	}
	if opts.AlertTTL <= 0 {
		opts.AlertTTL = 90 * 24 * time.Hour
	}
	client := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Store{
		client:       client,
		sampleTTL:    opts.SampleTTL,
		aggregateTTL: opts.AggregateTTL,
		alertTTL:     opts.AlertTTL,
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping probes store liveness.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// PutSample writes a raw sample and pushes it onto the per-metric live-view
// index.
func (s *Store) PutSample(ctx context.Context, key string, sample domain.Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, dataPrefix+key, payload, s.sampleTTL)
	recent := recentKey(sample.Name)
	pipe.LPush(ctx, recent, payload)
	pipe.LTrim(ctx, recent, 0, recentKeep-1)
	pipe.Expire(ctx, recent, s.sampleTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}

// ListRecentSamples returns up to limit samples for a metric, newest first.
func (s *Store) ListRecentSamples(ctx context.Context, metric domain.MetricName, limit int) ([]domain.Sample, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := s.client.LRange(ctx, recentKey(metric), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent samples: %w", err)
	}
	samples := make([]domain.Sample, 0, len(raw))
	for _, item := range raw {
		var sample domain.Sample
		if err := json.Unmarshal([]byte(item), &sample); err != nil {
			continue
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// GetDayAggregate fetches one day bucket.
func (s *Store) GetDayAggregate(ctx context.Context, date string) (*domain.DayAggregate, error) {
	raw, err := s.client.Get(ctx, dataPrefix+repository.AggregateKey(date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("read aggregate %s: %w", date, err)
	}
	var aggregate domain.DayAggregate
	if err := json.Unmarshal(raw, &aggregate); err != nil {
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
	key := dataPrefix + repository.AggregateKey(aggregate.Date)
	if err := s.client.Set(ctx, key, payload, s.aggregateTTL).Err(); err != nil {
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
	key := alertPrefix + repository.AlertBatchKey(batch.Date, batch.Timestamp)
	if err := s.client.Set(ctx, key, payload, s.alertTTL).Err(); err != nil {
		return fmt.Errorf("write alert batch: %w", err)
	}
	return nil
}

// ListAlertBatches scans all batches recorded for a date.
func (s *Store) ListAlertBatches(ctx context.Context, date string) ([]domain.AlertBatch, error) {
	pattern := alertPrefix + "alerts-" + date + "-*"
	var batches []domain.AlertBatch
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("read alert batch: %w", err)
		}
		var batch domain.AlertBatch
		if err := json.Unmarshal(raw, &batch); err != nil {
			continue
		}
		batches = append(batches, batch)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan alert batches: %w", err)
	}
	return batches, nil
}

func recentKey(metric domain.MetricName) string {
	return dataPrefix + "recent:" + string(metric)
}
