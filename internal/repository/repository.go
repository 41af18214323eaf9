// Package repository defines the narrow persistence contracts the pipeline
// needs from its key-value store. Two logical namespaces exist: performance
// data (raw samples and day aggregates) and performance alerts.
package repository

import (
	"context"

	"github.com/bdougie/vitals/internal/domain"
)

// SampleStore persists raw enriched samples. Keys are
// "{metricName}-{timestampMs}-{sampleId}" and are write-once; sample IDs are
// caller-supplied and unique, so collisions are not handled.
type SampleStore interface {
	PutSample(ctx context.Context, key string, sample domain.Sample) error
	ListRecentSamples(ctx context.Context, metric domain.MetricName, limit int) ([]domain.Sample, error)
}

// AggregateStore persists day buckets under "aggregate-{YYYY-MM-DD}".
type AggregateStore interface {
	GetDayAggregate(ctx context.Context, date string) (*domain.DayAggregate, error)
	PutDayAggregate(ctx context.Context, aggregate *domain.DayAggregate) error
}

// AlertStore persists alert batches under "alerts-{date}-{writeTimestampMs}".
// Batches are append-only; multiple batches per day never overwrite.
type AlertStore interface {
	PutAlertBatch(ctx context.Context, batch *domain.AlertBatch) error
	ListAlertBatches(ctx context.Context, date string) ([]domain.AlertBatch, error)
}

// Store bundles the three contracts plus a liveness probe for /healthz.
type Store interface {
	SampleStore
	AggregateStore
	AlertStore
	Ping(ctx context.Context) error
}
