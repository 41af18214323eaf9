// Package ingest folds inbound RUM samples into the current day's aggregate.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bdougie/vitals/internal/domain"
	"github.com/bdougie/vitals/internal/repository"
	"github.com/bdougie/vitals/internal/vitals"
	"github.com/bdougie/vitals/internal/ws"
)

var (
	// ErrInvalidSample rejects malformed or incomplete samples. Mapped to a
	// client error at the HTTP boundary.
	ErrInvalidSample = errors.New("ingest: invalid sample")

	// ErrStoreUnavailable flags a failed persistence call. Mapped to a 5xx
	// at the HTTP boundary; this service does not retry.
	ErrStoreUnavailable = errors.New("ingest: store unavailable")
)

// Service validates, enriches, and applies samples to the day bucket.
type Service struct {
	samples    repository.SampleStore
	aggregates repository.AggregateStore
	hub        *ws.Hub
	logger     *slog.Logger
	deployID   string
	now        func() time.Time

	// mu serializes the read-modify-write of the day aggregate within this
	// process. Across processes the aggregate write is last-writer-wins;
	// the deployment model is a single ingesting instance.
	mu sync.Mutex
}

// New constructs the ingestion service.
func New(samples repository.SampleStore, aggregates repository.AggregateStore, hub *ws.Hub, logger *slog.Logger, deployID string) *Service {
	if logger != nil {
		logger = logger.With("component", "ingest")
	}
	return &Service{
		samples:    samples,
		aggregates: aggregates,
		hub:        hub,
		logger:     logger,
		deployID:   deployID,
		now:        time.Now,
	}
}

// Ingest applies one sample: persist the raw record, fold its value into
// today's aggregate, and persist the updated bucket. Two store writes, no
// retries.
func (s *Service) Ingest(ctx context.Context, sample domain.Sample) error {
	if err := validate(sample); err != nil {
		return err
	}

	now := s.now().UTC()
	sample.Timestamp = now.UnixMilli()
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.DeployID == "" {
		sample.DeployID = s.deployID
	}

	key := repository.SampleKey(sample.Name, sample.Timestamp, sample.ID)
	if err := s.samples.PutSample(ctx, key, sample); err != nil {
		return fmt.Errorf("%w: put sample: %w", ErrStoreUnavailable, err)
	}

	date := now.Format(time.DateOnly)
	if err := s.applyToAggregate(ctx, date, sample); err != nil {
		return err
	}

	s.broadcast(sample)
	if s.logger != nil {
		s.logger.Debug("sample ingested", "metric", sample.Name, "value", sample.Value, "date", date)
	}
	return nil
}

func (s *Service) applyToAggregate(ctx context.Context, date string, sample domain.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	aggregate, err := s.aggregates.GetDayAggregate(ctx, date)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: load aggregate: %w", ErrStoreUnavailable, err)
		}
		aggregate = domain.NewDayAggregate(date)
	}
	if aggregate.Metrics == nil {
		aggregate.Metrics = make(map[domain.MetricName]*domain.MetricAggregate)
	}
	aggregate.Metrics[sample.Name] = vitals.Fold(aggregate.Metrics[sample.Name], sample.Value)
	aggregate.Count++

	if err := s.aggregates.PutDayAggregate(ctx, aggregate); err != nil {
		return fmt.Errorf("%w: put aggregate: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Service) broadcast(sample domain.Sample) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(sample)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to marshal sample for broadcast", "error", err)
		}
		return
	}
	s.hub.Broadcast(string(sample.Name), payload)
	s.hub.Broadcast(ws.TopicAll, payload)
}

func validate(sample domain.Sample) error {
	if !sample.Name.Valid() {
		return fmt.Errorf("%w: unknown metric name %q", ErrInvalidSample, sample.Name)
	}
	if math.IsNaN(sample.Value) || math.IsInf(sample.Value, 0) {
		return fmt.Errorf("%w: value must be a finite number", ErrInvalidSample)
	}
	if sample.Value < 0 {
		return fmt.Errorf("%w: value must not be negative", ErrInvalidSample)
	}
	switch sample.Rating {
	case "", domain.RatingGood, domain.RatingNeedsImprovement, domain.RatingPoor:
	default:
		return fmt.Errorf("%w: unknown rating %q", ErrInvalidSample, sample.Rating)
	}
	return nil
}
