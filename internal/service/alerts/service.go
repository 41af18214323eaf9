package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bdougie/vitals/internal/domain"
	"github.com/bdougie/vitals/internal/repository"
)

// ErrStoreUnavailable flags a failed persistence call during evaluation.
var ErrStoreUnavailable = errors.New("alerts: store unavailable")

// Service loads aggregate snapshots, runs the evaluator, and writes the
// resulting batch. Each run is an independent unit of work.
type Service struct {
	aggregates    repository.AggregateStore
	alerts        repository.AlertStore
	thresholds    domain.AlertThresholds
	deployID      string
	deployContext string
	interval      time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// New constructs the alerting service. interval <= 0 disables the internal
// scheduler; the HTTP trigger still works.
func New(aggregates repository.AggregateStore, alertStore repository.AlertStore, thresholds domain.AlertThresholds, deployID, deployContext string, interval time.Duration, logger *slog.Logger) *Service {
	if logger != nil {
		logger = logger.With("component", "alerts")
	}
	return &Service{
		aggregates:    aggregates,
		alerts:        alertStore,
		thresholds:    thresholds,
		deployID:      deployID,
		deployContext: deployContext,
		interval:      interval,
		logger:        logger,
		now:           time.Now,
	}
}

// Run drives scheduled evaluations until the context is cancelled. It is a
// no-op when no interval is configured.
func (s *Service) Run(ctx context.Context) {
	if s == nil || s.interval <= 0 {
		return
	}
	if s.logger != nil {
		s.logger.Info("alert evaluation scheduler started", "interval", s.interval)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Info("alert evaluation scheduler stopped")
			}
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				if s.logger != nil {
					s.logger.Warn("scheduled evaluation failed", "error", err)
				}
			}
		}
	}
}

// RunOnce loads today's and yesterday's buckets, evaluates them, and writes
// one batch when any alert fired. It returns the generated alerts.
func (s *Service) RunOnce(ctx context.Context) ([]domain.Alert, error) {
	now := s.now().UTC()
	today, err := s.loadAggregate(ctx, now.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	yesterday, err := s.loadAggregate(ctx, now.AddDate(0, 0, -1).Format(time.DateOnly))
	if err != nil {
		return nil, err
	}

	alerts := Evaluate(today, yesterday, s.thresholds)
	if len(alerts) == 0 {
		if s.logger != nil {
			s.logger.Info("evaluation produced no alerts", "date", now.Format(time.DateOnly))
		}
		return nil, nil
	}

	batch := &domain.AlertBatch{
		ID:            uuid.NewString(),
		Timestamp:     now.UnixMilli(),
		Date:          now.Format(time.DateOnly),
		Alerts:        alerts,
		DeployID:      s.deployID,
		DeployContext: s.deployContext,
	}
	if err := s.alerts.PutAlertBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("%w: put alert batch: %w", ErrStoreUnavailable, err)
	}
	if s.logger != nil {
		s.logger.Info("alert batch written", "date", batch.Date, "alerts", len(alerts))
	}
	return alerts, nil
}

func (s *Service) loadAggregate(ctx context.Context, date string) (*domain.DayAggregate, error) {
	aggregate, err := s.aggregates.GetDayAggregate(ctx, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load aggregate %s: %w", ErrStoreUnavailable, date, err)
	}
	return aggregate, nil
}
