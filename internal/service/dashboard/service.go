// Package dashboard serves the read path: recent day buckets, a cross-day
// summary, and a small live window of raw LCP samples.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bdougie/vitals/internal/domain"
	"github.com/bdougie/vitals/internal/repository"
)

const recentSampleWindow = 10

// ErrStoreUnavailable flags a failed persistence read.
var ErrStoreUnavailable = errors.New("dashboard: store unavailable")

// Service assembles DashboardView snapshots.
type Service struct {
	samples    repository.SampleStore
	aggregates repository.AggregateStore
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs the dashboard service.
func New(samples repository.SampleStore, aggregates repository.AggregateStore, logger *slog.Logger) *Service {
	if logger != nil {
		logger = logger.With("component", "dashboard")
	}
	return &Service{
		samples:    samples,
		aggregates: aggregates,
		logger:     logger,
		now:        time.Now,
	}
}

// Summarize reads the most recent days of aggregates, newest first. Days
// with no bucket are skipped, not zero-filled. Per-metric averages weight
// each present day's p75 equally and only consider days containing that
// metric; a metric absent from every day averages to zero.
func (s *Service) Summarize(ctx context.Context, days int) (*domain.DashboardView, error) {
	if days <= 0 {
		days = 7
	}
	now := s.now().UTC()

	view := &domain.DashboardView{Days: []domain.DayAggregate{}}
	for offset := 0; offset < days; offset++ {
		date := now.AddDate(0, 0, -offset).Format(time.DateOnly)
		aggregate, err := s.aggregates.GetDayAggregate(ctx, date)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("%w: load aggregate %s: %w", ErrStoreUnavailable, date, err)
		}
		view.Days = append(view.Days, *aggregate)
		view.Summary.TotalSessions += aggregate.Count
	}

	view.Summary.AvgLCP = averageP75(view.Days, domain.MetricLCP)
	view.Summary.AvgCLS = averageP75(view.Days, domain.MetricCLS)
	view.Summary.AvgFID = averageP75(view.Days, domain.MetricFID)

	recent, err := s.samples.ListRecentSamples(ctx, domain.MetricLCP, recentSampleWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: load recent samples: %w", ErrStoreUnavailable, err)
	}
	if recent == nil {
		recent = []domain.Sample{}
	}
	view.RecentSamples = recent
	return view, nil
}

func averageP75(days []domain.DayAggregate, metric domain.MetricName) float64 {
	sum := 0.0
	count := 0
	for i := range days {
		if aggregate := days[i].Metric(metric); aggregate != nil {
			sum += aggregate.P75
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
