// Package vitals implements the day-bucket percentile aggregation for Web
// Vitals samples.
package vitals

import (
	"sort"

	"github.com/bdougie/vitals/internal/domain"
)

// Fold appends value to the aggregate's value set and recomputes the derived
// p75/p90/p95/average. A nil aggregate starts an empty one. The returned
// aggregate is a fresh structure; the input is never mutated, so a store
// write replaces the whole record atomically.
//
// Every raw value is retained for the lifetime of the day bucket and the
// value set is re-sorted on each fold. That is an O(n log n) insert and an
// unbounded-memory design: the daily date-keyed rollover is the retention
// strategy, and per-day sample volume is the scaling ceiling.
func Fold(aggregate *domain.MetricAggregate, value float64) *domain.MetricAggregate {
	next := aggregate.Clone()
	if next == nil {
		next = &domain.MetricAggregate{Values: []float64{}}
	}
	next.Values = append(next.Values, value)
	sort.Float64s(next.Values)

	n := len(next.Values)
	next.P75 = next.Values[n*75/100]
	next.P90 = next.Values[n*90/100]
	next.P95 = next.Values[n*95/100]

	sum := 0.0
	for _, v := range next.Values {
		sum += v
	}
	next.Average = sum / float64(n)
	return next
}
