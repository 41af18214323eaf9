package domain

// MetricAggregate accumulates every value observed for one metric within a
// day bucket. The percentile fields are derived from Values on each fold and
// are never mutated independently.
type MetricAggregate struct {
	Values  []float64 `json:"values"`
	P75     float64   `json:"p75"`
	P90     float64   `json:"p90"`
	P95     float64   `json:"p95"`
	Average float64   `json:"average"`
}

// Clone returns a deep copy so callers can fold without aliasing the
// stored value slice.
func (a *MetricAggregate) Clone() *MetricAggregate {
	if a == nil {
		return nil
	}
	copied := *a
	copied.Values = append([]float64(nil), a.Values...)
	return &copied
}

// DayAggregate buckets all samples received within one UTC calendar date.
// Count is the total number of samples of any metric folded into the bucket.
type DayAggregate struct {
	Date    string                          `json:"date"`
	Metrics map[MetricName]*MetricAggregate `json:"metrics"`
	Count   int                             `json:"count"`
}

// NewDayAggregate creates an empty bucket for the given date.
func NewDayAggregate(date string) *DayAggregate {
	return &DayAggregate{
		Date:    date,
		Metrics: make(map[MetricName]*MetricAggregate),
	}
}

// Metric returns the aggregate for a metric, or nil when the bucket has not
// seen that metric yet.
func (d *DayAggregate) Metric(name MetricName) *MetricAggregate {
	if d == nil {
		return nil
	}
	return d.Metrics[name]
}
