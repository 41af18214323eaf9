package domain

import "encoding/json"

// MetricName identifies one of the tracked front-end performance metrics.
type MetricName string

const (
	MetricLCP          MetricName = "LCP"
	MetricCLS          MetricName = "CLS"
	MetricFID          MetricName = "FID"
	MetricINP          MetricName = "INP"
	MetricFCP          MetricName = "FCP"
	MetricTTFB         MetricName = "TTFB"
	MetricLongTask     MetricName = "long-task"
	MetricSlowResource MetricName = "slow-resource"
)

// MetricNames lists every metric the pipeline accepts, in reporting order.
var MetricNames = []MetricName{
	MetricLCP,
	MetricCLS,
	MetricFID,
	MetricINP,
	MetricFCP,
	MetricTTFB,
	MetricLongTask,
	MetricSlowResource,
}

// Valid reports whether the metric name is one of the known Web Vitals.
func (m MetricName) Valid() bool {
	switch m {
	case MetricLCP, MetricCLS, MetricFID, MetricINP, MetricFCP, MetricTTFB, MetricLongTask, MetricSlowResource:
		return true
	}
	return false
}

// Rating is the browser-assigned quality bucket for a sample.
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
)

// Sample is one Real User Monitoring measurement emitted by a client browser.
// Samples are immutable once received.
type Sample struct {
	Name      MetricName      `json:"name"`
	Value     float64         `json:"value"`
	Rating    Rating          `json:"rating,omitempty"`
	Delta     float64         `json:"delta,omitempty"`
	ID        string          `json:"id"`
	URL       string          `json:"url,omitempty"`
	Timestamp int64           `json:"timestamp"`
	UserAgent string          `json:"userAgent,omitempty"`
	Geo       json.RawMessage `json:"geo,omitempty"`
	DeployID  string          `json:"deployId,omitempty"`
}
