package repository

import (
	"fmt"

	"github.com/bdougie/vitals/internal/domain"
)

// SampleKey builds the write-once key for a raw sample.
func SampleKey(name domain.MetricName, timestampMs int64, id string) string {
	return fmt.Sprintf("%s-%d-%s", name, timestampMs, id)
}

// AggregateKey builds the key for a day bucket.
func AggregateKey(date string) string {
	return "aggregate-" + date
}

// AlertBatchKey builds the key for one evaluator run's alert batch. The
// write timestamp keeps multiple batches per day from overwriting.
func AlertBatchKey(date string, writeTimestampMs int64) string {
	return fmt.Sprintf("alerts-%s-%d", date, writeTimestampMs)
}
