package repository

import (
	"testing"

	"github.com/bdougie/vitals/internal/domain"
)

func TestSampleKey(t *testing.T) {
	key := SampleKey(domain.MetricLCP, 1756600000123, "v1-abc")
	if key != "LCP-1756600000123-v1-abc" {
		t.Fatalf("unexpected sample key %q", key)
	}
}

func TestAggregateKey(t *testing.T) {
	if key := AggregateKey("2026-08-31"); key != "aggregate-2026-08-31" {
		t.Fatalf("unexpected aggregate key %q", key)
	}
}

func TestAlertBatchKey(t *testing.T) {
	key := AlertBatchKey("2026-08-31", 1756600000123)
	if key != "alerts-2026-08-31-1756600000123" {
		t.Fatalf("unexpected alert batch key %q", key)
	}
}
