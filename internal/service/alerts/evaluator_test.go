package alerts

import (
	"testing"

	"github.com/bdougie/vitals/internal/domain"
)

func dayWith(metrics map[domain.MetricName]float64) *domain.DayAggregate {
	day := domain.NewDayAggregate("2026-08-31")
	for name, p75 := range metrics {
		day.Metrics[name] = &domain.MetricAggregate{P75: p75}
	}
	return day
}

func TestEvaluateNoSnapshots(t *testing.T) {
	alerts := Evaluate(nil, nil, domain.DefaultThresholds())
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(alerts))
	}
}

func TestEvaluateLCPThreshold(t *testing.T) {
	today := dayWith(map[domain.MetricName]float64{domain.MetricLCP: 3500})

	alerts := Evaluate(today, nil, domain.DefaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	alert := alerts[0]
	if alert.Type != domain.AlertLCPThreshold {
		t.Fatalf("expected lcp_threshold, got %s", alert.Type)
	}
	if alert.Severity != domain.SeverityHigh {
		t.Fatalf("expected high severity, got %s", alert.Severity)
	}
	if alert.Metric != domain.MetricLCP {
		t.Fatalf("expected LCP metric, got %s", alert.Metric)
	}
	if want := "LCP P75 is 3500ms (threshold: 3000ms)"; alert.Message != want {
		t.Fatalf("unexpected message %q, want %q", alert.Message, want)
	}
}

func TestEvaluateLCPAtThresholdDoesNotFire(t *testing.T) {
	today := dayWith(map[domain.MetricName]float64{domain.MetricLCP: 3000})
	if alerts := Evaluate(today, nil, domain.DefaultThresholds()); len(alerts) != 0 {
		t.Fatalf("expected no alerts at exactly the threshold, got %d", len(alerts))
	}
}

func TestEvaluateFIDSeverityMedium(t *testing.T) {
	today := dayWith(map[domain.MetricName]float64{domain.MetricFID: 250})

	alerts := Evaluate(today, nil, domain.DefaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts))
	}
	if alerts[0].Type != domain.AlertFIDThreshold {
		t.Fatalf("expected fid_threshold, got %s", alerts[0].Type)
	}
	if alerts[0].Severity != domain.SeverityMedium {
		t.Fatalf("expected medium severity, got %s", alerts[0].Severity)
	}
	if want := "FID P75 is 250ms (threshold: 200ms)"; alerts[0].Message != want {
		t.Fatalf("unexpected message %q", alerts[0].Message)
	}
}

func TestEvaluateRegressionBoundary(t *testing.T) {
	yesterday := dayWith(map[domain.MetricName]float64{domain.MetricLCP: 2000})

	// Exactly +20% must not trigger; the check is strictly greater-than.
	today := dayWith(map[domain.MetricName]float64{domain.MetricLCP: 2400})
	if alerts := Evaluate(today, yesterday, domain.DefaultThresholds()); len(alerts) != 0 {
		t.Fatalf("expected no alerts at exactly 20%%, got %d", len(alerts))
	}

	today = dayWith(map[domain.MetricName]float64{domain.MetricLCP: 2400.01})
	alerts := Evaluate(today, yesterday, domain.DefaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("expected one regression alert just past 20%%, got %d", len(alerts))
	}
	if alerts[0].Type != domain.AlertRegression {
		t.Fatalf("expected regression, got %s", alerts[0].Type)
	}
	if alerts[0].PreviousValue != 2000 {
		t.Fatalf("expected previous value 2000, got %v", alerts[0].PreviousValue)
	}
}

func TestEvaluateRegressionMessage(t *testing.T) {
	yesterday := dayWith(map[domain.MetricName]float64{domain.MetricINP: 200})
	today := dayWith(map[domain.MetricName]float64{domain.MetricINP: 260})

	alerts := Evaluate(today, yesterday, domain.DefaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts))
	}
	if want := "INP regressed by 30% since yesterday"; alerts[0].Message != want {
		t.Fatalf("unexpected message %q, want %q", alerts[0].Message, want)
	}
	if alerts[0].Severity != domain.SeverityMedium {
		t.Fatalf("expected medium severity, got %s", alerts[0].Severity)
	}
}

func TestEvaluateCLSThresholdAndRegressionTogether(t *testing.T) {
	today := dayWith(map[domain.MetricName]float64{domain.MetricCLS: 0.20})
	yesterday := dayWith(map[domain.MetricName]float64{domain.MetricCLS: 0.10})

	alerts := Evaluate(today, yesterday, domain.DefaultThresholds())
	if len(alerts) != 2 {
		t.Fatalf("expected threshold and regression alerts, got %d", len(alerts))
	}

	byType := make(map[domain.AlertType]domain.Alert, len(alerts))
	for _, alert := range alerts {
		byType[alert.Type] = alert
	}
	threshold, ok := byType[domain.AlertCLSThreshold]
	if !ok {
		t.Fatalf("missing cls_threshold alert: %+v", alerts)
	}
	if want := "CLS P75 is 0.200 (threshold: 0.15)"; threshold.Message != want {
		t.Fatalf("unexpected threshold message %q", threshold.Message)
	}
	regression, ok := byType[domain.AlertCLSRegression]
	if !ok {
		t.Fatalf("missing cls_regression alert: %+v", alerts)
	}
	if want := "CLS increased by 0.100 since yesterday"; regression.Message != want {
		t.Fatalf("unexpected regression message %q", regression.Message)
	}
}

func TestEvaluateZeroBaselineSkipsRegression(t *testing.T) {
	today := dayWith(map[domain.MetricName]float64{domain.MetricLCP: 2500})
	yesterday := dayWith(map[domain.MetricName]float64{domain.MetricLCP: 0})

	if alerts := Evaluate(today, yesterday, domain.DefaultThresholds()); len(alerts) != 0 {
		t.Fatalf("expected zero baseline to be skipped, got %d alerts", len(alerts))
	}
}

func TestEvaluateBadMetricDoesNotBlockOthers(t *testing.T) {
	today := dayWith(map[domain.MetricName]float64{
		domain.MetricLCP: 3500,
		domain.MetricFID: 1000,
	})
	yesterday := dayWith(map[domain.MetricName]float64{
		domain.MetricFID: 0, // no usable baseline
		domain.MetricLCP: 2000,
	})

	alerts := Evaluate(today, yesterday, domain.DefaultThresholds())
	types := make(map[domain.AlertType]bool)
	for _, alert := range alerts {
		types[alert.Type] = true
	}
	if !types[domain.AlertLCPThreshold] || !types[domain.AlertFIDThreshold] || !types[domain.AlertRegression] {
		t.Fatalf("expected lcp_threshold, fid_threshold, and LCP regression alerts, got %+v", alerts)
	}
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}
}
