// Package alerts evaluates day aggregates against fixed and day-over-day
// thresholds and persists the resulting alert batches.
package alerts

import (
	"fmt"
	"math"
	"strconv"

	"github.com/bdougie/vitals/internal/domain"
)

// regressionPercent is the strict day-over-day p75 increase that fires a
// regression alert; exactly this value does not trigger.
const regressionPercent = 20.0

// clsRegressionIncrease is the strict absolute CLS p75 increase that fires
// a cls_regression alert.
const clsRegressionIncrease = 0.05

// Evaluate compares today's aggregate against the fixed thresholds and
// against yesterday's aggregate. It is a pure function of its snapshots:
// either aggregate may be nil, and metrics absent from a snapshot are
// skipped. A bad value in one metric never prevents the others from being
// evaluated.
func Evaluate(today, yesterday *domain.DayAggregate, thresholds domain.AlertThresholds) []domain.Alert {
	var alerts []domain.Alert

	if lcp := today.Metric(domain.MetricLCP); lcp != nil && lcp.P75 > thresholds.LCP {
		alerts = append(alerts, domain.Alert{
			Type:         domain.AlertLCPThreshold,
			Severity:     domain.SeverityHigh,
			Metric:       domain.MetricLCP,
			CurrentValue: lcp.P75,
			Threshold:    thresholds.LCP,
			Message:      fmt.Sprintf("LCP P75 is %.0fms (threshold: %sms)", math.Round(lcp.P75), formatFloat(thresholds.LCP)),
		})
	}
	if cls := today.Metric(domain.MetricCLS); cls != nil && cls.P75 > thresholds.CLS {
		alerts = append(alerts, domain.Alert{
			Type:         domain.AlertCLSThreshold,
			Severity:     domain.SeverityHigh,
			Metric:       domain.MetricCLS,
			CurrentValue: cls.P75,
			Threshold:    thresholds.CLS,
			Message:      fmt.Sprintf("CLS P75 is %.3f (threshold: %s)", cls.P75, formatFloat(thresholds.CLS)),
		})
	}
	if fid := today.Metric(domain.MetricFID); fid != nil && fid.P75 > thresholds.FID {
		alerts = append(alerts, domain.Alert{
			Type:         domain.AlertFIDThreshold,
			Severity:     domain.SeverityMedium,
			Metric:       domain.MetricFID,
			CurrentValue: fid.P75,
			Threshold:    thresholds.FID,
			Message:      fmt.Sprintf("FID P75 is %.0fms (threshold: %sms)", math.Round(fid.P75), formatFloat(thresholds.FID)),
		})
	}
	if inp := today.Metric(domain.MetricINP); inp != nil && inp.P75 > thresholds.INP {
		alerts = append(alerts, domain.Alert{
			Type:         domain.AlertINPThreshold,
			Severity:     domain.SeverityHigh,
			Metric:       domain.MetricINP,
			CurrentValue: inp.P75,
			Threshold:    thresholds.INP,
			Message:      fmt.Sprintf("INP P75 is %.0fms (threshold: %sms)", math.Round(inp.P75), formatFloat(thresholds.INP)),
		})
	}

	for _, metric := range []domain.MetricName{domain.MetricLCP, domain.MetricFID, domain.MetricINP} {
		alert, ok := regressionAlert(metric, today.Metric(metric), yesterday.Metric(metric))
		if ok {
			alerts = append(alerts, alert)
		}
	}
	if alert, ok := clsRegressionAlert(today.Metric(domain.MetricCLS), yesterday.Metric(domain.MetricCLS)); ok {
		alerts = append(alerts, alert)
	}
	return alerts
}

// regressionAlert applies the relative day-over-day check for millisecond
// metrics. A zero or non-finite baseline cannot produce a percentage and is
// treated as no regression.
func regressionAlert(metric domain.MetricName, today, yesterday *domain.MetricAggregate) (domain.Alert, bool) {
	if today == nil || yesterday == nil {
		return domain.Alert{}, false
	}
	if yesterday.P75 == 0 {
		return domain.Alert{}, false
	}
	pct := (today.P75 - yesterday.P75) / yesterday.P75 * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return domain.Alert{}, false
	}
	if pct <= regressionPercent {
		return domain.Alert{}, false
	}
	return domain.Alert{
		Type:            domain.AlertRegression,
		Severity:        domain.SeverityMedium,
		Metric:          metric,
		CurrentValue:    today.P75,
		PreviousValue:   yesterday.P75,
		PercentIncrease: pct,
		Message:         fmt.Sprintf("%s regressed by %.0f%% since yesterday", metric, math.Round(pct)),
	}, true
}

// clsRegressionAlert applies the absolute day-over-day check for CLS, whose
// unitless scores make relative percentages misleading.
func clsRegressionAlert(today, yesterday *domain.MetricAggregate) (domain.Alert, bool) {
	if today == nil || yesterday == nil {
		return domain.Alert{}, false
	}
	increase := today.P75 - yesterday.P75
	if math.IsNaN(increase) || increase <= clsRegressionIncrease {
		return domain.Alert{}, false
	}
	return domain.Alert{
		Type:          domain.AlertCLSRegression,
		Severity:      domain.SeverityMedium,
		Metric:        domain.MetricCLS,
		CurrentValue:  today.P75,
		PreviousValue: yesterday.P75,
		Message:       fmt.Sprintf("CLS increased by %.3f since yesterday", increase),
	}, true
}

// formatFloat renders a configured threshold without trailing zeros, so
// "3000" stays "3000" and "0.15" stays "0.15".
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
