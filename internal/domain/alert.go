package domain

// AlertType classifies why an alert fired.
type AlertType string

const (
	AlertLCPThreshold  AlertType = "lcp_threshold"
	AlertCLSThreshold  AlertType = "cls_threshold"
	AlertFIDThreshold  AlertType = "fid_threshold"
	AlertINPThreshold  AlertType = "inp_threshold"
	AlertRegression    AlertType = "regression"
	AlertCLSRegression AlertType = "cls_regression"
)

// Severity ranks how urgently an alert should be acted on.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AlertThresholds holds the fixed ceilings the evaluator compares day
// aggregates against. Values are immutable after load.
// ConsecutiveFailures is part of the configuration contract but is not
// consulted by the current evaluator logic.
type AlertThresholds struct {
	LCP                 float64 `json:"lcp"`
	CLS                 float64 `json:"cls"`
	FID                 float64 `json:"fid"`
	INP                 float64 `json:"inp"`
	ConsecutiveFailures int     `json:"consecutiveFailures"`
}

// DefaultThresholds returns the stock alerting ceilings: LCP 3000ms,
// CLS 0.15, FID 200ms, INP 300ms.
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		LCP:                 3000,
		CLS:                 0.15,
		FID:                 200,
		INP:                 300,
		ConsecutiveFailures: 3,
	}
}

// Alert is one actionable finding produced by an evaluator run. Immutable.
type Alert struct {
	Type            AlertType  `json:"type"`
	Severity        Severity   `json:"severity"`
	Metric          MetricName `json:"metric"`
	CurrentValue    float64    `json:"currentValue"`
	Threshold       float64    `json:"threshold,omitempty"`
	PreviousValue   float64    `json:"previousValue,omitempty"`
	PercentIncrease float64    `json:"percentIncrease,omitempty"`
	Message         string     `json:"message"`
}

// AlertBatch groups every alert produced by a single evaluator run. A batch
// is only written when it contains at least one alert.
type AlertBatch struct {
	ID            string  `json:"id"`
	Timestamp     int64   `json:"timestamp"`
	Date          string  `json:"date"`
	Alerts        []Alert `json:"alerts"`
	DeployID      string  `json:"deployId,omitempty"`
	DeployContext string  `json:"deployContext,omitempty"`
}
