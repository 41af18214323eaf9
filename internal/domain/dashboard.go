package domain

// DashboardSummary is the cross-day rollup shown at the top of the
// performance dashboard. Per-metric averages weight each day's p75 equally
// regardless of that day's traffic volume.
type DashboardSummary struct {
	TotalSessions int     `json:"totalSessions"`
	AvgLCP        float64 `json:"avgLCP"`
	AvgCLS        float64 `json:"avgCLS"`
	AvgFID        float64 `json:"avgFID"`
}

// DashboardView is the read-path payload: recent day buckets plus a small
// window of raw LCP samples for the live view. Days with no data are simply
// absent, never zero-filled.
type DashboardView struct {
	Summary       DashboardSummary `json:"summary"`
	Days          []DayAggregate   `json:"days"`
	RecentSamples []Sample         `json:"recentSamples"`
}
