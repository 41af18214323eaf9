package httpx

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitals",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		r.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vitals",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})

		r.rateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitals",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route", "key"})

		r.samplesIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitals",
			Subsystem: "pipeline",
			Name:      "samples_ingested_total",
			Help:      "Accepted RUM samples by metric name",
		}, []string{"metric"})

		r.alertsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitals",
			Subsystem: "pipeline",
			Name:      "alerts_generated_total",
			Help:      "Alerts produced by evaluator runs, by alert type",
		}, []string{"type"})

		collectors := []prometheus.Collector{r.requestTotal, r.requestLatency, r.rateLimitHits, r.samplesIngested, r.alertsGenerated}
		for _, collector := range collectors {
			if err := prometheus.Register(collector); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					switch v := are.ExistingCollector.(type) {
					case *prometheus.CounterVec:
						switch collector {
						case r.requestTotal:
							r.requestTotal = v
						case r.rateLimitHits:
							r.rateLimitHits = v
						case r.samplesIngested:
							r.samplesIngested = v
						case r.alertsGenerated:
							r.alertsGenerated = v
						}
					case *prometheus.HistogramVec:
						r.requestLatency = v
					}
				}
			}
		}
		r.metricsInitialized = true
	})
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}

func (r *Router) recordSampleIngested(metric string) {
	if !r.metricsInitialized {
		return
	}
	r.samplesIngested.With(prometheus.Labels{"metric": metric}).Inc()
}

func (r *Router) recordAlertsGenerated(alertType string) {
	if !r.metricsInitialized {
		return
	}
	r.alertsGenerated.With(prometheus.Labels{"type": alertType}).Inc()
}
