// Package httpx wires the telemetry pipeline to its HTTP boundary.
package httpx

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bdougie/vitals/internal/domain"
	"github.com/bdougie/vitals/internal/service/ingest"
	"github.com/bdougie/vitals/internal/ws"
)

// IngestService accepts one validated sample.
type IngestService interface {
	Ingest(ctx context.Context, sample domain.Sample) error
}

// DashboardService assembles the read-path view.
type DashboardService interface {
	Summarize(ctx context.Context, days int) (*domain.DashboardView, error)
}

// AlertService runs one evaluation cycle.
type AlertService interface {
	RunOnce(ctx context.Context) ([]domain.Alert, error)
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitIngest    = 240
	rateLimitDashboard = 60
	rateLimitEvaluate  = 10
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second

	defaultDashboardDays = 7
	maxDashboardDays     = 90
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	ingest     IngestService
	dashboard  DashboardService
	alerts     AlertService
	hub        *ws.Hub
	upgrader   websocket.Upgrader
	limiter    RateLimiter
	adminToken string
	storePing  func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	samplesIngested    *prometheus.CounterVec
	alertsGenerated    *prometheus.CounterVec
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, ingestSvc IngestService, dashboardSvc DashboardService, alertSvc AlertService, hub *ws.Hub, limiter RateLimiter, adminToken string, storePing func(context.Context) error) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		ingest:    ingestSvc,
		dashboard: dashboardSvc,
		alerts:    alertSvc,
		hub:       hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:    limiter,
		adminToken: strings.TrimSpace(adminToken),
		storePing:  storePing,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/api/performance", r.audit(r.withRateLimit("performance", rateLimitIngest, rateWindowDefault, r.handlePerformance)))
	r.mux.HandleFunc("/api/performance/evaluate", r.audit(r.withRateLimit("evaluate", rateLimitEvaluate, rateWindowDefault, r.handleEvaluate)))
	r.mux.HandleFunc("/ws/performance", r.audit(r.withRateLimit("performance_ws", rateLimitWebsocket, rateWindowRealtime, r.handleLiveWS)))
}

func (r *Router) handlePerformance(w http.ResponseWriter, req *http.Request) {
	setCORSHeaders(w)
	switch req.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodPost:
		r.handleIngest(w, req)
	case http.MethodGet:
		r.handleDashboard(w, req)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleIngest(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Name      string          `json:"name"`
		Value     *float64        `json:"value"`
		Rating    string          `json:"rating"`
		Delta     float64         `json:"delta"`
		ID        string          `json:"id"`
		URL       string          `json:"url"`
		Timestamp int64           `json:"timestamp"`
		UserAgent string          `json:"userAgent"`
		Geo       json.RawMessage `json:"geo"`
	}
	decoder := json.NewDecoder(req.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if payload.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	sample := domain.Sample{
		Name:      domain.MetricName(payload.Name),
		Value:     *payload.Value,
		Rating:    domain.Rating(payload.Rating),
		Delta:     payload.Delta,
		ID:        payload.ID,
		URL:       payload.URL,
		UserAgent: req.Header.Get("User-Agent"),
		Geo:       payload.Geo,
	}
	if sample.URL == "" {
		sample.URL = req.Referer()
	}

	if err := r.ingest.Ingest(req.Context(), sample); err != nil {
		if errors.Is(err, ingest.ErrInvalidSample) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to store performance data", err.Error())
		return
	}
	r.recordSampleIngested(payload.Name)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) {
	days := defaultDashboardDays
	if raw := strings.TrimSpace(req.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}
	if days > maxDashboardDays {
		days = maxDashboardDays
	}

	view, err := r.dashboard.Summarize(req.Context(), days)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to load performance data", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (r *Router) handleEvaluate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if !r.verifyAdminToken(w, req) {
		return
	}

	alerts, err := r.alerts.RunOnce(req.Context())
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to evaluate performance alerts", err.Error())
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	for _, alert := range alerts {
		r.recordAlertsGenerated(string(alert.Type))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"alertsGenerated": len(alerts),
		"alerts":          alerts,
	})
}

func (r *Router) handleLiveWS(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "live feed disabled")
		return
	}
	topic := strings.TrimSpace(req.URL.Query().Get("metric"))
	if topic == "" {
		topic = ws.TopicAll
	}
	if topic != ws.TopicAll && !domain.MetricName(topic).Valid() {
		writeError(w, http.StatusBadRequest, "unknown metric")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(topic, client)

	go func() {
		defer func() {
			r.hub.Unregister(topic, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.storePing != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.storePing(ctx); err != nil {
			status = "degraded"
			components["store"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["store"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// verifyAdminToken guards the manual evaluation trigger.
func (r *Router) verifyAdminToken(w http.ResponseWriter, req *http.Request) bool {
	expected := r.adminToken
	if expected == "" {
		r.logger.Error("admin token not configured", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "evaluation trigger misconfigured")
		return false
	}
	token := strings.TrimSpace(req.Header.Get("X-Admin-Token"))
	if len(token) != len(expected) || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		r.logger.Warn("admin token mismatch", "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "invalid admin token")
		return false
	}
	return true
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func setCORSHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Access-Control-Allow-Origin", "*")
	headers.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	headers.Set("Access-Control-Allow-Headers", "Content-Type")
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
		r.recordRequestMetrics(req.Method, req.URL.Path, status, duration)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
