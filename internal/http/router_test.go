package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bdougie/vitals/internal/domain"
	"github.com/bdougie/vitals/internal/service/ingest"
)

type ingestStub struct {
	received []domain.Sample
	err      error
}

func (s *ingestStub) Ingest(_ context.Context, sample domain.Sample) error {
	if s.err != nil {
		return s.err
	}
	s.received = append(s.received, sample)
	return nil
}

type dashboardStub struct {
	days int
	view *domain.DashboardView
	err  error
}

func (s *dashboardStub) Summarize(_ context.Context, days int) (*domain.DashboardView, error) {
	s.days = days
	if s.err != nil {
		return nil, s.err
	}
	if s.view != nil {
		return s.view, nil
	}
	return &domain.DashboardView{Days: []domain.DayAggregate{}, RecentSamples: []domain.Sample{}}, nil
}

type alertStub struct {
	alerts []domain.Alert
	err    error
	calls  int
}

func (s *alertStub) RunOnce(_ context.Context) ([]domain.Alert, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.alerts, nil
}

func newTestRouter(ingestSvc *ingestStub, dashboardSvc *dashboardStub, alertSvc *alertStub, adminToken string) *Router {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewRouter(log, ingestSvc, dashboardSvc, alertSvc, nil, NewMemoryRateLimiter(), adminToken, nil)
}

func TestPerformanceOptionsPreflight(t *testing.T) {
	router := newTestRouter(&ingestStub{}, &dashboardStub{}, &alertStub{}, "")
	defer router.Close()

	req := httptest.NewRequest(http.MethodOptions, "/api/performance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("expected permissive CORS origin, got %q", origin)
	}
	if methods := rec.Header().Get("Access-Control-Allow-Methods"); methods != "POST, GET, OPTIONS" {
		t.Fatalf("unexpected CORS methods %q", methods)
	}
}

func TestPerformancePostAcceptsSample(t *testing.T) {
	ingestSvc := &ingestStub{}
	router := newTestRouter(ingestSvc, &dashboardStub{}, &alertStub{}, "")
	defer router.Close()

	body := `{"name":"LCP","value":1850.5,"rating":"good","id":"v1-abc","url":"https://example.com/post"}`
	req := httptest.NewRequest(http.MethodPost, "/api/performance", strings.NewReader(body))
	req.Header.Set("User-Agent", "test-browser/1.0")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if success, ok := payload["success"].(bool); !ok || !success {
		t.Fatalf("expected success true, got %v", payload)
	}
	if len(ingestSvc.received) != 1 {
		t.Fatalf("expected one ingested sample, got %d", len(ingestSvc.received))
	}
	sample := ingestSvc.received[0]
	if sample.Name != domain.MetricLCP || sample.Value != 1850.5 {
		t.Fatalf("unexpected sample %+v", sample)
	}
	if sample.UserAgent != "test-browser/1.0" {
		t.Fatalf("expected user agent enrichment, got %q", sample.UserAgent)
	}
}

func TestPerformancePostRequiresNameAndValue(t *testing.T) {
	router := newTestRouter(&ingestStub{}, &dashboardStub{}, &alertStub{}, "")
	defer router.Close()

	for _, body := range []string{`{"value":100}`, `{"name":"LCP"}`, `{not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/performance", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestPerformancePostRejectsUnknownFields(t *testing.T) {
	router := newTestRouter(&ingestStub{}, &dashboardStub{}, &alertStub{}, "")
	defer router.Close()

	body := `{"name":"LCP","value":100,"surprise":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/performance", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestPerformancePostMapsIngestErrors(t *testing.T) {
	router := newTestRouter(&ingestStub{err: ingest.ErrInvalidSample}, &dashboardStub{}, &alertStub{}, "")
	defer router.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/performance", strings.NewReader(`{"name":"NOPE","value":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid sample, got %d", rec.Code)
	}

	router2 := newTestRouter(&ingestStub{err: errors.New("store down")}, &dashboardStub{}, &alertStub{}, "")
	defer router2.Close()

	req = httptest.NewRequest(http.MethodPost, "/api/performance", strings.NewReader(`{"name":"LCP","value":1}`))
	rec = httptest.NewRecorder()
	router2.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for store failure, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if payload["error"] == "" || payload["details"] == "" {
		t.Fatalf("expected error and details fields, got %v", payload)
	}
}

func TestPerformanceGetDefaultsToSevenDays(t *testing.T) {
	dashboardSvc := &dashboardStub{}
	router := newTestRouter(&ingestStub{}, dashboardSvc, &alertStub{}, "")
	defer router.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/performance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if dashboardSvc.days != 7 {
		t.Fatalf("expected default 7 days, got %d", dashboardSvc.days)
	}
}

func TestPerformanceGetParsesDays(t *testing.T) {
	dashboardSvc := &dashboardStub{}
	router := newTestRouter(&ingestStub{}, dashboardSvc, &alertStub{}, "")
	defer router.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/performance?days=30", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if dashboardSvc.days != 30 {
		t.Fatalf("expected 30 days, got %d", dashboardSvc.days)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/performance?days=bogus", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bogus days, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/performance?days=5000", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if dashboardSvc.days != maxDashboardDays {
		t.Fatalf("expected clamp to %d days, got %d", maxDashboardDays, dashboardSvc.days)
	}
}

func TestPerformanceUnsupportedMethod(t *testing.T) {
	router := newTestRouter(&ingestStub{}, &dashboardStub{}, &alertStub{}, "")
	defer router.Close()

	req := httptest.NewRequest(http.MethodDelete, "/api/performance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if payload["error"] != "Method not allowed" {
		t.Fatalf("unexpected error message %q", payload["error"])
	}
}

func TestEvaluateRequiresAdminToken(t *testing.T) {
	alertSvc := &alertStub{}
	router := newTestRouter(&ingestStub{}, &dashboardStub{}, alertSvc, "")
	defer router.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/performance/evaluate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when no token configured, got %d", rec.Code)
	}

	router2 := newTestRouter(&ingestStub{}, &dashboardStub{}, alertSvc, "sekret")
	defer router2.Close()

	req = httptest.NewRequest(http.MethodPost, "/api/performance/evaluate", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	rec = httptest.NewRecorder()
	router2.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", rec.Code)
	}
	if alertSvc.calls != 0 {
		t.Fatalf("expected no evaluation runs, got %d", alertSvc.calls)
	}
}

func TestEvaluateReturnsAlerts(t *testing.T) {
	alertSvc := &alertStub{alerts: []domain.Alert{{
		Type:     domain.AlertLCPThreshold,
		Severity: domain.SeverityHigh,
		Metric:   domain.MetricLCP,
		Message:  "LCP P75 is 3500ms (threshold: 3000ms)",
	}}}
	router := newTestRouter(&ingestStub{}, &dashboardStub{}, alertSvc, "sekret")
	defer router.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/performance/evaluate", nil)
	req.Header.Set("X-Admin-Token", "sekret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Success         bool           `json:"success"`
		AlertsGenerated int            `json:"alertsGenerated"`
		Alerts          []domain.Alert `json:"alerts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !payload.Success || payload.AlertsGenerated != 1 || len(payload.Alerts) != 1 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestEvaluateRejectsGet(t *testing.T) {
	router := newTestRouter(&ingestStub{}, &dashboardStub{}, &alertStub{}, "sekret")
	defer router.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/performance/evaluate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHealthzReportsStoreStatus(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ping := func(context.Context) error { return nil }
	router := NewRouter(log, &ingestStub{}, &dashboardStub{}, &alertStub{}, nil, NewMemoryRateLimiter(), "", ping)
	defer router.Close()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	down := NewRouter(log, &ingestStub{}, &dashboardStub{}, &alertStub{}, nil, NewMemoryRateLimiter(), "", func(context.Context) error {
		return errors.New("store unreachable")
	})
	defer down.Close()

	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when store is down, got %d", rec.Code)
	}
}
