package observability

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected body to contain go runtime metrics, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	metricsBody := metricsRR.Body.String()
	if !strings.Contains(metricsBody, "backoffice_http_requests_total{code=\"418\",method=\"GET\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "backoffice_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestMetricsRegistererSharesRegistry(t *testing.T) {
	metrics := NewMetrics()
	jobRuns := prometheus.NewCounter(prometheus.CounterOpts{Name: "backoffice_test_counter_total", Help: "test"})
	metrics.Registerer().MustRegister(jobRuns)
	jobRuns.Inc()

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "backoffice_test_counter_total 1") {
		t.Fatalf("expected custom collector on /metrics, got: %s", rr.Body.String())
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	called := false
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("expected nil metrics middleware to pass through")
	}

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics handler, got %d", rr.Code)
	}
}

func TestObserveBackendCall(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveBackendCall("orders", nil, 120*time.Millisecond)
	metrics.ObserveBackendCall("orders", fmt.Errorf("order 7: %w", shared.ErrNotFound), time.Millisecond)
	metrics.ObserveBackendCall("orders", context.DeadlineExceeded, time.Second)

	if got := testutil.ToFloat64(metrics.backendCalls.WithLabelValues("orders", "ok")); got != 1 {
		t.Fatalf("expected 1 ok call, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.backendCalls.WithLabelValues("orders", "not_found")); got != 1 {
		t.Fatalf("expected 1 not_found call, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.backendCalls.WithLabelValues("orders", "canceled")); got != 1 {
		t.Fatalf("expected 1 canceled call, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveBackendCall("orders", nil, 0)
}
