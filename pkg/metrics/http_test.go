package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsLabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	api := NewHTTPMetrics(reg)
	api.Observe(http.MethodPost, "/api/v1/orders/{orderId}/cancel", http.StatusOK, 20*time.Millisecond)
	api.Observe(http.MethodPost, "/api/v1/orders/{orderId}/cancel", http.StatusConflict, 5*time.Millisecond)
	api.Observe(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "orderflow_http_requests_total", "status", "409"); err != nil {
		t.Fatalf("fetch conflict: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one 409, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "orderflow_http_requests_total", "route", "unmatched"); err != nil {
		t.Fatalf("fetch unmatched: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one unmatched request, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "orderflow_http_request_duration_seconds", "route", "/api/v1/orders/{orderId}/cancel"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got < 0.025 {
		t.Fatalf("expected summed latency of both cancels, got %f", got)
	}
}

func TestNilHTTPMetricsAreSafe(t *testing.T) {
	var api *HTTPMetrics
	api.Observe(http.MethodGet, "/health/live", http.StatusOK, time.Millisecond)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/health/live", http.StatusOK, time.Millisecond)
}
