package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"ai-debate-graph-service/internal/observability/metrics"
)

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.RecordMergerFallback()

	var ready error
	h := Handler(reg, func(context.Context) error { return ready })

	tests := []struct {
		name     string
		path     string
		notReady error
		wantCode int
		wantBody string
	}{
		{"healthz", "/healthz", nil, http.StatusOK, "ok"},
		{"readyz ok", "/readyz", nil, http.StatusOK, "ready"},
		{"readyz down", "/readyz", errors.New("database is closed"), http.StatusServiceUnavailable, "database is closed"},
		{"metrics", "/metrics", nil, http.StatusOK, "ai_debate_graph_segment_merger_fallbacks_total 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready = tt.notReady
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
