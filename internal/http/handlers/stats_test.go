package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUsageSummary(t *testing.T) {
	h := newAppHarness(t, 1)
	h.sql.row = simpleRow{scan: func(dest ...any) error {
		values := []int{12, 3, 5, 7}
		for i, d := range dest {
			*(d.(*int)) = values[i]
		}
		return nil
	}}

	rec := httptest.NewRecorder()
	h.app.UsageSummary(rec, httptest.NewRequest(http.MethodGet, "/v1/metrics/usage-24h", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["submitted"] != float64(12) || payload["submit_failed"] != float64(3) ||
		payload["quota_denied"] != float64(5) || payload["completed"] != float64(7) {
		t.Fatalf("payload = %v", payload)
	}
}

func TestUsageSummaryWithoutStore(t *testing.T) {
	h := newAppHarness(t, 1)
	h.app.SQL = nil

	rec := httptest.NewRecorder()
	h.app.UsageSummary(rec, httptest.NewRequest(http.MethodGet, "/v1/metrics/usage-24h", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
