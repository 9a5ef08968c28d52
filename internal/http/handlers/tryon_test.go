package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

func postJSON(t *testing.T, handler http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return payload
}

func TestSubmitJobAccepted(t *testing.T) {
	h := newAppHarness(t, 3)

	body := `{"human_image":"` + h.assets + `/human.jpg","garment_image":"` + h.assets + `/garment.jpg","category":"upper_body"}`
	rec := postJSON(t, h.app.SubmitJob, "/v1/tryon/jobs", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}

	payload := decodeBody(t, rec)
	if payload["job_id"] == "" {
		t.Fatalf("job_id missing: %v", payload)
	}
	if payload["status"] != "submitted" {
		t.Fatalf("status = %v, want submitted", payload["status"])
	}
	if payload["remaining_quota"] != float64(2) {
		t.Fatalf("remaining_quota = %v, want 2", payload["remaining_quota"])
	}

	events := h.sql.events()
	if len(events) != 1 || events[0] != "tryon_submit" {
		t.Fatalf("usage events = %v, want [tryon_submit]", events)
	}
}

func TestSubmitJobRejectsInvalidPayload(t *testing.T) {
	h := newAppHarness(t, 1)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"human_image":`},
		{"bad category", `{"human_image":"` + h.assets + `/h.jpg","garment_image":"` + h.assets + `/g.jpg","category":"full_body"}`},
		{"relative url", `{"human_image":"/h.jpg","garment_image":"` + h.assets + `/g.jpg","category":"upper_body"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.app.SubmitJob, "/v1/tryon/jobs", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if payload := decodeBody(t, rec); payload["error"] != "bad_request" {
				t.Fatalf("error slug = %v, want bad_request", payload["error"])
			}
		})
	}
}

func TestSubmitJobQuotaExceeded(t *testing.T) {
	h := newAppHarness(t, 0)

	body := `{"human_image":"` + h.assets + `/h.jpg","garment_image":"` + h.assets + `/g.jpg","category":"upper_body"}`
	rec := postJSON(t, h.app.SubmitJob, "/v1/tryon/jobs", body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (body %s)", rec.Code, rec.Body.String())
	}
	if payload := decodeBody(t, rec); payload["error"] != "quota_exceeded" {
		t.Fatalf("error slug = %v, want quota_exceeded", payload["error"])
	}

	events := h.sql.events()
	if len(events) != 1 || events[0] != "tryon_quota_denied" {
		t.Fatalf("usage events = %v, want [tryon_quota_denied]", events)
	}
}

func TestSubmitJobChargesQuotaPerTenant(t *testing.T) {
	h := newAppHarness(t, 1)

	body := `{"human_image":"` + h.assets + `/h.jpg","garment_image":"` + h.assets + `/g.jpg","category":"lower_body"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tryon/jobs", strings.NewReader(body))
	req.Header.Set("X-Tenant-ID", "tenant-b")
	rec := httptest.NewRecorder()
	h.app.SubmitJob(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}

	payload := decodeBody(t, rec)
	job, err := h.jobs.GetByID(context.Background(), payload["job_id"].(string))
	if err != nil {
		t.Fatalf("job not created: %v", err)
	}
	if job.OwnerScope != "tenant-b" {
		t.Fatalf("owner scope = %q, want tenant-b", job.OwnerScope)
	}
}

func statusRequest(jobID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/tryon/jobs/"+jobID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("job_id", jobID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestJobStatusNotFound(t *testing.T) {
	h := newAppHarness(t, 1)

	rec := httptest.NewRecorder()
	h.app.JobStatus(rec, statusRequest("missing"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestJobStatusCompletedWithDurableResult(t *testing.T) {
	h := newAppHarness(t, 1)
	h.jobs.seed(domain.Job{
		ID:        "job-1",
		Status:    domain.JobStatusCompleted,
		ResultURL: "https://cdn.example.com/results/job-1.png",
	})

	rec := httptest.NewRecorder()
	h.app.JobStatus(rec, statusRequest("job-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["result_url"] != "https://cdn.example.com/results/job-1.png" {
		t.Fatalf("result_url = %v", payload["result_url"])
	}
	if _, ok := payload["used_fallback"]; ok {
		t.Fatalf("used_fallback should be omitted for durable results: %v", payload)
	}
}

func TestJobStatusCompletedWithFallbackResult(t *testing.T) {
	h := newAppHarness(t, 1)
	h.jobs.seed(domain.Job{
		ID:                "job-2",
		Status:            domain.JobStatusCompleted,
		OriginFallbackURL: "https://files.example.com/prov-2.undefined",
	})

	rec := httptest.NewRecorder()
	h.app.JobStatus(rec, statusRequest("job-2"))
	payload := decodeBody(t, rec)
	if payload["result_url"] != "https://files.example.com/prov-2.undefined" {
		t.Fatalf("result_url = %v", payload["result_url"])
	}
	if payload["used_fallback"] != true {
		t.Fatalf("used_fallback = %v, want true", payload["used_fallback"])
	}
}

func TestJobStatusFailedCarriesError(t *testing.T) {
	h := newAppHarness(t, 1)
	h.jobs.seed(domain.Job{
		ID:           "job-3",
		Status:       domain.JobStatusFailed,
		ErrorMessage: "provider reported status \"error\"",
	})

	rec := httptest.NewRecorder()
	h.app.JobStatus(rec, statusRequest("job-3"))
	payload := decodeBody(t, rec)
	if payload["status"] != "failed" {
		t.Fatalf("status = %v, want failed", payload["status"])
	}
	if payload["error"] == "" {
		t.Fatalf("error message missing: %v", payload)
	}
	if _, ok := payload["result_url"]; ok {
		t.Fatalf("failed job must not expose a result url: %v", payload)
	}
}

func TestWebhookAlwaysAnswersOK(t *testing.T) {
	h := newAppHarness(t, 1)
	h.jobs.seed(domain.Job{
		ID:            "job-1",
		ProviderJobID: "prov-1",
		Status:        domain.JobStatusSubmitted,
	})

	cases := []struct {
		name string
		body string
	}{
		{"valid completion", `{"task_id":"prov-1","status":"success","output":"https://files.example.com/prov-1.png"}`},
		{"unknown task", `{"task_id":"prov-unknown","status":"success"}`},
		{"missing task id", `{"status":"success"}`},
		{"malformed json", `{"task_id":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.app.Webhook, "/v1/tryon/webhook", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if payload := decodeBody(t, rec); payload["received"] != true {
				t.Fatalf("body = %v, want received ack", payload)
			}
		})
	}

	job, _ := h.jobs.GetByID(context.Background(), "job-1")
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("valid completion was not applied: status = %s", job.Status)
	}
}
