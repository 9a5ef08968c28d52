package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/tryon"
)

type submitJobRequest struct {
	HumanImage   string `json:"human_image"`
	GarmentImage string `json:"garment_image"`
	Category     string `json:"category"`
	Description  string `json:"description,omitempty"`
}

type submitJobResponse struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	RemainingQuota int    `json:"remaining_quota"`
}

type jobStatusResponse struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	ResultURL    string `json:"result_url,omitempty"`
	UsedFallback bool   `json:"used_fallback,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SubmitJob accepts a try-on request and answers as soon as the provider has
// acknowledged the submission; completion arrives later via webhook or
// polling.
func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	scope := ownerScope(r)

	job, remaining, err := a.TryOn.Submit(r.Context(), tryon.SubmitInput{
		OwnerScope:      scope,
		HumanImageURL:   req.HumanImage,
		GarmentImageURL: req.GarmentImage,
		Category:        domain.JobCategory(req.Category),
		Description:     req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		case errors.Is(err, domain.ErrAssetUnreachable):
			a.error(w, http.StatusUnprocessableEntity, "asset_unreachable", err.Error())
		case errors.Is(err, domain.ErrQuotaExceeded):
			a.recordUsage(r.Context(), scope, "tryon_quota_denied", false, nil)
			a.error(w, http.StatusForbidden, "quota_exceeded", "usage quota exceeded")
		case errors.Is(err, domain.ErrProviderFailure):
			a.recordUsage(r.Context(), scope, "tryon_submit", false, map[string]any{"reason": "provider"})
			a.error(w, http.StatusBadGateway, "provider_error", "provider submission failed")
		default:
			a.error(w, http.StatusInternalServerError, "internal", "failed to submit job")
		}
		return
	}

	a.recordUsage(r.Context(), scope, "tryon_submit", true, map[string]any{"job_id": job.ID})
	a.json(w, http.StatusAccepted, submitJobResponse{
		JobID:          job.ID,
		Status:         string(job.Status),
		RemainingQuota: remaining,
	})
}

// JobStatus reports the current state of a job. Safe to poll repeatedly.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.TryOn.GetStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	resp := jobStatusResponse{JobID: job.ID, Status: string(job.Status)}
	switch job.Status {
	case domain.JobStatusCompleted:
		resp.ResultURL = job.DeliverableURL()
		resp.UsedFallback = job.OriginFallbackURL != ""
	case domain.JobStatusFailed:
		resp.Error = job.ErrorMessage
	}
	a.json(w, http.StatusOK, resp)
}

// Webhook receives the provider's completion push. It always answers 2xx:
// a non-success response triggers the provider's retry storm, and polling
// covers anything this delivery failed to apply.
func (a *App) Webhook(w http.ResponseWriter, r *http.Request) {
	var payload tryon.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.Logger.Warn().Err(err).Msg("webhook: undecodable payload")
		a.json(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	if err := a.TryOn.HandleWebhook(r.Context(), payload); err != nil {
		a.Logger.Error().Err(err).Str("provider_job_id", payload.TaskID).Msg("webhook handling failed")
	}
	a.json(w, http.StatusOK, map[string]bool{"received": true})
}
