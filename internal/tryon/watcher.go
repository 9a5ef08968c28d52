package tryon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"server/internal/domain"
)

// WebhookPayload is the completion signal pushed by the provider.
type WebhookPayload struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// errNotReady drives the polling retry loop; it never escapes the watcher.
var errNotReady = errors.New("result not ready")

// HandleWebhook processes one provider push. Unknown task ids and already
// terminal jobs are absorbed silently: the provider retries aggressively on
// anything but a 2xx, so the HTTP layer always answers success and this
// method's error is for logging only.
func (s *Service) HandleWebhook(ctx context.Context, payload WebhookPayload) error {
	taskID := strings.TrimSpace(payload.TaskID)
	if taskID == "" {
		return errors.New("webhook without task id")
	}
	job, err := s.jobs.GetByProviderJobID(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Noise, duplicate or foreign call.
			s.logger.Debug().Str("provider_job_id", taskID).Msg("webhook for unknown job")
			return nil
		}
		return fmt.Errorf("load job for webhook: %w", err)
	}
	if job.Status.Terminal() {
		// Duplicate delivery; the first one already persisted and notified.
		return nil
	}

	if webhookSucceeded(payload.Status) {
		sourceURL := strings.TrimSpace(payload.Output)
		if sourceURL == "" {
			res := s.resolver.Resolve(ctx, job.ProviderJobID)
			if !res.Ready {
				// Success signal without a usable asset yet; the polling
				// loop keeps watching.
				s.logger.Warn().Str("job_id", job.ID).Msg("webhook success but result not resolvable yet")
				return nil
			}
			sourceURL = res.URL
		}
		if err := s.completeJob(ctx, job, sourceURL); err != nil {
			return fmt.Errorf("complete job from webhook: %w", err)
		}
		return nil
	}

	message := strings.TrimSpace(payload.Error)
	if message == "" {
		message = fmt.Sprintf("provider reported status %q", payload.Status)
	}
	s.failJob(ctx, job, message)
	return nil
}

func webhookSucceeded(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "succeeded", "completed", "finished":
		return true
	}
	return false
}

// watch starts the polling worker for a submitted job.
func (s *Service) watch(jobID, providerJobID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.poll(s.baseCtx, jobID, providerJobID)
	}()
}

// poll drives the pull half of completion tracking: a timer-driven loop with
// a hard attempt budget. It stops as soon as the job is terminal, whether it
// got there through this loop or through the webhook racing in. Exhausting
// the budget fails the job with a timeout error.
func (s *Service) poll(ctx context.Context, jobID, providerJobID string) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.PollInterval), uint64(s.cfg.PollMaxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		job, err := s.jobs.GetByID(ctx, jobID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		if job.Status.Terminal() {
			return nil
		}
		res := s.resolver.Resolve(ctx, providerJobID)
		if !res.Ready {
			return errNotReady
		}
		// A store hiccup during the transition is retried on the same
		// budget as a not-ready result.
		return s.completeJob(ctx, job, res.URL)
	}, policy)
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		// Process shutdown, not a verdict on the job.
		return
	}
	s.logger.Info().Str("job_id", jobID).Int("attempts", s.cfg.PollMaxAttempts).Msg("polling budget exhausted")
	job, getErr := s.jobs.GetByID(ctx, jobID)
	if getErr != nil {
		s.logger.Error().Err(getErr).Str("job_id", jobID).Msg("load job after polling budget")
		return
	}
	s.failJob(ctx, job, domain.ErrResolveTimeout.Error())
}
