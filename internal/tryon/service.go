package tryon

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	provider "server/internal/providers/tryon"
)

// TaskSubmitter is the slice of the provider client the service needs.
type TaskSubmitter interface {
	CreateTask(ctx context.Context, task provider.Task) (string, error)
}

// Resolver classifies readiness of a provider job's result.
type Resolver interface {
	Resolve(ctx context.Context, providerJobID string) Resolution
}

// Persister re-hosts an ephemeral result, falling back to the source URL.
type Persister interface {
	Persist(ctx context.Context, jobID, sourceURL string) (durableURL string, usedFallback bool)
}

// ServiceConfig carries the orchestration knobs.
type ServiceConfig struct {
	// PublicBaseURL is where the provider reaches this service's webhook.
	PublicBaseURL string
	// PollInterval is the delay between polling attempts for one job.
	PollInterval time.Duration
	// PollMaxAttempts is the hard attempt budget per job before it fails
	// with a timeout error.
	PollMaxAttempts int
}

// Service orchestrates try-on jobs: it gates quota, prechecks source assets,
// submits to the provider, and drives each job to a terminal state through
// the racing webhook and polling channels. The job repository is the single
// point of truth; every transition goes through it.
type Service struct {
	cfg       ServiceConfig
	jobs      domain.JobRepository
	quotas    domain.QuotaRepository
	submitter TaskSubmitter
	precheck  *AssetPrecheck
	resolver  Resolver
	persister Persister
	notifier  Notifier
	logger    zerolog.Logger

	// baseCtx bounds the lifetime of polling goroutines; wg lets the host
	// drain them on shutdown.
	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewService wires the orchestration core. baseCtx should be the process
// lifetime context; cancelling it stops all polling loops.
func NewService(
	baseCtx context.Context,
	cfg ServiceConfig,
	jobs domain.JobRepository,
	quotas domain.QuotaRepository,
	submitter TaskSubmitter,
	precheck *AssetPrecheck,
	resolver Resolver,
	persister Persister,
	notifier Notifier,
	logger zerolog.Logger,
) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = 30
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &Service{
		cfg:       cfg,
		jobs:      jobs,
		quotas:    quotas,
		submitter: submitter,
		precheck:  precheck,
		resolver:  resolver,
		persister: persister,
		notifier:  notifier,
		logger:    logger.With().Str("component", "tryon").Logger(),
		baseCtx:   baseCtx,
	}
}

// SubmitInput is the validated surface of a try-on request.
type SubmitInput struct {
	OwnerScope      string
	HumanImageURL   string
	GarmentImageURL string
	Category        domain.JobCategory
	Description     string
}

// Submit runs the synchronous half of the job lifecycle: validation, asset
// precheck, quota reservation, pending-record creation, provider submission
// and the pending->submitted transition. On success the polling worker for
// the job is already running.
//
// The pending record is persisted before the provider call, so a crash
// between call and response leaves a recoverable trace. A reservation is not
// refunded when the provider call fails; submission attempts consume the
// tenant allowance.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*domain.Job, int, error) {
	if err := validateInput(input); err != nil {
		return nil, 0, err
	}
	if err := s.precheck.Check(ctx, input.HumanImageURL, input.GarmentImageURL); err != nil {
		return nil, 0, err
	}

	remaining, ok, err := s.quotas.TryReserve(ctx, input.OwnerScope)
	if err != nil {
		return nil, 0, fmt.Errorf("reserve quota: %w", err)
	}
	if !ok {
		return nil, 0, fmt.Errorf("%w: scope %s", domain.ErrQuotaExceeded, input.OwnerScope)
	}

	job := &domain.Job{
		ID:              uuid.NewString(),
		Status:          domain.JobStatusPending,
		OwnerScope:      input.OwnerScope,
		HumanImageURL:   input.HumanImageURL,
		GarmentImageURL: input.GarmentImageURL,
		Category:        input.Category,
		Description:     input.Description,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, remaining, fmt.Errorf("create job: %w", err)
	}

	providerJobID, err := s.submitter.CreateTask(ctx, provider.Task{
		HumanImageURL:   input.HumanImageURL,
		GarmentImageURL: input.GarmentImageURL,
		Category:        string(input.Category),
		Description:     input.Description,
		WebhookURL:      s.webhookURL(job.ID),
	})
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("provider submission: %v", err))
		return nil, remaining, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	if err := s.jobs.MarkSubmitted(ctx, job.ID, providerJobID); err != nil {
		s.failJob(ctx, job, fmt.Sprintf("record submission: %v", err))
		return nil, remaining, fmt.Errorf("mark submitted: %w", err)
	}
	job.Status = domain.JobStatusSubmitted
	job.ProviderJobID = providerJobID
	s.logger.Info().Str("job_id", job.ID).Str("provider_job_id", providerJobID).Msg("job submitted")

	s.watch(job.ID, providerJobID)
	return job, remaining, nil
}

// GetStatus returns the current job state. For a submitted job this runs one
// resolver pass as a side effect, which may complete the job when the
// webhook never arrived.
func (s *Service) GetStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusSubmitted || job.ProviderJobID == "" {
		return job, nil
	}
	if res := s.resolver.Resolve(ctx, job.ProviderJobID); res.Ready {
		if err := s.completeJob(ctx, job, res.URL); err != nil {
			return job, nil
		}
		return s.jobs.GetByID(ctx, jobID)
	}
	return job, nil
}

// webhookURL builds the provider callback address, embedding the job id.
func (s *Service) webhookURL(jobID string) string {
	return fmt.Sprintf("%s/v1/tryon/webhook?job=%s", strings.TrimRight(s.cfg.PublicBaseURL, "/"), jobID)
}

// failJob records a failure transition and notifies when it won the race.
func (s *Service) failJob(ctx context.Context, job *domain.Job, message string) {
	won, err := s.jobs.MarkTerminal(ctx, job.ID, domain.JobStatusFailed, domain.TerminalUpdate{ErrorMessage: message})
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("failure transition error")
		return
	}
	if won {
		s.notifier.Notify(ctx, JobEvent{
			JobID:      job.ID,
			OwnerScope: job.OwnerScope,
			Status:     domain.JobStatusFailed,
			Error:      message,
		})
	}
}

// completeJob persists the artifact and performs the guarded completed
// transition. A non-nil return means the transition could not be recorded
// and the caller may retry. The terminal re-read keeps racing success
// signals from both re-hosting the same artifact; MarkTerminal remains the
// authoritative guard when the race lands between the read and the update.
func (s *Service) completeJob(ctx context.Context, job *domain.Job, sourceURL string) error {
	if current, err := s.jobs.GetByID(ctx, job.ID); err == nil && current.Status.Terminal() {
		return nil
	}
	durableURL, usedFallback := s.persister.Persist(ctx, job.ID, sourceURL)
	update := domain.TerminalUpdate{ResultURL: durableURL}
	if usedFallback {
		// Never record an ephemeral URL as the durable result.
		update = domain.TerminalUpdate{OriginFallbackURL: sourceURL}
	}
	won, err := s.jobs.MarkTerminal(ctx, job.ID, domain.JobStatusCompleted, update)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("completed transition error")
		return fmt.Errorf("mark completed: %w", err)
	}
	if !won {
		return nil
	}
	s.notifier.Notify(ctx, JobEvent{
		JobID:        job.ID,
		OwnerScope:   job.OwnerScope,
		Status:       domain.JobStatusCompleted,
		ResultURL:    durableURL,
		UsedFallback: usedFallback,
	})
	return nil
}

// Wait blocks until all polling goroutines have drained. Intended for
// shutdown after the base context is cancelled.
func (s *Service) Wait() {
	s.wg.Wait()
}

func validateInput(input SubmitInput) error {
	if strings.TrimSpace(input.OwnerScope) == "" {
		return fmt.Errorf("%w: owner scope is required", domain.ErrInvalidInput)
	}
	if !input.Category.Valid() {
		return fmt.Errorf("%w: unsupported category %q", domain.ErrInvalidInput, input.Category)
	}
	for _, ref := range []string{input.HumanImageURL, input.GarmentImageURL} {
		if !isAbsoluteHTTPURL(ref) {
			return fmt.Errorf("%w: image reference must be an absolute http(s) url", domain.ErrInvalidInput)
		}
	}
	return nil
}

func isAbsoluteHTTPURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
