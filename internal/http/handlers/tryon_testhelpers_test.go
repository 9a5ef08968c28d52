package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	provider "server/internal/providers/tryon"
	"server/internal/tryon"
)

type memJobRepo struct {
	mu         sync.Mutex
	byID       map[string]*domain.Job
	byProvider map[string]string
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{byID: map[string]*domain.Job{}, byProvider: map[string]string{}}
}

func (r *memJobRepo) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.byID[job.ID] = &clone
	return nil
}

func (r *memJobRepo) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *memJobRepo) GetByProviderJobID(_ context.Context, providerJobID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobID, ok := r.byProvider[providerJobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *r.byID[jobID]
	return &clone, nil
}

func (r *memJobRepo) MarkSubmitted(_ context.Context, jobID, providerJobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok || job.Status != domain.JobStatusPending {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusSubmitted
	job.ProviderJobID = providerJobID
	r.byProvider[providerJobID] = jobID
	return nil
}

func (r *memJobRepo) MarkTerminal(_ context.Context, jobID string, status domain.JobStatus, update domain.TerminalUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return false, nil
	}
	job.Status = status
	job.ResultURL = update.ResultURL
	job.OriginFallbackURL = update.OriginFallbackURL
	job.ErrorMessage = update.ErrorMessage
	return true, nil
}

func (r *memJobRepo) seed(job domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := job
	r.byID[job.ID] = &clone
	if job.ProviderJobID != "" {
		r.byProvider[job.ProviderJobID] = job.ID
	}
}

type memQuotaRepo struct {
	mu        sync.Mutex
	remaining int
}

func (q *memQuotaRepo) TryReserve(context.Context, string) (int, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.remaining <= 0 {
		return 0, false, nil
	}
	q.remaining--
	return q.remaining, true, nil
}

func (q *memQuotaRepo) Remaining(context.Context, string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining, nil
}

func (q *memQuotaRepo) Grant(_ context.Context, _ string, remaining int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.remaining = remaining
	return nil
}

type stubSubmitter struct {
	mu   sync.Mutex
	err  error
	next int
}

func (s *stubSubmitter) CreateTask(context.Context, provider.Task) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.next++
	return fmt.Sprintf("prov-%d", s.next), nil
}

type neverReadyResolver struct{}

func (neverReadyResolver) Resolve(context.Context, string) tryon.Resolution {
	return tryon.Resolution{}
}

type identityPersister struct{}

func (identityPersister) Persist(_ context.Context, jobID, _ string) (string, bool) {
	return "https://cdn.example.com/results/" + jobID + ".png", false
}

type appHarness struct {
	app    *App
	jobs   *memJobRepo
	quotas *memQuotaRepo
	sql    *stubSQL
	assets string
}

func newAppHarness(t *testing.T, quota int) *appHarness {
	t.Helper()
	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(assets.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &appHarness{
		jobs:   newMemJobRepo(),
		quotas: &memQuotaRepo{remaining: quota},
		sql:    &stubSQL{},
		assets: assets.URL,
	}
	svc := tryon.NewService(
		ctx,
		tryon.ServiceConfig{
			PublicBaseURL:   "https://api.example.com",
			PollInterval:    time.Millisecond,
			PollMaxAttempts: 2,
		},
		h.jobs,
		h.quotas,
		&stubSubmitter{},
		tryon.NewAssetPrecheck(assets.Client(), time.Second),
		neverReadyResolver{},
		identityPersister{},
		nil,
		zerolog.Nop(),
	)
	h.app = NewApp(nil, zerolog.Nop(), h.sql, svc)
	return h
}
