package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, coalesce(provider_job_id, ''), status, owner_scope, human_image_url, garment_image_url,
category, coalesce(description, ''), coalesce(result_url, ''), coalesce(origin_fallback_url, ''),
coalesce(error_message, ''), created_at, updated_at`

// Create inserts a new job record in its initial state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO tryon_jobs (id, status, owner_scope, human_image_url, garment_image_url, category, description)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''));
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.OwnerScope,
		job.HumanImageURL,
		job.GarmentImageURL,
		job.Category,
		job.Description,
	)
	return err
}

// GetByID fetches a job by its caller-facing identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM tryon_jobs WHERE id = $1;`
	return r.scanJob(r.pool.QueryRow(ctx, query, jobID))
}

// GetByProviderJobID fetches a job by the identifier the provider assigned.
func (r *JobRepositoryPG) GetByProviderJobID(ctx context.Context, providerJobID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM tryon_jobs WHERE provider_job_id = $1;`
	return r.scanJob(r.pool.QueryRow(ctx, query, providerJobID))
}

// MarkSubmitted binds the provider job id and moves pending -> submitted.
// The WHERE clause keeps the binding single-shot: a job that already left
// pending, or already carries a provider id, is not touched.
func (r *JobRepositoryPG) MarkSubmitted(ctx context.Context, jobID, providerJobID string) error {
	query := `
UPDATE tryon_jobs
SET status = $2, provider_job_id = $3, updated_at = NOW()
WHERE id = $1 AND status = $4 AND provider_job_id IS NULL
RETURNING id;
`
	var id string
	err := r.pool.QueryRow(ctx, query, jobID, domain.JobStatusSubmitted, providerJobID, domain.JobStatusPending).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// MarkTerminal transitions the job to a terminal status if it is still
// non-terminal, and reports whether this call performed the transition.
func (r *JobRepositoryPG) MarkTerminal(ctx context.Context, jobID string, status domain.JobStatus, update domain.TerminalUpdate) (bool, error) {
	if !status.Terminal() {
		return false, errors.New("repo: MarkTerminal requires a terminal status")
	}
	query := `
UPDATE tryon_jobs
SET status = $2,
    result_url = NULLIF($3, ''),
    origin_fallback_url = NULLIF($4, ''),
    error_message = NULLIF($5, ''),
    updated_at = NOW()
WHERE id = $1 AND status NOT IN ($6, $7)
RETURNING id;
`
	var id string
	err := r.pool.QueryRow(ctx, query,
		jobID,
		status,
		update.ResultURL,
		update.OriginFallbackURL,
		update.ErrorMessage,
		domain.JobStatusCompleted,
		domain.JobStatusFailed,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the job does not exist or it is already terminal; in both
		// cases the caller lost the transition race.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *JobRepositoryPG) scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.ProviderJobID,
		&job.Status,
		&job.OwnerScope,
		&job.HumanImageURL,
		&job.GarmentImageURL,
		&job.Category,
		&job.Description,
		&job.ResultURL,
		&job.OriginFallbackURL,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
