package domain

import "context"

// JobRepository defines persistence for job entities. It is the single point
// of truth for job state: components never mutate a cached copy, they propose
// transitions through these methods.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	GetByProviderJobID(ctx context.Context, providerJobID string) (*Job, error)

	// MarkSubmitted transitions a pending job to submitted and binds the
	// provider job id. The provider id is assigned at most once.
	MarkSubmitted(ctx context.Context, jobID, providerJobID string) error

	// MarkTerminal atomically transitions a job to completed or failed,
	// provided it is still non-terminal. It reports whether this call won
	// the transition; a losing caller must perform no side effects.
	MarkTerminal(ctx context.Context, jobID string, status JobStatus, update TerminalUpdate) (bool, error)
}

// QuotaRepository is the gate charged for each submission.
type QuotaRepository interface {
	// TryReserve atomically decrements the counter for the scope. ok=false
	// means the quota is exhausted and nothing was changed. A non-nil error
	// indicates an infrastructure failure, not a quota decision.
	TryReserve(ctx context.Context, ownerScope string) (remaining int, ok bool, err error)

	// Remaining reads the current counter without consuming it.
	Remaining(ctx context.Context, ownerScope string) (int, error)

	// Grant sets the counter for a scope, creating it when absent.
	Grant(ctx context.Context, ownerScope string, remaining int) error
}
