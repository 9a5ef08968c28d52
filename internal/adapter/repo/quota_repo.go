package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// QuotaRepositoryPG implements domain.QuotaRepository on PostgreSQL.
//
// Reservation is a single conditional UPDATE so that, under N concurrent
// callers against a counter of value C, exactly min(N, C) succeed and the
// counter never goes negative.
type QuotaRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewQuotaRepository creates a new quota repository backed by PostgreSQL.
func NewQuotaRepository(pool *pgxpool.Pool) *QuotaRepositoryPG {
	return &QuotaRepositoryPG{pool: pool}
}

// TryReserve decrements the counter for the scope when it is positive. A
// missing scope row counts as an exhausted quota, not an error.
func (r *QuotaRepositoryPG) TryReserve(ctx context.Context, ownerScope string) (int, bool, error) {
	query := `
UPDATE quotas
SET remaining = remaining - 1, updated_at = NOW()
WHERE owner_scope = $1 AND remaining > 0
RETURNING remaining;
`
	var remaining int
	err := r.pool.QueryRow(ctx, query, ownerScope).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return remaining, true, nil
}

// Remaining reads the counter without consuming it.
func (r *QuotaRepositoryPG) Remaining(ctx context.Context, ownerScope string) (int, error) {
	var remaining int
	err := r.pool.QueryRow(ctx, `SELECT remaining FROM quotas WHERE owner_scope = $1;`, ownerScope).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Grant sets the counter for a scope, creating the row when absent.
func (r *QuotaRepositoryPG) Grant(ctx context.Context, ownerScope string, remaining int) error {
	if remaining < 0 {
		return errors.New("repo: quota grant must not be negative")
	}
	query := `
INSERT INTO quotas (owner_scope, remaining, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (owner_scope) DO UPDATE SET remaining = EXCLUDED.remaining, updated_at = NOW();
`
	_, err := r.pool.Exec(ctx, query, ownerScope, remaining)
	return err
}

var _ domain.QuotaRepository = (*QuotaRepositoryPG)(nil)
