package handlers

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// stubSQL records executed usage events and serves a canned summary row.
type stubSQL struct {
	mu         sync.Mutex
	eventTypes []string
	row        simpleRow
}

func (s *stubSQL) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(args) > 1 {
		if eventType, ok := args[1].(string); ok {
			s.eventTypes = append(s.eventTypes, eventType)
		}
	}
	return pgconn.CommandTag{}, nil
}

func (s *stubSQL) QueryRow(context.Context, string, ...any) pgx.Row {
	return s.row
}

func (s *stubSQL) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.eventTypes))
	copy(out, s.eventTypes)
	return out
}
