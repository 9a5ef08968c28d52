package tryon

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// JobEvent is the fire-and-forget notification emitted when a job reaches a
// terminal state. Delivery is at-most-once; clients reconcile via polling.
type JobEvent struct {
	JobID        string
	OwnerScope   string
	Status       domain.JobStatus
	ResultURL    string
	UsedFallback bool
	Error        string
}

// Notifier receives terminal job events. Implementations must not block the
// state machine; transport (socket, SSE, queue) is a pluggable collaborator.
type Notifier interface {
	Notify(ctx context.Context, event JobEvent)
}

// LogNotifier writes job events to the service log.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, event JobEvent) {
	n.logger.Info().
		Str("job_id", event.JobID).
		Str("owner_scope", event.OwnerScope).
		Str("status", string(event.Status)).
		Bool("used_fallback", event.UsedFallback).
		Msg("job finished")
}

// UsageNotifier records terminal job events as usage analytics rows.
type UsageNotifier struct {
	sql    infra.SQLExecutor
	logger zerolog.Logger
}

func NewUsageNotifier(sql infra.SQLExecutor, logger zerolog.Logger) *UsageNotifier {
	return &UsageNotifier{sql: sql, logger: logger}
}

func (n *UsageNotifier) Notify(ctx context.Context, event JobEvent) {
	props, _ := json.Marshal(map[string]any{
		"job_id":        event.JobID,
		"used_fallback": event.UsedFallback,
	})
	eventType := "tryon_completed"
	if event.Status == domain.JobStatusFailed {
		eventType = "tryon_failed"
	}
	if _, err := n.sql.Exec(ctx, sqlinline.QInsertUsageEvent,
		event.OwnerScope, eventType, event.Status == domain.JobStatusCompleted, "", "", props,
	); err != nil {
		n.logger.Warn().Err(err).Str("job_id", event.JobID).Msg("usage event insert failed")
	}
}

// MultiNotifier fans an event out to several notifiers.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event JobEvent) {
	for _, n := range m {
		n.Notify(ctx, event)
	}
}
