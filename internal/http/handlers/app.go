package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/sqlinline"
	"server/internal/tryon"
)

// DefaultOwnerScope is the quota bucket charged when a request carries no
// tenant header.
const DefaultOwnerScope = "global"

// App bundles the handler dependencies.
type App struct {
	Config *infra.Config
	Logger infra.Logger
	SQL    infra.SQLExecutor
	TryOn  *tryon.Service
}

func NewApp(cfg *infra.Config, logger infra.Logger, sql infra.SQLExecutor, svc *tryon.Service) *App {
	return &App{Config: cfg, Logger: logger, SQL: sql, TryOn: svc}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{"error": slug, "message": message})
}

// ownerScope derives the quota bucket from the tenant header.
func ownerScope(r *http.Request) string {
	if tenant := strings.TrimSpace(r.Header.Get("X-Tenant-ID")); tenant != "" {
		return tenant
	}
	return DefaultOwnerScope
}

// recordUsage writes a usage analytics row; failures are logged, never
// surfaced to the client.
func (a *App) recordUsage(ctx context.Context, scope, eventType string, success bool, props map[string]any) {
	if a.SQL == nil {
		return
	}
	payload, _ := json.Marshal(props)
	if _, err := a.SQL.Exec(ctx, sqlinline.QInsertUsageEvent,
		scope,
		eventType,
		success,
		middleware.CountryFromContext(ctx),
		middleware.LocaleFromContext(ctx),
		payload,
	); err != nil {
		a.Logger.Warn().Err(err).Str("event_type", eventType).Msg("usage event insert failed")
	}
}
