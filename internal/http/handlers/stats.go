package handlers

import (
	"net/http"

	"server/internal/sqlinline"
)

// UsageSummary reports 24h submission analytics for dashboards.
func (a *App) UsageSummary(w http.ResponseWriter, r *http.Request) {
	if a.SQL == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "analytics store not configured")
		return
	}
	row := a.SQL.QueryRow(r.Context(), sqlinline.QUsageSummary24h)
	var submitted, submitFailed, quotaDenied, completed int
	if err := row.Scan(&submitted, &submitFailed, &quotaDenied, &completed); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load usage summary")
		return
	}
	a.json(w, http.StatusOK, map[string]int{
		"submitted":     submitted,
		"submit_failed": submitFailed,
		"quota_denied":  quotaDenied,
		"completed":     completed,
	})
}
