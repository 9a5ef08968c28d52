package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter assembles the API surface with the standard middleware chain.
// The country lookup may be nil when no GeoIP database is configured.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSOrigins),
		middleware.I18N(lookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/tryon", func(r chi.Router) {
		r.With(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)).
			Post("/jobs", app.SubmitJob)
		r.Get("/jobs/{job_id}", app.JobStatus)
		// The provider calls this; it must never be rate limited away.
		r.Post("/webhook", app.Webhook)
	})

	r.Get("/v1/metrics/usage-24h", app.UsageSummary)

	// Locally stored artifacts are served from the filesystem driver.
	if app.Config.StorageDriver == "filesystem" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(app.Config.StoragePath)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
