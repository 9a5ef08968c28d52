package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/infra/geoip"
	"server/internal/middleware"
	provider "server/internal/providers/tryon"
	"server/internal/storage"
	"server/internal/tryon"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	apiKey := strings.TrimSpace(cfg.TryOnAPIKey)
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.TryOnAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load try-on api key from store")
		} else {
			apiKey = keyFromStore
		}
	}
	if apiKey == "" {
		logger.Warn().Msg("try-on api key missing, provider submissions will fail")
	}

	store, err := newObjectStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		lookup = resolver.CountryCode
	}

	jobs := repo.NewJobRepository(pool)
	quotas := repo.NewQuotaRepository(pool)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	svc := tryon.NewService(
		ctx,
		tryon.ServiceConfig{
			PublicBaseURL:   cfg.PublicBaseURL,
			PollInterval:    cfg.PollInterval,
			PollMaxAttempts: cfg.PollMaxAttempts,
		},
		jobs,
		quotas,
		provider.NewClient(provider.Options{BaseURL: cfg.TryOnBaseURL, APIKey: apiKey, HTTPClient: httpClient}),
		tryon.NewAssetPrecheck(httpClient, cfg.PrecheckTimeout),
		tryon.NewResultResolver(tryon.ResolverOptions{
			AssetBaseURL: cfg.ResultAssetBaseURL,
			ProbeTimeout: cfg.ProbeTimeout,
			Logger:       logger,
		}),
		tryon.NewArtifactPersister(httpClient, store, logger),
		tryon.MultiNotifier{
			tryon.NewLogNotifier(logger),
			tryon.NewUsageNotifier(runner, logger),
		},
		logger,
	)

	app := handlers.NewApp(cfg, logger, runner, svc)
	router := httpapi.NewRouter(app, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	svc.Wait()
	logger.Info().Msg("server stopped")
}

func newObjectStore(cfg *infra.Config) (storage.ObjectStore, error) {
	if cfg.StorageDriver == "supabase" {
		return storage.NewSupabaseStore(storage.SupabaseOptions{
			ProjectURL: cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
			Bucket:     cfg.SupabaseBucket,
		})
	}
	return storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
}
