package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clipiq/feed/internal/api/handlers"
	"github.com/clipiq/feed/internal/api/middleware"
	"github.com/clipiq/feed/internal/config"
	"github.com/clipiq/feed/internal/observability"
	"github.com/clipiq/feed/internal/repository"
	"github.com/clipiq/feed/internal/service"
	"github.com/clipiq/feed/internal/workers"
	"github.com/clipiq/feed/pkg/cache"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg           *config.Config
	db            *pgxpool.Pool
	server        *http.Server
	river         *river.Client[pgx.Tx]
	meterProvider observability.MeterProviderShutdown
}

const (
	uploaderCacheSize = 4096
	rateLimitBurst    = 10
)

// NewApp builds and wires all components. It does not start the HTTP server
// or River; call Run to start and block until shutdown or failure.
func NewApp(cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	meterProvider, metricsHandler, metrics, err := observability.NewMeterProvider(
		context.Background(), observability.MeterProviderConfig{})
	if err != nil {
		return nil, fmt.Errorf("create meter provider: %w", err)
	}

	embeddingsRepo := repository.NewEmbeddingsRepository(db)
	impressionsRepo := repository.NewImpressionsRepository(db)
	watchHistoryRepo := repository.NewWatchHistoryRepository(db)
	videosRepo := repository.NewVideosRepository(db)
	trendingRepo := repository.NewTrendingRepository(db)

	uploaderCache, err := cache.NewLoaderCache[uuid.UUID, uuid.UUID](uploaderCacheSize,
		func(id uuid.UUID) string { return id.String() })
	if err != nil {
		return nil, fmt.Errorf("create uploader cache: %w", err)
	}

	profileService := service.NewProfileService(service.ProfileServiceParams{
		WatchHistory: watchHistoryRepo,
		Embeddings:   embeddingsRepo,
		Logger:       slog.Default(),
	})

	generators := service.NewCandidateGenerators(service.CandidateGeneratorsParams{
		Embeddings: embeddingsRepo,
		Trending:   trendingRepo,
		Fresh:      videosRepo,
		Timeout:    cfg.GeneratorTimeout,
		Metrics:    metrics,
		Logger:     slog.Default(),
	})

	capper := service.NewDiversityCapper(service.DiversityCapperParams{
		Uploaders:      videosRepo,
		UploaderCache:  uploaderCache,
		MaxPerUploader: cfg.MaxPerUploader,
		Metrics:        metrics,
		Logger:         slog.Default(),
	})

	feedService := service.NewFeedService(service.FeedServiceParams{
		Ledger:          impressionsRepo,
		Profiles:        profileService,
		Generators:      generators,
		Capper:          capper,
		Trending:        trendingRepo,
		Videos:          videosRepo,
		SeenWindowHours: cfg.SeenWindowHours,
		Metrics:         metrics,
		Logger:          slog.Default(),
	})

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewViewCountWorker(videosRepo))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			service.ViewCountQueueName: {MaxWorkers: cfg.ViewCountMaxConcurrent},
		},
		Workers:     riverWorkers,
		MaxAttempts: cfg.ViewCountMaxAttempts,
	})
	if err != nil {
		if err2 := meterProvider.Shutdown(context.Background()); err2 != nil {
			slog.Error("shutdown meter provider after River client error", "error", err2)
		}

		return nil, fmt.Errorf("create River client: %w", err)
	}

	impressionsService := service.NewImpressionsService(service.ImpressionsServiceParams{
		WatchEvents: watchHistoryRepo,
		History:     impressionsRepo,
		Jobs:        riverClient,
		Logger:      slog.Default(),
	})

	server := newHTTPServer(
		cfg,
		handlers.NewHealthHandler(),
		handlers.NewFeedHandler(feedService),
		handlers.NewImpressionsHandler(impressionsService),
		metricsHandler,
		metrics,
	)

	return &App{
		cfg:           cfg,
		db:            db,
		server:        server,
		river:         riverClient,
		meterProvider: meterProvider,
	}, nil
}

// newHTTPServer builds the HTTP server and muxes (no auth on /health and /metrics, API key on /v1/).
// Handler chain: RequestID -> otelhttp(Logging(Metrics(mux))); feed routes also pass per-user rate limiting.
func newHTTPServer(
	cfg *config.Config,
	health *handlers.HealthHandler,
	feed *handlers.FeedHandler,
	impressions *handlers.ImpressionsHandler,
	metricsHandler http.Handler,
	metrics observability.FeedMetrics,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", health.Check)
	public.Handle("GET /metrics", metricsHandler)

	feedMux := http.NewServeMux()
	feedMux.HandleFunc("GET /v1/feed/personal", feed.PersonalFeed)
	feedMux.HandleFunc("GET /v1/feed/trending", feed.TrendingFeed)

	protected := http.NewServeMux()
	protected.Handle("/v1/feed/", middleware.RateLimit(cfg.FeedRateLimit, rateLimitBurst)(feedMux))
	protected.HandleFunc("POST /v1/watch-events", impressions.CreateWatchEvent)
	protected.HandleFunc("GET /v1/impressions", impressions.ListImpressions)

	protectedWithAuth := middleware.Auth(cfg.APIKey)(protected)
	mux := http.NewServeMux()
	mux.Handle("/v1/", protectedWithAuth)
	mux.Handle("/", public)

	otelOpts := []otelhttp.Option{
		// Skip tracing for health checks and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log.
	inner := middleware.Logging(middleware.Metrics(metrics)(mux))
	handler := otelhttp.NewHandler(inner, "feed-api", otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 15 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, then blocks until ctx is cancelled
// (e.g. signal) or a component fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	go func() {
		if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
			select {
			case runErr <- fmt.Errorf("river: %w", err):
			default:
			}
		}
	}()

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// Shutdown stops the server, River, and the meter provider in order. Call after Run returns.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := a.meterProvider.Shutdown(ctx)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown meter provider", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.river.Stop(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if err = a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
