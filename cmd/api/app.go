package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aistats/statshub/internal/api/handlers"
	"github.com/aistats/statshub/internal/api/middleware"
	"github.com/aistats/statshub/internal/config"
	"github.com/aistats/statshub/internal/huberrors"
	"github.com/aistats/statshub/internal/models"
	"github.com/aistats/statshub/internal/observability"
	"github.com/aistats/statshub/internal/repository"
	"github.com/aistats/statshub/internal/seed"
	"github.com/aistats/statshub/internal/service"
	"github.com/aistats/statshub/internal/worker"
	pkgcache "github.com/aistats/statshub/pkg/cache"
	"github.com/aistats/statshub/pkg/database"
)

// Routes of the public API, also used to bound the route label of HTTP metrics.
const (
	routeHealth        = "/health"
	routeMetrics       = "/metrics"
	routeModels        = "/api/models.json"
	routeBenchmarks    = "/api/benchmarks.json"
	routeBenchmarkRuns = "/api/benchmark-runs.json"
	routeEpochModels   = "/api/epoch-models.json"
	routeSnapshot      = "/api/snapshot"
	routeRefresh       = "/v1/snapshot/refresh"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	warmer         *worker.SnapshotWarmer
	meter          *observability.MeterSetup
	tracerProvider *sdktrace.TracerProvider
}

// setupMetrics creates the meter pipeline and service metrics when metrics are enabled.
// Returns (nil, nil, nil) when the exporter is unsupported.
func setupMetrics(ctx context.Context, cfg *config.Config) (*observability.MeterSetup, *observability.Metrics, error) {
	setup, err := observability.NewMeterProvider(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if setup == nil {
		slog.Warn("metrics not enabled: unsupported OTEL_METRICS_EXPORTER", "exporter", cfg.OtelMetricsExporter)
		return nil, nil, nil
	}

	metrics, err := observability.NewMetrics(setup.Meter())
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(context.Background(), setup); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return setup, metrics, nil
}

// openSnapshotStore connects the optional persistence store. Failures are
// logged and leave the service running without persistence.
func openSnapshotStore(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, *repository.SnapshotRepository) {
	if cfg.DatabaseURL == "" {
		slog.Info("snapshot persistence disabled (DATABASE_URL empty or unset)")
		return nil, nil
	}

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithMaxConns(int32(cfg.DatabaseMaxConns)))
	if err != nil {
		slog.Error("snapshot persistence unavailable", "error", err)
		return nil, nil
	}

	repo := repository.NewSnapshotRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		slog.Error("snapshot persistence unavailable", "error", err)
		db.Close()

		return nil, nil
	}

	return db, repo
}

// loadInitialSnapshot returns the snapshot the cache starts with: the persisted
// one when available, otherwise the seed file. Both are optional.
func loadInitialSnapshot(ctx context.Context, store service.SnapshotStore, seedFile string) (*models.Snapshot, time.Time) {
	if store != nil {
		snap, fetchedAt, err := store.LoadLatest(ctx)
		switch {
		case err == nil:
			slog.Info("Loaded persisted snapshot", "fetched_at", fetchedAt, "models", len(snap.Models))
			return snap, fetchedAt
		case errors.Is(err, huberrors.ErrNotFound):
			slog.Info("No persisted snapshot yet")
		default:
			slog.Warn("Failed to load persisted snapshot", "error", err)
		}
	}

	if seedFile != "" {
		snap, err := seed.LoadFile(seedFile)
		if err != nil {
			slog.Warn("Failed to load seed snapshot", "error", err)
			return nil, time.Time{}
		}

		slog.Info("Loaded seed snapshot", "file", seedFile, "models", len(snap.Models))

		return snap, time.Time{}
	}

	return nil, time.Time{}
}

// NewApp builds and wires all components. It does not start the HTTP server or
// the warmer; call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	var (
		err     error
		meter   *observability.MeterSetup
		metrics *observability.Metrics
	)

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		meter, metrics, err = setupMetrics(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	var tracerProvider *sdktrace.TracerProvider

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(ctx, cfg)
		if err != nil {
			if err2 := observability.ShutdownMeterProvider(context.Background(), meter); err2 != nil {
				slog.Error("shutdown meter provider after tracer provider error", "error", err2)
			}

			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meter != nil {
		otel.SetMeterProvider(meter.Provider)
	}

	var (
		httpMetrics     observability.HTTPMetrics
		snapshotMetrics observability.SnapshotMetrics
		cacheMetrics    observability.CacheMetrics
	)
	if metrics != nil {
		httpMetrics = metrics.HTTP
		snapshotMetrics = metrics.Snapshot
		cacheMetrics = metrics.Cache
	}

	db, repo := openSnapshotStore(ctx, cfg)

	// Only assign a non-nil repository so the interface stays nil when persistence is off.
	var store service.SnapshotStore
	if repo != nil {
		store = repo
	}

	initial, initialFetchedAt := loadInitialSnapshot(ctx, store, cfg.SeedSnapshotFile)

	fetcher := service.NewSnapshotFetcher(service.SnapshotFetcherParams{
		BaseURL:          cfg.SupabaseURL,
		APIKey:           cfg.SupabaseAnonKey,
		IncludeAuxiliary: cfg.IncludeAuxiliary,
		Timeout:          cfg.UpstreamTimeout,
		Metrics:          snapshotMetrics,
		Logger:           slog.Default(),
	})

	snapshotCache := service.NewSnapshotCache(service.SnapshotCacheParams{
		Loader:           fetcher,
		TTL:              cfg.SnapshotTTL,
		Initial:          initial,
		InitialFetchedAt: initialFetchedAt,
		Store:            store,
		Metrics:          snapshotMetrics,
		CacheMetrics:     cacheMetrics,
		Logger:           slog.Default(),
	})

	queryCache, err := pkgcache.NewLoaderCache[service.ModelQueryKey, []models.ModelRecord](
		cfg.QueryCacheSize, service.ModelQueryKeyString,
	)
	if err != nil {
		if db != nil {
			db.Close()
		}

		return nil, fmt.Errorf("create model query cache: %w", err)
	}

	snapshotService := service.NewSnapshotService(service.SnapshotServiceParams{
		Cache:          snapshotCache,
		Fetcher:        fetcher,
		QueryCache:     queryCache,
		RefreshLimiter: service.NewRefreshLimiter(cfg.ForceRefreshMinInterval),
		CacheMetrics:   cacheMetrics,
		Logger:         slog.Default(),
	})

	var warmer *worker.SnapshotWarmer
	if cfg.SnapshotWarmInterval > 0 {
		warmer = worker.NewSnapshotWarmer(snapshotService, cfg.SnapshotWarmInterval)
	}

	var metricsHandler http.Handler
	if meter != nil {
		metricsHandler = meter.Handler
	}

	server := newHTTPServer(
		cfg,
		handlers.NewHealthHandler(),
		handlers.NewDataHandler(snapshotService, handlers.CachePolicy{
			EdgeMaxAge:           cfg.EdgeCacheMaxAge,
			StaleWhileRevalidate: cfg.SnapshotTTL,
		}),
		handlers.NewSnapshotHandler(snapshotService),
		metricsHandler,
		httpMetrics,
		meter,
		tracerProvider,
	)

	return &App{
		cfg:            cfg,
		db:             db,
		server:         server,
		warmer:         warmer,
		meter:          meter,
		tracerProvider: tracerProvider,
	}, nil
}

// newHTTPServer builds the HTTP server and muxes (public data endpoints, API key on /v1/).
// Handler chain: RequestID -> Metrics -> otelhttp(Logging(mux)) so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	health *handlers.HealthHandler,
	data *handlers.DataHandler,
	snapshot *handlers.SnapshotHandler,
	metricsHandler http.Handler,
	httpMetrics observability.HTTPMetrics,
	meter *observability.MeterSetup,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET "+routeHealth, health.Check)
	public.HandleFunc("GET "+routeModels, data.ListModels)
	public.HandleFunc("GET "+routeBenchmarks, data.ListBenchmarks)
	public.HandleFunc("GET "+routeBenchmarkRuns, data.ListBenchmarkRuns)
	public.HandleFunc("GET "+routeEpochModels, data.ListEpochModels)
	public.HandleFunc("GET "+routeSnapshot, snapshot.Status)

	// The metrics handler is nil for push exporters and when metrics are disabled.
	if metricsHandler != nil {
		public.Handle("GET "+routeMetrics, metricsHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("/", public)

	if cfg.APIKey != "" {
		protected := http.NewServeMux()
		protected.HandleFunc("POST "+routeRefresh, snapshot.Refresh)

		mux.Handle("/v1/", middleware.Auth(cfg.APIKey)(protected))
	} else {
		slog.Warn("admin endpoints disabled (API_KEY empty or unset)")
	}

	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != routeHealth && r.URL.Path != routeMetrics
		}),
	}
	if meter != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meter.Provider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log (trace_id/span_id in access logs).
	var handler http.Handler = middleware.Logging(slog.Default())(mux)
	handler = otelhttp.NewHandler(handler, "statshub-api", otelOpts...)
	handler = middleware.Metrics(httpMetrics,
		routeHealth, routeMetrics, routeModels, routeBenchmarks, routeBenchmarkRuns,
		routeEpochModels, routeSnapshot, routeRefresh,
	)(handler)
	handler = middleware.RequestID(handler)

	// A cache-bypassing read may wait for a full upstream fetch.
	writeTimeout := cfg.UpstreamTimeout + 15*time.Second

	const (
		readTimeout = 15 * time.Second
		idleTimeout = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and the optional warmer, then blocks until ctx is
// cancelled (e.g. signal) or the server fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	if a.warmer != nil {
		go a.warmer.Start(workerCtx)
	}

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
		return err
	case <-ctx.Done():
		return nil
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *observability.MeterSetup) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
		if first == nil {
			first = err
		} else {
			slog.Error("shutdown meter provider", "error", err)
		}
	}

	return first
}

// Shutdown stops the server and closes the database pool. Call after Run returns.
// Observability is shut down last; its error is returned only when the server shut down successfully.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meter)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if a.db != nil {
		defer a.db.Close()
	}

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
