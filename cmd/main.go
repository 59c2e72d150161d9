package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/stuffscore/internal/adapters/http/api"
	"github.com/okian/stuffscore/internal/adapters/http/swagger"
	"github.com/okian/stuffscore/internal/adapters/mq/queue"
	"github.com/okian/stuffscore/internal/adapters/mq/worker"
	"github.com/okian/stuffscore/internal/adapters/repository"
	service "github.com/okian/stuffscore/internal/app"
	"github.com/okian/stuffscore/internal/config"
	"github.com/okian/stuffscore/internal/domain/dedupe"
	"github.com/okian/stuffscore/internal/domain/scoring"
	"github.com/okian/stuffscore/pkg/logger"
	"github.com/okian/stuffscore/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	// writeSlack leaves room to encode the response after the request deadline.
	writeSlack = 5 * time.Second
	// refreshTimeoutFactor scales the request timeout for background refreshes.
	refreshTimeoutFactor = 6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// Use stderr since the logger may not be available yet
		os.Stderr.WriteString(err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Metrics must be configured before anything records them
	metrics.Init(metricsOptions(cfg)...)

	svc, cleanup, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// Start system metrics collector
	go metrics.RunSystemCollector(ctx)

	// Warm every population now and again before snapshots expire
	if cfg.RefreshWorkers > 0 {
		go svc.RunScheduler(ctx, time.Duration(cfg.RefreshIntervalSeconds)*time.Second)
	}

	srv := newHTTPServer(ctx, cfg, svc, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
		close(errCh)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService wires the SQLite source, the snapshot store and the scorer
// into a started service. cleanup stops the service and closes the source.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, func(), error) {
	weights, err := cfg.ScoringWeights()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid weights: %w", err)
	}
	scorer, err := scoring.NewScorer(
		scoring.WithWeights(weights),
		scoring.WithDisplayScale(cfg.DisplayScale()),
		scoring.WithWorkers(cfg.WorkerCount),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scorer: %w", err)
	}

	src, err := repository.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}

	// Shared computations and refresh jobs get the same, longer budget
	computeTimeout := time.Duration(cfg.RequestTimeoutMS) * time.Millisecond * refreshTimeoutFactor

	opts := []service.Option{
		service.WithLogger(log),
		service.WithSource(src),
		service.WithStore(store),
		service.WithScorer(scorer),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithComputeTimeout(computeTimeout),
		service.WithPopulations(cfg.Populations()),
	}
	var (
		q       *queue.InMemoryQueue
		pending dedupe.Deduper
	)
	if cfg.RefreshWorkers > 0 {
		q = queue.NewInMemoryQueue(queue.WithCapacity(cfg.RefreshQueueSize))
		pending = dedupe.NewInMemoryDeduper()
		opts = append(opts, service.WithRefreshQueue(q, pending))
	}

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		_ = src.Close()
		return nil, nil, fmt.Errorf("failed to start service: %w", err)
	}

	// Background refresh workers
	var pool *worker.Pool
	if q != nil {
		pool = worker.NewPool(cfg.RefreshWorkers, q, pending, svc,
			worker.WithLogger(log.Named("refresh")),
			worker.WithJobTimeout(computeTimeout),
		)
		pool.Start(ctx)
	}

	cleanup := func() {
		if pool != nil {
			if err := pool.Shutdown(context.Background()); err != nil {
				log.Warn(ctx, "refresh workers did not stop", logger.Error(err))
			}
		}
		svc.Stop()
		if err := src.Close(); err != nil {
			log.Error(ctx, "failed to close database", logger.Error(err))
		}
	}
	return svc, cleanup, nil
}

// metricsOptions maps the metrics export settings onto the manager.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithHistogramBuckets(cfg.MetricsLatencyBucketsMS),
	}
}

// openStore picks redis when a URL is configured, otherwise memory.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if cfg.RedisURL == "" {
		return repository.NewMemoryStore(repository.WithTTL(ttl)), nil
	}
	store, err := repository.NewRedisStore(ctx, cfg.RedisURL, repository.WithTTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return store, nil
}

// newHTTPServer registers the API and docs routes behind the middleware stack.
func newHTTPServer(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) *http.Server {
	mux := http.NewServeMux()

	// Register ReDoc under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	api.NewServer(svc, svc, cfg.MaxLeaderboardLimit).Register(ctx, mux)

	timeout := time.Duration(cfg.RequestTimeoutMS) * time.Millisecond
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(mux, cfg.AllowedOrigins, timeout, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      timeout + writeSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
