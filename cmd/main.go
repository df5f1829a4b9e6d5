package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/standings/internal/adapters/extractor"
	"github.com/okian/standings/internal/adapters/http/api"
	"github.com/okian/standings/internal/adapters/http/swagger"
	"github.com/okian/standings/internal/adapters/repository/history"
	"github.com/okian/standings/internal/adapters/source"
	app "github.com/okian/standings/internal/app"
	"github.com/okian/standings/internal/config"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
	"github.com/okian/standings/pkg/tracing"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 35 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(context.Background(), "standings exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// defaults -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	shutdownTracing, err := tracing.Init(ctx,
		tracing.WithServiceName("standings"),
		tracing.WithEndpoint(cfg.OTLPEndpoint),
	)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn(ctx, "tracing shutdown failed", logger.Error(err))
		}
	}()

	svc, cleanup, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.ExtractorAPIKey == "" {
		log.Warn(ctx, "extractor_api_key is not set; the first refresh will stop the scheduler")
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildService wires the fetcher, extractor and optional history store into
// a Service. cleanup releases what was opened.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	fetcher, err := source.New(cfg.SourceURL,
		source.WithRelay(cfg.SourceRelay),
		source.WithTimeout(cfg.SourceTimeout()),
		source.WithMaxBytes(cfg.SourceMaxBytes),
		source.WithTextOnly(cfg.SourceTextOnly),
		source.WithLogger(log.Named("source")),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build fetcher: %w", err)
	}

	ext := extractor.New(
		extractor.WithEndpoint(cfg.ExtractorEndpoint),
		extractor.WithModel(cfg.ExtractorModel),
		extractor.WithAPIKey(cfg.ExtractorAPIKey),
		extractor.WithTimeout(cfg.ExtractorTimeout()),
		extractor.WithMaxInputChars(cfg.ExtractorMaxInputChars),
		extractor.WithLogger(log.Named("extractor")),
	)

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithInterval(cfg.RefreshInterval()),
		app.WithTriggerQueueSize(cfg.TriggerQueueSize),
	}
	cleanup := func() {}
	if cfg.HistoryEnabled() {
		store, err := history.Open(ctx, cfg.HistoryPath, history.WithRetention(cfg.HistoryRetention))
		if err != nil {
			return nil, nil, fmt.Errorf("open history: %w", err)
		}
		opts = append(opts, app.WithHistory(store))
		cleanup = func() {
			if err := store.Close(); err != nil {
				log.Warn(context.Background(), "failed to close history store", logger.Error(err))
			}
		}
		log.Info(ctx, "snapshot history enabled",
			logger.String("path", cfg.HistoryPath),
			logger.Int("retention", cfg.HistoryRetention),
		)
	}

	return app.New(fetcher, ext, opts...), cleanup, nil
}

// newHandler registers the API and docs routes.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	apiServer := api.NewServer(svc,
		api.WithMaxLimit(cfg.MaxLeaderboardLimit),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithRefreshInterval(cfg.RefreshInterval()),
	)
	r := apiServer.Router(ctx)
	swagger.Register(ctx, r)
	return r
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
