package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/gradebook/internal/config"
	"github.com/JonMunkholm/gradebook/internal/core"
	"github.com/JonMunkholm/gradebook/internal/grading"
	"github.com/JonMunkholm/gradebook/internal/history"
	"github.com/JonMunkholm/gradebook/internal/logging"
	"github.com/JonMunkholm/gradebook/internal/metrics"
	"github.com/JonMunkholm/gradebook/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// run wires the server and blocks until it stops. Deferred cleanup runs
// before main decides the exit code.
func run() error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Import history: Postgres when configured, memory otherwise
	hist, closeHistory, err := openHistory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open import history: %w", err)
	}
	defer closeHistory()

	var mopts []metrics.Option
	if cfg.Metrics.Enabled {
		mopts = append(mopts, metrics.WithRuntimeCollectors())
	}
	m := metrics.NewManager(mopts...)

	loaderOpts := []core.LoaderOption{core.WithObserver(m)}
	if cfg.Data.HotCacheTTL > 0 {
		loaderOpts = append(loaderOpts, core.WithHotCache(cache.New(cfg.Data.HotCacheTTL, 2*cfg.Data.HotCacheTTL)))
	}
	filter := core.DefaultFilterOptions()
	filter.MinGrade = cfg.Ingest.MinGrade
	filter.MaxGrade = cfg.Ingest.MaxGrade
	loader := core.NewLoader(core.LoaderConfig{
		SourceDir: cfg.Data.SourceDir,
		CacheDir:  cfg.Data.CacheDir,
		Filter:    &filter,
	}, loaderOpts...)

	limiter := core.NewImportLimiter(cfg.Ingest.MaxConcurrent, cfg.Ingest.MaxWaitTime)

	server := web.NewServer(cfg, web.Dependencies{
		Loader:  loader,
		Grading: grading.NewStore(cfg.Data.CacheDir),
		History: hist,
		Limiter: limiter,
		Metrics: m,
	})

	// Warm the cache so the first request is served from it
	if st, err := loader.Status(ctx); err != nil {
		slog.Warn("initial load failed", "error", err)
	} else {
		slog.Info("initial load", "has_data", st.HasData, "records", st.TotalRecords, "source", st.Source)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openHistory returns the configured history store and its close func.
func openHistory(ctx context.Context, cfg *config.Config) (history.Store, func(), error) {
	if cfg.Database.URL == "" {
		slog.Info("import history kept in memory", "limit", cfg.Database.HistoryLimit)
		return history.NewMemoryStore(cfg.Database.HistoryLimit), func() {}, nil
	}

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	store, err := history.NewPostgresStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}
