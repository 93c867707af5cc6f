package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/ElementGrid/internal/backend"
	"github.com/JonMunkholm/ElementGrid/internal/config"
	"github.com/JonMunkholm/ElementGrid/internal/core"
	"github.com/JonMunkholm/ElementGrid/internal/logging"
	"github.com/JonMunkholm/ElementGrid/internal/messaging"
	"github.com/JonMunkholm/ElementGrid/internal/observability/metrics"
	"github.com/JonMunkholm/ElementGrid/internal/store"
	"github.com/JonMunkholm/ElementGrid/internal/viewer"
	"github.com/JonMunkholm/ElementGrid/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend_remote", cfg.Backend.URL != "",
		"database", cfg.Database.URL != "",
		"page_size", cfg.Grid.PageSize,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	applyEngineSettings(cfg)

	ctx := context.Background()

	// Postgres store backs /api/data, and the grids too when no remote backend is set.
	var st *store.Store
	var health func(context.Context) error
	if cfg.Database.URL != "" {
		pool, err := connectDatabase(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		st = store.New(pool)
		if cfg.Database.AutoMigrate {
			if err := st.EnsureSchema(ctx); err != nil {
				slog.Error("failed to ensure schema", "error", err)
				os.Exit(1)
			}
		}
		health = st.Ping
	}

	var gridBackend core.Backend
	switch {
	case cfg.Backend.URL != "":
		gridBackend = backend.New(backend.Config{
			BaseURL: cfg.Backend.URL,
			APIKey:  cfg.Backend.APIKey,
			Timeout: cfg.Backend.Timeout,
		})
		slog.Info("using remote backend", "url", cfg.Backend.URL)
	case st != nil:
		gridBackend = st
		slog.Info("using database backend", "table", store.TableName)
	}

	// Metrics
	registry := metrics.NewRegistry()
	gridMetrics, err := metrics.NewGridMetrics(registry)
	if err != nil {
		slog.Error("failed to register grid metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		slog.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}

	// Change notifications are optional.
	var notifier core.ChangeNotifier
	if cfg.Messaging.URL != "" {
		publisher, err := messaging.Connect(cfg.Messaging.URL, cfg.Messaging.Exchange)
		if err != nil {
			slog.Error("failed to connect to message broker", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		notifier = publisher
	}

	hub := viewer.NewHub()
	limiter := core.NewSyncLimiter(cfg.Backend.MaxConcurrentSyncs, cfg.Backend.SyncWaitTime)

	service := core.NewService(core.ServiceConfig{
		Backend:  gridBackend,
		Viewers:  hub.Port,
		Notifier: notifier,
		Metrics:  gridMetrics,
		Grid: core.GridOptions{
			PageSize:     cfg.Grid.PageSize,
			GroupByCode:  cfg.Grid.GroupByCode,
			Alphabetical: cfg.Grid.Alphabetical,
			CacheTTL:     cfg.Grid.CacheTTL,
		},
		SessionTTL: cfg.Grid.SessionTTL,
		Limiter:    limiter,
		OnClose:    hub.Remove,
	})

	deps := web.Deps{
		Service:     service,
		Hub:         hub,
		Health:      health,
		Gatherer:    registry,
		HTTPMetrics: httpMetrics,
	}
	if st != nil {
		deps.Data = st
	}
	server := web.NewServer(deps, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSessionJanitor(jobCtx, core.JanitorConfig{
		CheckInterval: cfg.Grid.JanitorInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for in-flight pulls and pushes (with timeout)
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for backend transfers to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("transfers did not complete in time", "error", err)
			} else {
				slog.Info("all transfers completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// applyEngineSettings copies engine tunables from config.
func applyEngineSettings(cfg *config.Config) {
	core.PullTimeout = cfg.Backend.PullTimeout
	core.PushTimeout = cfg.Backend.PushTimeout
	core.MaxConcurrentPulls = cfg.Backend.MaxConcurrentPulls
	core.DefaultViewCacheTTL = cfg.Grid.CacheTTL

	// Validate already rejected malformed tags.
	if tag, err := language.Parse(cfg.Grid.Locale); err == nil {
		core.CollationLocale = tag
	}
}

// connectDatabase opens and pings a pgx pool.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
