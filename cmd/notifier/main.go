package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/lexflow-notify/internal/archive"
	"github.com/rickgao/lexflow-notify/internal/config"
	"github.com/rickgao/lexflow-notify/internal/connection"
	"github.com/rickgao/lexflow-notify/internal/database"
	"github.com/rickgao/lexflow-notify/internal/metrics"
	"github.com/rickgao/lexflow-notify/internal/notification"
	"github.com/rickgao/lexflow-notify/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and environment only when empty)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	// A missing .env is normal outside development
	_ = godotenv.Load()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting notifier",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"endpoint", cfg.Endpoint.URL,
		"archive", cfg.Archive.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("notifier failed", "error", err)
		os.Exit(1)
	}

	logger.Info("notifier stopped")
}

// run wires the pipeline and blocks until ctx is done.
func run(ctx context.Context, cfg *config.NotifierConfig, logger *slog.Logger) error {
	m := metrics.New()
	store := notification.NewStore(cfg.Store.MaxItems)
	alerter := notification.NewLogAlerter(logger)

	handlerOpts := []notification.HandlerOption{
		notification.WithMetrics(m),
		notification.WithLogger(logger),
	}

	var (
		pool   *pgxpool.Pool
		writer *archive.Writer
	)
	if cfg.Archive.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)

		var err error
		pool, err = database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		if err := archive.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		writer = archive.NewWriter(archive.WriterConfig{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			BufferSize:    cfg.Archive.BufferSize,
		}, pool, m, logger.With("component", "archive"))
		handlerOpts = append(handlerOpts, notification.WithArchiver(writer))

		logger.Info("database connected")
	}

	handler := notification.NewHandler(store, alerter, handlerOpts...)

	transportCfg := connection.TransportConfig{
		URL:              cfg.Endpoint.URL,
		Token:            cfg.Endpoint.Token,
		HandshakeTimeout: cfg.Endpoint.HandshakeTimeout,
		PingInterval:     cfg.Endpoint.PingInterval,
		PingTimeout:      cfg.Endpoint.PingTimeout,
		WriteTimeout:     cfg.Endpoint.WriteTimeout,
	}
	managerCfg := connection.ManagerConfig{
		Backoff: connection.Policy{
			BaseDelay:   cfg.Reconnect.BaseDelay,
			MaxDelay:    cfg.Reconnect.MaxDelay,
			MaxAttempts: cfg.Reconnect.MaxAttempts,
		},
	}

	connLogger := logger.With("component", "connection")
	mgr := connection.NewManager(managerCfg,
		connection.NewWebSocketFactory(transportCfg, connLogger),
		handler,
		connection.WithMetrics(m),
		connection.WithLogger(connLogger),
	)

	deps := serverDeps{
		conn:        mgr,
		store:       store,
		metrics:     m,
		metricsPath: cfg.Server.MetricsPath,
		instanceID:  cfg.Instance.ID,
	}
	if pool != nil {
		deps.db = pool
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newServerMux(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if writer != nil {
		g.Go(func() error {
			return writer.Run(gctx, shutdownTimeout)
		})
	}

	g.Go(func() error {
		return mgr.Run(gctx)
	})

	logger.Info("notifier running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
	)

	return g.Wait()
}
