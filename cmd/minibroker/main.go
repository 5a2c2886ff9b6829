package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/minibroker/internal/config"
	"github.com/efreitasn/minibroker/internal/engine"
	"github.com/efreitasn/minibroker/internal/handler"
	"github.com/efreitasn/minibroker/internal/lock"
	"github.com/efreitasn/minibroker/internal/service"
	"github.com/efreitasn/minibroker/internal/store"
	"github.com/efreitasn/minibroker/internal/store/sqlstore"
	"github.com/efreitasn/minibroker/internal/telemetry"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		slog.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cfg, logger); err != nil {
		logger.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *slog.Logger) error {
	// Storage backend.
	repos, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Alert lock: Redis when configured, otherwise in-process.
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		redisCfg := lock.RedisConfigDefaults()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPassword
		redisCfg.TTL = cfg.LockTTL
		rl, err := lock.NewRedisLocker(redisCfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create redis locker: %w", err)
		}
		defer rl.Close()
		if err := rl.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker = rl
		logger.Info("using redis lock", slog.String("addr", cfg.RedisAddr))
	}

	metrics, err := telemetry.NewMetrics("minibroker")
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	// Engine.
	matcher := engine.NewMatcher(engine.NewBooks(), nil, metrics, logger)

	// Services (webhook first, the order and alert services dispatch through it).
	webhookSvc := service.NewWebhookService(repos.Webhooks, repos.Accounts, cfg.WebhookTimeout, metrics, logger)
	orderSvc := service.NewOrderService(repos, matcher, webhookSvc, metrics, logger)
	matcher.SetSettler(orderSvc)
	marketSvc := service.NewMarketService(repos.Instruments, matcher, metrics, logger)
	alertSvc := service.NewAlertService(service.AlertServiceConfig{
		Policy:     cfg.AlertTriggerPolicy,
		CheckDelay: cfg.AlertCheckDelay,
	}, repos, locker, webhookSvc, metrics, logger)

	// Seed instruments.
	seeds := service.DefaultInstruments
	if cfg.SeedFile != "" {
		if seeds, err = service.LoadSeedFile(cfg.SeedFile); err != nil {
			return err
		}
	}
	added, err := marketSvc.Seed(ctx, seeds)
	if err != nil {
		return fmt.Errorf("failed to seed instruments: %w", err)
	}
	logger.Info("instruments seeded", slog.Int("added", added))

	// Rebuild the pending limit book from storage.
	pending, err := repos.Orders.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending orders: %w", err)
	}
	matcher.Restore(ctx, pending)

	// Router.
	router := handler.NewRouter(handler.Services{
		Accounts:  service.NewAccountService(repos, cfg.InitialBalance, logger),
		Orders:    orderSvc,
		Market:    marketSvc,
		Alerts:    alertSvc,
		Portfolio: service.NewPortfolioService(repos),
		Watchlist: service.NewWatchlistService(repos),
		Webhooks:  webhookSvc,
	}, handler.RateLimit{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst}, logger)

	// Start price ticker with the cancellable context.
	engine.NewTicker(cfg.PriceTickInterval, marketSvc, logger).Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown: stop HTTP server, cancel context (stops the ticker).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
	return nil
}

// openStore returns the repositories for the configured driver and a
// function releasing them.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Repositories, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite, config.DriverPostgres:
		dialect := sqlstore.SQLite
		if cfg.StoreDriver == config.DriverPostgres {
			dialect = sqlstore.Postgres
		}
		s, err := sqlstore.Open(ctx, dialect, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return s.Repositories(), func() { _ = s.Close() }, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}
