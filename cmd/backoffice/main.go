package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/pos-backoffice/internal/app"
	"github.com/odyssey-erp/pos-backoffice/internal/backoffice"
	"github.com/odyssey-erp/pos-backoffice/internal/cycle"
	"github.com/odyssey-erp/pos-backoffice/internal/observability"
	"github.com/odyssey-erp/pos-backoffice/internal/platform/cache"
	"github.com/odyssey-erp/pos-backoffice/internal/platform/db"
	"github.com/odyssey-erp/pos-backoffice/internal/report"
	"github.com/odyssey-erp/pos-backoffice/internal/settlement"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
	"github.com/odyssey-erp/pos-backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := godotenv.Load(); err != nil {
		slog.Default().Debug("no .env file loaded", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.NewPool(ctx, cfg.Postgres())
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	backend, err := backoffice.NewClient(backoffice.Options{
		BaseURL:  cfg.BackendURL,
		Token:    cfg.BackendToken,
		Timeout:  cfg.BackendTimeout,
		Retry:    cfg.Resilience(),
		Observer: metrics,
	})
	if err != nil {
		logger.Error("init backend client", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := cfg.Redis().Asynq()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger()
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	locker := cache.NewLocker(redisClient)

	cycleRepo := cycle.NewRepository(dbpool)
	cycleService := cycle.NewService(cycleRepo, locker, auditLogger, logger)
	cycleService.WithLockTTL(cfg.CycleLockTTL)
	cycleService.OnClose(jobs.CloseoutHook(jobClient))
	cycleHandler := cycle.NewHandler(logger, cycleService)

	settlementService := settlement.NewService(backend, idempotencyStore, settlement.NewMetrics(metrics.Registerer()), logger)
	settlementHandler := settlement.NewHandler(logger, settlementService)

	reportCache := report.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := report.NewService(backend, reportCache, cfg.FXPolicy(), logger)
	reportHandler := report.NewHandler(logger, reportService)
	settlementService.InvalidateSummaries(reportService)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		HealthChecks: map[string]app.Pinger{
			"postgres": dbpool,
			"redis": app.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		},
		CycleHandler:      cycleHandler,
		SettlementHandler: settlementHandler,
		ReportHandler:     reportHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
