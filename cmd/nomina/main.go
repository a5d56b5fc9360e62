package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nomina-co/nomina/internal/app"
	"github.com/nomina-co/nomina/internal/liquidation"
	liquidationhttp "github.com/nomina-co/nomina/internal/liquidation/http"
	"github.com/nomina-co/nomina/internal/observability"
	"github.com/nomina-co/nomina/internal/payroll"
	payrollhttp "github.com/nomina-co/nomina/internal/payroll/http"
	"github.com/nomina-co/nomina/internal/period"
	periodhttp "github.com/nomina-co/nomina/internal/period/http"
	"github.com/nomina-co/nomina/internal/platform/cache"
	"github.com/nomina-co/nomina/internal/platform/db"
	"github.com/nomina-co/nomina/internal/shared"
	"github.com/nomina-co/nomina/internal/validation"
	"github.com/nomina-co/nomina/internal/voucher"
	"github.com/nomina-co/nomina/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN, logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
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
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	locker := shared.NewLocker(redisClient)

	periodRepo := period.NewRepository(pool)
	periodService := period.NewService(periodRepo, cfg.Periodicity(), logger)

	draftService := payroll.NewDraftService(payroll.NewRepository(pool), locker, logger)

	validationRepo := validation.NewRepository(pool)
	engine := validation.NewEngine(validationRepo, validationRepo, logger)

	dispatcher := voucher.NewDispatcher(voucher.NewRepository(pool), jobClient, logger)

	liquidationService := liquidation.NewService(
		liquidation.NewRepository(pool),
		engine,
		payroll.NewCalculator(),
		auditLogger,
		locker,
		liquidation.Config{LockTTL: cfg.PeriodLockTTL, Workers: cfg.LiquidationWorkers},
	).WithVouchers(dispatcher).WithMetrics(metrics.Jobs()).WithLogger(logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		PeriodHandler:      periodhttp.NewHandler(logger, periodService),
		PayrollHandler:     payrollhttp.NewHandler(logger, draftService),
		LiquidationHandler: liquidationhttp.NewHandler(logger, liquidationService, dispatcher),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
		Readiness: map[string]app.Pinger{
			"postgres": pool,
			"redis":    app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
