package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/nomina-co/nomina/internal/app"
	jobmetrics "github.com/nomina-co/nomina/internal/jobs"
	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/platform/db"
	"github.com/nomina-co/nomina/internal/voucher"
	"github.com/nomina-co/nomina/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := os.MkdirAll(cfg.VoucherStorageDir, 0o755); err != nil {
		logger.Error("prepare voucher storage", slog.String("dir", cfg.VoucherStorageDir), slog.Any("error", err))
		os.Exit(1)
	}

	metrics := jobmetrics.NewMetrics(nil)

	generator := voucher.NewGenerator(voucher.NewRepository(pool), voucher.NewPDFRenderer(), cfg.VoucherStorageDir, logger)
	voucherJob := jobs.NewVoucherJob(generator, logger, metrics)

	periodRepo := period.NewRepository(pool)
	ensureYearJob := jobs.NewEnsureYearJob(period.NewService(periodRepo, cfg.Periodicity(), logger), periodRepo, logger, metrics)

	// Prepares the current and the following year every December.
	ensureYearTask, err := jobs.NewEnsureYearTask(jobs.EnsureYearPayload{IncludeNext: true})
	if err != nil {
		logger.Error("build ensure-year task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGenerateVoucher, Handler: voucherJob.Handle},
			{Type: jobs.TaskEnsureYear, Handler: ensureYearJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.EnsureYearCron, Task: ensureYearTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
