package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/gasflow-erp/gasflow/internal/app"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/masterdata"
	"github.com/gasflow-erp/gasflow/internal/platform/db"
	"github.com/gasflow-erp/gasflow/internal/reports"
	"github.com/gasflow-erp/gasflow/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	inventoryRepo := inventory.NewRepository(pool)
	registry, err := inventory.LoadRegistry(ctx, inventoryRepo)
	if err != nil {
		logger.Error("load stock lookups", slog.Any("error", err))
		os.Exit(1)
	}
	inventoryService := inventory.NewService(inventoryRepo, nil, nil, registry)
	masterdataService := masterdata.NewService(masterdata.NewRepository(pool))
	reportsService := reports.NewService(inventoryService, masterdataService)

	warmupJob := jobs.NewDSRWarmupJob(reportsService, logger)

	warmupTask, err := jobs.NewDSRWarmupTask(jobs.DSRWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportsDSRWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			// build yesterday's register before the depots open
			{Spec: "30 0 * * *", Task: warmupTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
