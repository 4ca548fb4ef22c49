package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/stockflow-hq/stockflow/internal/app"
	"github.com/stockflow-hq/stockflow/internal/inventory"
	"github.com/stockflow-hq/stockflow/internal/platform/db"
	"github.com/stockflow-hq/stockflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	sendNow := flag.Bool("send-now", false, "enqueue a low-stock digest immediately on startup")
	flag.Parse()

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var recipients []string
	for _, addr := range strings.Split(cfg.AlertEmailTo, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}

	mailer := jobs.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	alertJob := jobs.NewLowStockEmailJob(inventory.NewRepository(pool), mailer, recipients, logger)

	digestTask, err := jobs.NewLowStockEmailTask(time.Now().UTC())
	if err != nil {
		logger.Error("build digest task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeLowStockEmail, Handler: alertJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AlertCronSpec, Task: digestTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if *sendNow {
		client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if _, err := client.EnqueueLowStockEmail(ctx); err != nil {
			logger.Error("enqueue digest", slog.Any("error", err))
		}
		if err := client.Close(); err != nil {
			logger.Warn("close queue client", slog.Any("error", err))
		}
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
