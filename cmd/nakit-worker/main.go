package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"nakit/internal/amqp"
	"nakit/internal/config"
	"nakit/internal/core"
	"nakit/internal/fx"
	"nakit/internal/insights"
	applog "nakit/internal/log"
	"nakit/internal/storage"
	"nakit/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "nakit-worker"})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	rates := fx.NewProvider(cfg.RatesURL, fx.Rates{
		core.EUR: cfg.FallbackEURRate,
		core.USD: cfg.FallbackUSDRate,
	})

	var analyst worker.Analyst
	if cfg.GeminiAPIKey != "" {
		a, err := insights.NewAnalyst(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Failed to initialize Gemini client, refresh reports disabled", "error", err)
		} else {
			analyst = a
			logger.Info("Gemini client initialized", "model", cfg.GeminiModel)
		}
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	wk := worker.NewRefreshWorker(repo, rates, analyst)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm the rate cache before the first message arrives.
	wk.RefreshRates(ctx)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RateRefreshCron, func() {
		wk.RefreshRates(context.Background())
	}); err != nil {
		logger.Error("Invalid rate refresh schedule", "error", err, "schedule", cfg.RateRefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeRefresh(ctx, func(msg *amqp.RefreshMessage) error {
			return wk.HandleRefreshMessage(ctx, msg)
		})
	})

	logger.Info("Worker started", "queue", cfg.AMQPQueue, "rate_refresh", cfg.RateRefreshCron)
	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
