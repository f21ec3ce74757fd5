package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nakit/internal/amqp"
	"nakit/internal/config"
	"nakit/internal/core"
	"nakit/internal/fx"
	apphttp "nakit/internal/http"
	"nakit/internal/insights"
	applog "nakit/internal/log"
	"nakit/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "nakit"})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
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

	deps := apphttp.Deps{
		Repo:     repo,
		Rates:    rates,
		CacheTTL: cfg.ProjectionCacheTTL,
	}

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, refresh notifications disabled", "error", err)
		} else {
			defer amqpClient.Close()
			deps.Publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	if cfg.GeminiAPIKey != "" {
		analyst, err := insights.NewAnalyst(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Failed to initialize Gemini client, AI insights disabled", "error", err)
		} else {
			deps.Analyst = analyst
			logger.Info("Gemini client initialized", "model", cfg.GeminiModel)
		}
	} else {
		logger.Info("GEMINI_API_KEY not set, AI insights disabled")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting nakit server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
