// Package main is the entry point for the statement import service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gitlab.com/yelinaung/expense-importer/internal/api"
	"gitlab.com/yelinaung/expense-importer/internal/bot"
	"gitlab.com/yelinaung/expense-importer/internal/classifier"
	"gitlab.com/yelinaung/expense-importer/internal/config"
	"gitlab.com/yelinaung/expense-importer/internal/database"
	"gitlab.com/yelinaung/expense-importer/internal/gemini"
	"gitlab.com/yelinaung/expense-importer/internal/ingest"
	"gitlab.com/yelinaung/expense-importer/internal/logger"
	"gitlab.com/yelinaung/expense-importer/internal/repository"
	"gitlab.com/yelinaung/expense-importer/internal/statement"
	"gitlab.com/yelinaung/expense-importer/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	shutdownTimeout    = 30 * time.Second
	interruptedMessage = "interrupted by service restart"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("expense-importer %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.InitHashSalt()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Exporter:    cfg.OTelExporter,
		ServiceName: cfg.OTelServiceName,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	defer func() {
		tctx, tcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer tcancel()
		if err := shutdownTelemetry(tctx); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create metrics")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if err := database.SeedCategories(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to seed categories")
	}

	if err := database.SeedPartners(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to seed partners")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	statements := repository.NewStatementRepository(pool)
	expenses := repository.NewExpenseRepository(pool)
	categories := repository.NewCategoryRepository(pool)
	partners := repository.NewPartnerRepository(pool)

	// Jobs do not survive a restart.
	if n, err := statements.FailInterrupted(ctx, interruptedMessage); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to fail interrupted statements")
	} else if n > 0 {
		logger.Log.Warn().Int64("statements", n).Msg("Marked interrupted statements as failed")
	}

	var suggester classifier.Suggester
	if cfg.AIEnabled() {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, gemini.Options{
			Model:   cfg.GeminiModel,
			Timeout: cfg.ClassifierTimeout,
		})
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		suggester = classifier.NewRateLimitedSuggester(client, cfg.ClassifierRate, cfg.ClassifierBurst)
		logger.Log.Info().Str("model", client.Model()).Msg("AI classification enabled")
	} else {
		logger.Log.Warn().Msg("GEMINI_API_KEY not set, using keyword classification only")
	}

	parser := statement.NewParser(classifier.New(suggester, cfg.DefaultCategory, metrics))
	runner := ingest.NewRunner(ingest.RunnerDeps{
		Statements: statements,
		Expenses:   expenses,
		Categories: categories,
		Partners:   partners,
		Parser:     parser,
		Metrics:    metrics,
	})

	queue := ingest.NewQueue(cfg.IngestQueueSize, cfg.IngestWorkers, runner.Run)
	queue.Start()

	svc := ingest.NewService(ingest.ServiceConfig{
		Statements:     statements,
		Expenses:       expenses,
		Partners:       partners,
		Queue:          queue,
		Metrics:        metrics,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewHandler(svc, logger.Log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error().Err(err).Msg("API server stopped")
			cancel()
		}
	}()

	if cfg.BotEnabled() {
		telegramBot, err := bot.New(cfg, svc)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to create bot")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			telegramBot.Start(ctx)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}
	logger.Log.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to shut down API server")
	}

	if err := queue.Stop(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to stop ingestion queue")
	}

	wg.Wait()
	logger.Log.Info().Msg("Shutdown complete")
}
