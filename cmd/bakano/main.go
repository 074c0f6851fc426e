package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bakano/internal/ai"
	"bakano/internal/ai/gemini"
	"bakano/internal/amqp"
	"bakano/internal/config"
	apphttp "bakano/internal/http"
	"bakano/internal/ledger"
	applog "bakano/internal/log"
	"bakano/internal/services"
	"bakano/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it the backup worker just never hears
	// about new revisions.
	var publisher services.SyncPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, running without sync publishing", applog.FieldError, err)
	} else {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	svc := services.NewLedgerService(ledger.New(), repo, publisher)
	if err := svc.Seed(context.Background()); err != nil {
		logger.Error("Failed to seed ledger from snapshot", applog.FieldError, err)
		os.Exit(1)
	}

	// Gemini is optional too; extraction endpoints answer 503 without it.
	var (
		names    ai.NameExtractor
		reports  ai.ReportExtractor
		absences ai.AbsenceReporter
	)
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.New(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", applog.FieldError, err)
			os.Exit(1)
		}
		names, reports, absences = client, client, client
		logger.Info("Gemini client initialized")
	} else {
		logger.Info("Gemini disabled - no GEMINI_API_KEY provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, cfg, names, reports, absences)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

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
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting bakano server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
