package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/api"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/api/handlers"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/api/utils"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/audit"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/auth"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/classify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/config"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/db"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/ledger"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/monitor"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/notify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/obs"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/scheduler"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/watch"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	logger := utils.GetLogger()
	defer logger.Sync()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	policy, power, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		logger.Fatal("invalid profile", zap.Error(err))
	}

	// Database
	database, err := db.Connect()
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := db.Migrate(); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	metrics, metricsHandler := obs.NewMetrics()

	// Audit ledger over the database, reloaded across restarts
	auditLedger := ledger.New(ledger.NewGormStore(database), cfg.Location, logger)
	if err := auditLedger.Restore(); err != nil {
		logger.Fatal("ledger restore failed", zap.Error(err))
	}

	// Classification pipeline shared by the webhook and the watcher
	classifier := classify.NewClassifier(policy, logger)
	pipeline := audit.NewPipeline(classifier, auditLedger, logger, metrics)

	// Hardware sampler
	reader, err := monitor.NewProcReader(cfg.StorageMount)
	if err != nil {
		logger.Fatal("cannot read /proc", zap.Error(err))
	}
	sampler := monitor.NewSampler(reader, power, auditLedger, cfg.SampleInterval, logger, metrics)
	sampler.Start()
	defer sampler.Stop()

	// Filesystem watcher, when share directories are configured
	if len(cfg.WatchDirs) > 0 {
		watcher, err := watch.New(cfg.WatchDirs, pipeline, watch.Options{}, logger)
		if err != nil {
			logger.Fatal("cannot create filesystem watcher", zap.Error(err))
		}
		if err := watcher.Start(); err != nil {
			logger.Fatal("cannot start filesystem watcher", zap.Error(err))
		}
		defer watcher.Stop()
	}

	// Daily rollup scheduler delivering reports by mail
	mailer := notify.NewSMTPMailer(cfg.Mail, logger)
	if missing := mailer.MissingFields(); len(missing) > 0 {
		logger.Warn("mail delivery not configured, daily rollups will fail until it is",
			zap.Strings("missing", missing))
	}
	rollups := scheduler.NewService(auditLedger, scheduler.NewGormRollupStore(database), mailer, scheduler.Options{
		TriggerHour:    cfg.ReportHour,
		TriggerMinute:  cfg.ReportMinute,
		SampleInterval: cfg.SampleInterval,
		Location:       cfg.Location,
	}, logger, metrics)
	rollups.Start()
	defer rollups.Stop()

	// Dashboard API
	authSvc := auth.NewService(database)
	router := api.Router(api.Deps{
		DB:      database,
		Auth:    authSvc,
		Audit:   handlers.NewAuditService(auditLedger, cfg.SampleInterval),
		Monitor: handlers.NewMonitorService(reader, power),
		Rollups: rollups,
		Uploads: pipeline,
	})

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsHandler,
	}

	go func() {
		logger.Info("dashboard API listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server failed", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", zap.Error(err))
	}
}
