package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/config"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/db"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/handlers"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/live"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/middleware"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/monitoring"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/queue"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/repositories"
	api "github.com/headonpro/viktoria-wertheim-backend-sub022/routes"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/services"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/storage"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/trigger"
)

const snapshotPruneSchedule = "@hourly"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	settingsStore := config.NewSettingsStore(cfg.Automation)

	var archiver storage.SnapshotArchiver = storage.NopArchiver{}
	if cfg.R2Configured() {
		archiver, err = storage.NewCloudflareR2Archiver(storage.CloudflareR2ArchiverConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 archiver", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 snapshot archiver initialized")
	} else {
		logger.Info("no R2 configuration found, pruned snapshots will be deleted without archiving")
	}

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	tableRepo := repositories.NewPostgresTableRepository(dbConn)
	snapshotRepo := repositories.NewPostgresSnapshotRepository(dbConn)
	logger.Info("repositories initialized")

	metrics := monitoring.NewMetrics()
	alertManager := monitoring.NewAlertManager(monitoring.DefaultThresholds(), logger)

	hub := live.NewHub(logger)
	go hub.Run()
	logger.Info("websocket hub started")

	authService := services.NewAuthService(userRepo)
	tableService := services.NewTableService(tableRepo)
	snapshotService := services.NewSnapshotService(snapshotRepo, tableRepo, archiver, settingsStore, metrics, logger)
	recalcService := services.NewRecalculationService(matchRepo, tableRepo, settingsStore)

	recalcQueue := queue.New(
		snapshotService,
		recalcService,
		tableRepo,
		settingsStore,
		logger,
		metrics,
		alertManager,
		live.NewQueueObserver(hub),
	)
	automationService := services.NewAutomationService(recalcQueue, alertManager, settingsStore, logger)

	queueCtx, stopQueue := context.WithCancel(context.Background())
	defer stopQueue()
	go func() {
		if err := recalcQueue.Run(queueCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("recalculation queue exited", slog.Any("error", err))
		}
	}()

	matchObserver := trigger.NewMatchObserver(recalcQueue, settingsStore, logger)
	defer matchObserver.Close()
	logger.Info("match trigger initialized")

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(snapshotPruneSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := snapshotService.Prune(ctx); err != nil {
			logger.Error("scheduled snapshot pruning failed", slog.Any("error", err))
		}
	}); err != nil {
		logger.Error("failed to schedule snapshot pruning", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("snapshot pruning scheduled", slog.String("schedule", snapshotPruneSchedule))

	authenticator := middleware.NewAuthenticator(cfg.JWTSecretKey)
	router := api.SetupRoutes(api.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Automation:  handlers.NewAutomationHandler(automationService),
		Snapshots:   handlers.NewSnapshotHandler(snapshotService, hub),
		Alerts:      handlers.NewAlertHandler(alertManager),
		Tables:      handlers.NewTableHandler(tableService),
		WebSocket:   handlers.NewWebSocketHandler(hub, logger),
		MatchEvents: handlers.NewMatchEventHandler(matchObserver),
		Metrics:     metrics.Handler(),
	}, authenticator, cfg.CORSAllowedOrigins)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		stopQueue()
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
