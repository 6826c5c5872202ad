package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brightmind-health/chartwatch/internal/api/router"
	"github.com/brightmind-health/chartwatch/internal/artifact"
	"github.com/brightmind-health/chartwatch/internal/assessment"
	appconfig "github.com/brightmind-health/chartwatch/internal/config"
	"github.com/brightmind-health/chartwatch/internal/emr"
	"github.com/brightmind-health/chartwatch/internal/events"
	"github.com/brightmind-health/chartwatch/internal/http/handlers"
	"github.com/brightmind-health/chartwatch/internal/monitor"
	"github.com/brightmind-health/chartwatch/internal/observability/metrics"
	"github.com/brightmind-health/chartwatch/internal/statusbus"
	"github.com/brightmind-health/chartwatch/internal/worker/outbound"
	"github.com/brightmind-health/chartwatch/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting chartwatch monitor",
		"env", cfg.Env,
		"ops_port", cfg.OpsPort,
		"poll_interval", cfg.PollInterval.String(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	store := events.NewStore(pool)

	if cfg.ReplayFile == "" {
		logger.Error("REPLAY_FILE is required: the tracking board driver attaches through a replay capture")
		os.Exit(1)
	}
	board, err := emr.LoadReplay(cfg.ReplayFile)
	if err != nil {
		logger.Error("failed to load replay capture", "path", cfg.ReplayFile, "error", err)
		os.Exit(1)
	}

	artifacts := artifact.NewStore(cfg.OutputDir)
	trackingMetrics := metrics.NewTrackingMetrics(nil)
	stats := monitor.NewSessionStats()

	orch := monitor.NewOrchestrator(store, board, artifacts, logger).
		WithTimeout(cfg.ExtractionTimeout).
		WithRetryFailed(cfg.RetryFailedExtractions).
		WithMetrics(trackingMetrics)

	switch {
	case cfg.SimulateResponses:
		sim := assessment.NewSimulator(store, logger).WithDelay(cfg.SimulatorDelay)
		defer sim.Close()
		orch = orch.WithSender(sim)
		logger.Info("assessment simulator enabled", "delay", cfg.SimulatorDelay.String())
	case cfg.AssessmentBaseURL != "":
		client := assessment.NewClient(cfg.AssessmentBaseURL, cfg.AssessmentAPIKey, logger).
			WithTimeout(cfg.AssessmentTimeout)
		orch = orch.WithSender(client)
	default:
		logger.Warn("no assessment endpoint configured; events stop at converted")
	}

	expiry := monitor.NewExpiryController(store, artifacts, logger)

	processor := outbound.NewResultProcessor(store, logger).
		WithInterval(cfg.OutboundPollInterval).
		WithMaxErrors(cfg.OutboundMaxErrors).
		WithMetrics(trackingMetrics)
	go processor.Run(ctx)

	mon := monitor.New(board, orch, expiry, stats, logger).
		WithPollInterval(cfg.PollInterval).
		WithConnectRetryWindow(cfg.ConnectRetryWindow).
		WithDrainer(processor, cfg.OutboundDrainBudget).
		WithMetrics(trackingMetrics)

	ops := handlers.NewOpsHandler(store, stats, logger)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		publisher := statusbus.NewPublisher(redisClient, cfg.StatusChannel)
		mon = mon.WithPublisher(publisher)
		ops = ops.WithLogSource(publisher)
		logger.Info("status bus enabled", "addr", cfg.RedisAddr, "channel", cfg.StatusChannel)
	}

	r := router.New(&router.Config{
		Logger:          logger,
		Ops:             ops,
		StatusFeed:      handlers.NewStatusFeed(stats),
		MetricsHandler:  promhttp.Handler(),
		AdminAuthSecret: cfg.AdminJWTSecret,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.OpsPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutdown signal received")
		cancel()
	}()

	runErr := mon.Run(ctx)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server forced to shutdown", "error", err)
	}

	if runErr != nil {
		logger.Error("monitor halted", "error", runErr)
		os.Exit(1)
	}
	logger.Info("monitor stopped")
}
