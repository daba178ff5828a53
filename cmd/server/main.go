package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radugrosu/zero2prod/internal/api"
	"github.com/radugrosu/zero2prod/internal/config"
	"github.com/radugrosu/zero2prod/internal/db"
	"github.com/radugrosu/zero2prod/internal/domain"
	"github.com/radugrosu/zero2prod/internal/email"
	"github.com/radugrosu/zero2prod/internal/metrics"
	"github.com/radugrosu/zero2prod/internal/ratelimiter"
	"github.com/radugrosu/zero2prod/internal/repository"
	"github.com/radugrosu/zero2prod/internal/service"
	"github.com/radugrosu/zero2prod/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ownerID, err := uuid.Parse(cfg.AdminOwnerID)
	if err != nil {
		logger.Fatal("invalid ADMIN_OWNER_ID", zap.Error(err))
	}
	sender, err := domain.ParseEmail(cfg.EmailSender)
	if err != nil {
		logger.Fatal("invalid EMAIL_SENDER", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	deliveryRepo := repository.NewPgDeliveryRepository(pool)
	subscriberRepo := repository.NewPgSubscriberRepository(pool)
	emailClient := email.NewClient(cfg.EmailBaseURL, sender, cfg.EmailAuthToken, cfg.EmailSendTimeout)
	limiter := ratelimiter.New(cfg.SendRatePerSecond)

	publishSvc := service.NewPublishService(deliveryRepo, logger)
	subscriptionSvc := service.NewSubscriptionService(subscriberRepo, emailClient, cfg.BaseURL, logger)

	// ---- delivery workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onDelivered, onRetried, onSkipped := m.WorkerHooks()
	pool2 := worker.NewPool(cfg, deliveryRepo, emailClient, limiter, logger, worker.Hooks{
		OnDelivered: onDelivered,
		OnRetried:   onRetried,
		OnSkipped:   onSkipped,
	})
	pool2.Start(workerCtx)

	depthMonitor := worker.NewDepthMonitor(deliveryRepo, cfg.DepthInterval,
		func(depth int) { m.QueueDepth.Set(float64(depth)) }, logger)
	go depthMonitor.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(publishSvc, subscriptionSvc, deliveryRepo, api.AdminAuth{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		OwnerID:  ownerID,
	}, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal all workers to stop claiming new tasks.
	cancelWorkers()

	// 3. Wait for in-flight workers to finish their current task.
	pool2.Wait()

	logger.Info("server stopped cleanly")
}
