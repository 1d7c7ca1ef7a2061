package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/wolfman30/dental-assistant/internal/api/router"
	"github.com/wolfman30/dental-assistant/internal/app/bootstrap"
	"github.com/wolfman30/dental-assistant/internal/clinic"
	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	"github.com/wolfman30/dental-assistant/internal/conversation"
	"github.com/wolfman30/dental-assistant/internal/http/handlers"
	"github.com/wolfman30/dental-assistant/internal/observability/metrics"
	"github.com/wolfman30/dental-assistant/internal/webchat"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger.Info("starting dental-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	profiles, profile := bootstrap.BuildProfileStore(redisClient, cfg)

	awsCfg, err := loadAWS(ctx, cfg, logger)
	if err != nil {
		return err
	}

	backend, err := setupStorage(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	registry, metricsHandler := setupMetrics()
	dialogMetrics := metrics.NewDialogMetrics(registry)

	responder, closeResponder, err := bootstrap.BuildResponder(ctx, cfg, awsCfg, profiles, logger)
	if err != nil {
		return err
	}
	defer closeResponder()

	core, err := bootstrap.BuildCore(bootstrap.CoreDeps{
		Profile:   profile,
		Hours:     bootstrap.BuildHours(cfg),
		Store:     backend.Store,
		Responder: responder,
		Notifier:  bootstrap.BuildNotifier(cfg, awsCfg, logger),
		Metrics:   dialogMetrics,
		Logger:    logger,
	}, cfg.BookingHorizonDays)
	if err != nil {
		return err
	}
	// Let queued staff emails go out before exit.
	defer core.Bookings.Wait()

	archiveStore := setupArchive(cfg, awsCfg, logger)
	opts := []conversation.ServiceOption{conversation.WithServiceMetrics(dialogMetrics)}
	if ta := transcriptArchiver(archiveStore, logger); ta != nil {
		opts = append(opts, conversation.WithArchiver(ta))
	}
	sessions := bootstrap.BuildSessionStore(redisClient, cfg, logger)
	chat := conversation.NewService(core.Engine, sessions, logger, opts...)

	var exports handlers.ExportArchiver
	if archiveStore.Enabled() {
		exports = archiveStore
	}

	r := router.New(&router.Config{
		Logger:             logger,
		Conversation:       conversation.NewHandler(chat, core.Engine, core.Resolver, logger),
		Clinic:             clinic.NewHandler(profiles, logger),
		AdminAppointments:  handlers.NewAdminAppointmentsHandler(backend.Reporter, exports, logger),
		Webchat:            webchat.NewHandler(chat, uuid.NewString, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        setupRateLimiter(ctx, cfg, redisClient, logger),
	})

	// Create HTTP server. No WriteTimeout: web chat sockets are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
