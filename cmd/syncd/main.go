package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	httpAdapter "github.com/gatherly/dashboard-sync/internal/adapters/primary/http"
	mw "github.com/gatherly/dashboard-sync/internal/adapters/primary/http/middleware"
	"github.com/gatherly/dashboard-sync/internal/adapters/secondary/rest"
	"github.com/gatherly/dashboard-sync/internal/adapters/secondary/socket"
	"github.com/gatherly/dashboard-sync/internal/auth"
	"github.com/gatherly/dashboard-sync/internal/config"
	"github.com/gatherly/dashboard-sync/internal/core/services"
	"github.com/gatherly/dashboard-sync/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting sync core",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Credential Source
	tokens := auth.NewExpiryGuard(
		auth.NewStaticTokenSource(cfg.Auth.Token),
		30*time.Second,
		logger,
	)

	// 4. Secondary Adapters
	transport := socket.NewTransport(cfg.Realtime.URL, logger)
	apiClient := rest.NewClient(cfg.API.BaseURL, tokens, logger)
	notificationStore := rest.NewNotificationStore(apiClient)
	chatAPI := rest.NewChatAPI(apiClient)

	// 5. Core Services
	bus := services.NewEventBus(logger)
	manager := services.NewConnectionManager(transport, tokens, bus, services.ConnectionManagerConfig{
		MaxAttempts: cfg.Realtime.MaxRetryAttempts,
		BaseDelay:   cfg.Realtime.RetryBaseDelay,
	}, logger)

	reconciler := services.NewNotificationReconciler(notificationStore, bus, logger)
	typing := services.NewTypingIndicatorCoordinator(manager, bus, cfg.Typing.QuietPeriod, logger)
	chats := services.NewChatSessionController(chatAPI, manager, typing, bus, logger)

	reconciler.Attach()
	typing.Attach()
	chats.Attach()

	// 6. Status Server (Primary Adapter)
	statusHandler := httpAdapter.NewStatusHandler(manager, reconciler, chats, cfg.App.Version)

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Status.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.RateLimit.Enabled {
		rateLimiter := mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		r.Use(rateLimiter.Middleware)
	}

	r.Get("/health", statusHandler.HandleHealth)
	r.Route("/api/v1", statusHandler.RegisterRoutes)

	srv := &http.Server{
		Addr:         cfg.Status.Port,
		Handler:      r,
		ReadTimeout:  cfg.Status.ReadTimeout,
		WriteTimeout: cfg.Status.WriteTimeout,
		IdleTimeout:  cfg.Status.IdleTimeout,
	}

	go func() {
		logger.Info("status server starting", "port", cfg.Status.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server error", "error", err)
			os.Exit(1)
		}
	}()

	// 7. Warm the local caches, then open the realtime connection
	ctx := context.Background()
	if _, err := reconciler.LoadHistory(ctx); err != nil {
		logger.Warn("initial notification load failed", "error", err)
	}
	if _, err := chats.ListChats(ctx); err != nil {
		logger.Warn("initial chat list load failed", "error", err)
	}

	if err := manager.Connect(); err != nil {
		logger.Warn("realtime connection not started", "error", err)
	}

	// 8. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Status.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("status server shutdown failed", "error", err)
	}

	chats.Detach()
	typing.Detach()
	reconciler.Detach()
	manager.Disconnect()

	logger.Info("shutdown complete")
}
