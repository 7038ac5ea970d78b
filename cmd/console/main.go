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

	"github.com/osgiliath/console/internal/analytics"
	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/app"
	"github.com/osgiliath/console/internal/auth"
	"github.com/osgiliath/console/internal/customers"
	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/observability"
	"github.com/osgiliath/console/internal/payments"
	"github.com/osgiliath/console/internal/platform/cache"
	"github.com/osgiliath/console/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	api := apiclient.New(cfg.BackendURL,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.BackendTimeout}),
		apiclient.WithLogger(logger),
		apiclient.WithObserver(metrics),
	)

	sessionManager := shared.NewSessionManager(redisClient, "console_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      auth.NewHandler(logger, auth.NewService(api), sessionManager, csrfManager),
		CustomersHandler: customers.NewHandler(logger, api),
		InvoicesHandler:  invoices.NewHandler(logger, api, analyticsCache),
		PaymentsHandler:  payments.NewHandler(logger, api, analyticsCache),
		AnalyticsHandler: analytics.NewHandler(logger, api, analyticsCache),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting console",
			slog.String("addr", cfg.AppAddr),
			slog.String("backend", cfg.BackendURL),
			slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
