package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendpoints/internal/cache"
	"spendpoints/internal/cli"
	apphttp "spendpoints/internal/http"
	applog "spendpoints/internal/log"
	"spendpoints/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogJSON, applog.ComponentApp)

	ctx := context.Background()

	repo, err := cli.OpenRepository(logger.WithComponent(applog.ComponentStorage), cfg.SQLiteDBPath)
	if err != nil {
		os.Exit(1)
	}
	defer repo.Close()

	caches, closeCaches, err := cli.NewCaches(ctx, cfg, logger.WithComponent(applog.ComponentCache))
	if err != nil {
		logger.Error("Failed to initialize caches", applog.FieldError, err)
		os.Exit(1)
	}
	defer closeCaches()

	cacheManager := cache.NewManager()
	cacheManager.Register(caches.Standings)
	cacheManager.Register(caches.Progress)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	amqpClient, err := cli.NewPublisher(cfg, logger.WithComponent(applog.ComponentAMQP))
	if err != nil {
		// Points are still stored; the leaderboard catches up on its ticker.
		logger.Warn("AMQP unavailable, continuing without points events", applog.FieldError, err)
	}
	var publisher services.EventPublisher
	if amqpClient != nil {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Accounts:     services.NewAccountService(repo, caches),
		Categories:   services.NewCategoryService(repo, caches),
		Expenditures: services.NewExpenditureService(repo, publisher, caches),
		Logins:       services.NewLoginService(repo, publisher, caches),
		Reports:      services.NewReportService(repo, caches),
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready:              repo,
	})
	if err != nil {
		logger.Error("Failed to configure HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting spendpoints server", "port", cfg.Port, "cache_backend", cfg.CacheBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
