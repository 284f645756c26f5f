package cli

import (
	"context"
	"fmt"

	"spendpoints/internal/amqp"
	"spendpoints/internal/cache"
	"spendpoints/internal/config"
	applog "spendpoints/internal/log"
	"spendpoints/internal/services"
	"spendpoints/internal/sheets"
	gsheet "spendpoints/internal/sheets/google"
	mem "spendpoints/internal/sheets/memory"
)

// Leaderboard is a spreadsheet the standings are exported to.
type Leaderboard interface {
	sheets.LeaderboardWriter
	sheets.LeaderboardReader
}

// NewCaches builds the service caches for the configured backend. The
// returned closer stops in-process caches and releases the redis client,
// if any.
func NewCaches(ctx context.Context, cfg *config.Config, logger *applog.Logger) (services.Caches, func(), error) {
	opts := cache.Options{
		Backend: cfg.CacheBackend,
		Size:    cfg.CacheSize,
		TTL:     cfg.CacheTTL,
	}
	closer := func() {}

	if cfg.CacheBackend == "redis" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return services.Caches{}, closer, err
		}
		opts.Redis = client
		closer = func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", applog.FieldError, err)
			}
		}
	}

	caches, err := services.NewCaches(opts)
	if err != nil {
		closer()
		return services.Caches{}, func() {}, err
	}
	logger.Info("Caches ready", "backend", cfg.CacheBackend, "ttl", cfg.CacheTTL)
	closeClient := closer
	return caches, func() {
		caches.Close()
		closeClient()
	}, nil
}

// NewPublisher connects to the broker when AMQP_URL is set. A nil client
// means publishing is disabled.
func NewPublisher(cfg *config.Config, logger *applog.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	logger.Info("AMQP client connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// NewLeaderboard returns the Google Sheets leaderboard when a spreadsheet
// is configured and an in-memory one otherwise.
func NewLeaderboard(ctx context.Context, cfg *config.Config, logger *applog.Logger) (Leaderboard, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - keeping leaderboard in memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:    cfg.GoogleSpreadsheetID,
		LeaderboardSheet: cfg.GoogleLeaderboardSheet,
		CredentialsJSON:  cfg.GoogleServiceAccountJSON,
		CredentialsFile:  cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("init Google Sheets: %w", err)
	}
	logger.Info("Google Sheets leaderboard ready",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleLeaderboardSheet)
	return client, nil
}
