package main

import (
	"context"
	"os"
	"time"

	"spendpoints/internal/cli"
	applog "spendpoints/internal/log"
	"spendpoints/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogJSON, applog.ComponentWorker)

	logger.Info("Starting leaderboard-worker")

	repo, err := cli.OpenRepository(logger.WithComponent(applog.ComponentStorage), cfg.SQLiteDBPath)
	if err != nil {
		os.Exit(1)
	}
	defer repo.Close()

	board, err := cli.NewLeaderboard(context.Background(), cfg, logger.WithComponent(applog.ComponentSheets))
	if err != nil {
		logger.Error("Failed to initialize leaderboard", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := cli.NewPublisher(cfg, logger.WithComponent(applog.ComponentAMQP))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	var consumer worker.Consumer
	if amqpClient != nil {
		consumer = amqpClient
		defer amqpClient.Close()
	} else {
		logger.Info("No AMQP consumer - exporting on the interval only")
	}

	w := worker.NewLeaderboardWorker(repo, board, worker.Config{Interval: cfg.LeaderboardInterval})

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)
	if err := w.Run(ctx, consumer); err != nil {
		logger.Error("Leaderboard worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Leaderboard worker stopped")
}
