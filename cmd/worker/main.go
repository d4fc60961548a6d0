// Package main runs the delayed-job worker: it polls the queue and
// expires funding transactions whose checkout session was abandoned.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"nilepay/internal/config"
	"nilepay/internal/jobs"
	"nilepay/internal/repositories"
	"nilepay/internal/services/expiry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := repositories.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	store := repositories.NewStore(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	queue := jobs.NewRedisQueue(redisClient)

	expiryService := expiry.NewService(store, logger)
	worker := jobs.NewWorker(queue, expiryService.HandleJob, logger,
		cfg.WorkerConcurrency, cfg.WorkerPollEvery)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker starting",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Duration("poll_interval", cfg.WorkerPollEvery))
	worker.Run(ctx)
	logger.Info("worker stopped")
}
