// Package main runs the background worker: transactional email delivery and convention expiry.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conventionhub/backend/config"
	"github.com/conventionhub/backend/internal/conventions"
	"github.com/conventionhub/backend/internal/emaillogs"
	"github.com/conventionhub/backend/internal/realtime"
	"github.com/conventionhub/backend/internal/worker"
	"github.com/conventionhub/backend/pkg/database"
	"github.com/conventionhub/backend/pkg/mailer"
	"github.com/conventionhub/backend/pkg/queue"
	"github.com/conventionhub/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue, err := queue.Open(cfg.Queue.Driver, rdb.Client, cfg.Queue.AMQPURL, logger)
	if err != nil {
		logger.Fatal("queue", zap.Error(err))
	}
	defer jobQueue.Close()

	renderer, err := mailer.NewRenderer(cfg.App.Name)
	if err != nil {
		logger.Fatal("email templates", zap.Error(err))
	}
	var sender mailer.Sender = mailer.LogSender{Logger: logger}
	if cfg.Email.Enabled() {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:        cfg.Email.SMTPHost,
			Port:        cfg.Email.SMTPPort,
			User:        cfg.Email.SMTPUser,
			Pass:        cfg.Email.SMTPPass,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
		})
	} else {
		logger.Warn("SMTP_HOST not set; emails are logged, not sent")
	}
	emails := worker.NewEmailProcessor(jobQueue, renderer, sender, emaillogs.NewRepository(pool), logger)

	// Publish-only hub: expiry events reach API instances through Redis.
	hub := realtime.NewHub(logger, realtime.NewRedisPubSub(rdb.Client, logger), nil)
	conventionSvc := conventions.NewService(conventions.NewRepository(pool), hub, logger)
	expiry := worker.NewExpiryJob(conventionSvc, cfg.Jobs.ExpiryInterval, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		emails.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		expiry.Run(workerCtx)
	}()
	logger.Info("worker started",
		zap.String("queue", cfg.Queue.Driver),
		zap.Duration("expiry_interval", cfg.Jobs.ExpiryInterval),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	wg.Wait()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
