package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-shop-checkout/internal/config"
	kafkax "github.com/ariefcatur/go-shop-checkout/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout/internal/logging"
	"github.com/ariefcatur/go-shop-checkout/internal/notify"
	"github.com/ariefcatur/go-shop-checkout/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.Setup(cfg.ServiceName+"-notifier", cfg.LogLevel)
	if err := cfg.ValidateNotifier(); err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("redis ping")
	}

	worker := notify.NewWorker(
		redisx.NewDedup(rdb, "notifier"),
		notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.MailUsername, cfg.MailPassword, cfg.MailFrom),
		logger,
	)

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, notify.TopicOrderConfirmed, cfg.NotifierWorkers, logger)
	logger.Info().Str("group", cfg.NotifierGroup).Int("workers", cfg.NotifierWorkers).Msg("notifier consumer started")
	if err := cons.Start(ctx, worker.HandleOrderConfirmed); err != nil {
		logger.Error().Err(err).Msg("consumer exit")
		os.Exit(1)
	}
	logger.Info().Msg("notifier stopped")
}
