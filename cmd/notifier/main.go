package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"cyberwise/portal/internal/app"
	"cyberwise/portal/internal/config"
	"cyberwise/portal/internal/log"
	"cyberwise/portal/internal/notify"
)

// The notifier drains the outbound notification stream written by the API
// and delivers each message. Delivery is the rendered log notifier until a
// mail transport is configured.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "notifier")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := app.OpenRedis(ctx, cfg.Redis, "cyberwise-notifier", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	renderer, err := app.NewRenderer(cfg.Notify)
	if err != nil {
		logger.Fatal().Err(err).Msg("load notification templates")
	}

	relay := notify.NewRelay(client, notify.RelayConfig{
		Stream:        cfg.Notify.Stream,
		Group:         cfg.Notify.Group,
		Consumer:      cfg.Notify.Consumer,
		ClaimInterval: cfg.Notify.ClaimInterval,
	}, notify.NewLogNotifier(renderer, logger), logger)

	logger.Info().
		Str("stream", cfg.Notify.Stream).
		Str("group", cfg.Notify.Group).
		Str("consumer", cfg.Notify.Consumer).
		Msg("notification relay starting")

	if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("relay stopped unexpectedly")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown signal received")
}
