package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"cyberwise/portal/internal/app"
	"cyberwise/portal/internal/attachment"
	"cyberwise/portal/internal/config"
	"cyberwise/portal/internal/handlers"
	"cyberwise/portal/internal/jobs"
	"cyberwise/portal/internal/log"
	"cyberwise/portal/internal/metrics"
	"cyberwise/portal/internal/server"
	"cyberwise/portal/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("api exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("server exited cleanly")
}

func run(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) error {
	store, err := app.OpenStore(ctx, cfg.Store, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var redisClient *redis.Client
	if app.NeedsRedis(cfg) {
		redisClient, err = app.OpenRedis(ctx, cfg.Redis, "cyberwise-api", logger)
		if err != nil {
			return err
		}
		defer closeRedis(logger, redisClient)
	}

	sessions, err := app.NewSessionStore(cfg.Session, redisClient)
	if err != nil {
		return err
	}
	notifier, err := app.NewNotifier(cfg.Notify, redisClient, logger)
	if err != nil {
		return err
	}
	files, err := attachment.NewStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	registry, err := metrics.NewRegistry(collector)
	if err != nil {
		return err
	}

	handlerSet, err := handlers.NewHandlerSet(logger, cfg, handlers.Dependencies{
		Store:          store,
		Sessions:       sessions,
		Cache:          redisClient,
		Files:          files,
		Notifier:       notifier,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
	})
	if err != nil {
		return err
	}

	seedAdmin(ctx, cfg.SeedAdmin, handlerSet.Accounts(), logger)

	scheduler := jobs.NewScheduler(store.Applications(), files, collector, cfg.Uploads, logger)
	if err := scheduler.Start(); err != nil {
		return err
	}

	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, collector)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received")
		return shutdown(logger, httpServer, scheduler)
	})
	return g.Wait()
}

func shutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	scheduler.Stop(shutdownCtx)
	return err
}

// seedAdmin creates the configured admin account when a password is set.
func seedAdmin(ctx context.Context, cfg config.SeedAdminConfig, accounts *service.AccountService, logger zerolog.Logger) {
	if cfg.Password == "" {
		return
	}
	created, err := accounts.EnsureAdmin(ctx, service.AdminAccount{
		AdmissionNumber: cfg.AdmissionNumber,
		FullName:        cfg.FullName,
		Email:           cfg.Email,
		Password:        cfg.Password,
	})
	if err != nil {
		logger.Error().Err(err).Str("admission_number", cfg.AdmissionNumber).Msg("seed admin failed")
		return
	}
	if created {
		logger.Info().Str("admission_number", cfg.AdmissionNumber).Msg("seed admin created")
	}
}

func closeRedis(logger zerolog.Logger, client *redis.Client) {
	if err := client.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}
}
