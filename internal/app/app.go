// Package app wires configuration into the concrete backends shared by the
// portal binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cyberwise/portal/internal/cache"
	"cyberwise/portal/internal/config"
	"cyberwise/portal/internal/database"
	"cyberwise/portal/internal/notify"
	"cyberwise/portal/internal/repository"
	"cyberwise/portal/internal/repository/memory"
	"cyberwise/portal/internal/repository/postgres"
	"cyberwise/portal/internal/session"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverLog      = "log"
	DriverStream   = "stream"
)

// OpenPostgres connects to Postgres and applies pending migrations.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := database.NewPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	applied, err := database.NewMigrator(pool, postgres.Migrations, "migrations", log).Up(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if len(applied) > 0 {
		log.Info().Strs("versions", applied).Msg("migrations applied")
	}
	return pool, nil
}

// OpenStore returns the configured repository.Store.
func OpenStore(ctx context.Context, cfg config.StoreConfig, pg config.PostgresConfig, log zerolog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	case DriverPostgres, "":
		pool, err := OpenPostgres(ctx, pg, log)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NeedsRedis reports whether any configured backend talks to redis.
func NeedsRedis(cfg *config.AppConfig) bool {
	return cfg.Session.Driver == DriverRedis || cfg.Notify.Driver == DriverStream
}

func OpenRedis(ctx context.Context, cfg config.RedisConfig, clientName string, log zerolog.Logger) (*redis.Client, error) {
	return cache.NewRedisClient(ctx, cfg, clientName, log)
}

func NewSessionStore(cfg config.SessionConfig, client *redis.Client) (session.Store, error) {
	switch cfg.Driver {
	case DriverRedis, "":
		if client == nil {
			return nil, fmt.Errorf("session driver %q needs a redis client", cfg.Driver)
		}
		return session.NewRedisStore(client), nil
	case DriverMemory:
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}

func NewRenderer(cfg config.NotifyConfig) (*notify.Renderer, error) {
	return notify.NewRenderer(notify.Branding{
		ProgramName:  cfg.ProgramName,
		BaseURL:      cfg.BaseURL,
		SupportEmail: cfg.SupportEmail,
		SupportPhone: cfg.SupportPhone,
	})
}

// NewNotifier returns the notifier services publish to. With the stream
// driver delivery happens in the notifier binary.
func NewNotifier(cfg config.NotifyConfig, client *redis.Client, log zerolog.Logger) (notify.Notifier, error) {
	switch cfg.Driver {
	case DriverLog, "":
		renderer, err := NewRenderer(cfg)
		if err != nil {
			return nil, err
		}
		return notify.NewLogNotifier(renderer, log), nil
	case DriverStream:
		if client == nil {
			return nil, fmt.Errorf("notify driver %q needs a redis client", cfg.Driver)
		}
		return notify.NewStreamNotifier(client, cfg.Stream), nil
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}
}
