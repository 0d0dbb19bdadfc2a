// Package cache connects to the redis instance backing sessions and the
// notification stream.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cyberwise/portal/internal/config"
)

const (
	pingAttempts = 5
	pingBackoff  = 500 * time.Millisecond
)

// NewRedisClient returns a client once redis answers a ping. Startup races
// with the container are absorbed by a short linear backoff.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, clientName string, log zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: clientName,
	})

	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return client, nil
		}

		log.Warn().Err(err).Int("attempt", attempt).Str("addr", cfg.Addr).Msg("redis not ready")
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * pingBackoff):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("redis ping: %w", err)
}
