package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RelayConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	Block         time.Duration
}

// Relay drains the notification stream through a consumer group and hands
// every message to the delivery Notifier. Messages are acked only after a
// successful delivery; stalled ones are claimed again after ClaimInterval.
type Relay struct {
	client   *redis.Client
	cfg      RelayConfig
	delivery Notifier
	logger   zerolog.Logger
}

func NewRelay(client *redis.Client, cfg RelayConfig, delivery Notifier, logger zerolog.Logger) *Relay {
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	return &Relay{client: client, cfg: cfg, delivery: delivery, logger: logger}
}

// EnsureGroup creates the consumer group (and stream) when missing.
func (r *Relay) EnsureGroup(ctx context.Context) error {
	err := r.client.XGroupCreateMkStream(ctx, r.cfg.Stream, r.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (r *Relay) Start(ctx context.Context) error {
	if err := r.EnsureGroup(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(r.cfg.ClaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if _, err := r.ReadOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error().Err(err).Msg("stream read error")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(2 * time.Second):
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.ClaimStalled(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error().Err(err).Msg("claim stalled messages")
			}
		default:
		}
	}
}

// ReadOnce reads one batch of new messages and returns how many were delivered.
func (r *Relay) ReadOnce(ctx context.Context) (int, error) {
	result, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.cfg.Group,
		Consumer: r.cfg.Consumer,
		Streams:  []string{r.cfg.Stream, ">"},
		Count:    10,
		Block:    r.cfg.Block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}

	delivered := 0
	for _, stream := range result {
		for _, msg := range stream.Messages {
			if r.process(ctx, msg) {
				delivered++
			}
		}
	}
	return delivered, nil
}

// ClaimStalled re-delivers messages left pending longer than ClaimInterval.
func (r *Relay) ClaimStalled(ctx context.Context) (int, error) {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.cfg.Stream,
		Group:  r.cfg.Group,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, entry := range pending {
		if entry.Idle < r.cfg.ClaimInterval {
			continue
		}
		msgs, err := r.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   r.cfg.Stream,
			Group:    r.cfg.Group,
			Consumer: r.cfg.Consumer,
			MinIdle:  r.cfg.ClaimInterval,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			r.logger.Error().Err(err).Str("message_id", entry.ID).Msg("claim error")
			continue
		}
		for _, msg := range msgs {
			if r.process(ctx, msg) {
				delivered++
			}
		}
	}
	return delivered, nil
}

func (r *Relay) process(ctx context.Context, raw redis.XMessage) bool {
	msg, err := decodeMessage(raw.Values)
	if err != nil {
		// Undecodable entries would be claimed forever, so they are acked and dropped.
		r.logger.Error().Err(err).Str("message_id", raw.ID).Msg("dropping malformed notification")
		r.ack(ctx, raw.ID)
		return false
	}
	if err := r.delivery.Notify(ctx, msg); err != nil {
		r.logger.Error().
			Err(err).
			Str("message_id", raw.ID).
			Str("kind", string(msg.Kind)).
			Msg("deliver notification failed")
		return false
	}
	r.ack(ctx, raw.ID)
	return true
}

func (r *Relay) ack(ctx context.Context, id string) {
	if err := r.client.XAck(ctx, r.cfg.Stream, r.cfg.Group, id).Err(); err != nil {
		r.logger.Error().Err(err).Str("message_id", id).Msg("ack failed")
	}
}
