package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	payloadField = "payload"
	streamMaxLen = 10000
)

// StreamNotifier appends messages to a redis stream drained by Relay.
type StreamNotifier struct {
	client *redis.Client
	stream string
}

func NewStreamNotifier(client *redis.Client, stream string) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream}
}

func (n *StreamNotifier) Notify(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	err = n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"kind":       string(msg.Kind),
			payloadField: string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", msg.Kind, err)
	}
	return nil
}

func decodeMessage(values map[string]interface{}) (Message, error) {
	raw, ok := values[payloadField].(string)
	if !ok {
		return Message{}, fmt.Errorf("missing %s field", payloadField)
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Message{}, fmt.Errorf("decode payload: %w", err)
	}
	return msg, msg.Validate()
}
