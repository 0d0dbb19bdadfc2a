package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBranding = Branding{
	ProgramName:  "Cyberwise Ethical Hacking Bootcamp",
	BaseURL:      "http://portal.test/",
	SupportEmail: "support@portal.test",
	SupportPhone: "+254 700 000 000",
}

type recorder struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recorder) Notify(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestRenderApproval(t *testing.T) {
	renderer, err := NewRenderer(testBranding)
	require.NoError(t, err)

	email, err := renderer.Render(Message{
		Kind:              KindApplicationApproved,
		To:                "ada@example.com",
		Name:              "Ada Lovelace",
		AdmissionNumber:   "CYBERWISE001",
		TemporaryPassword: "Hacker@2025",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", email.To)
	assert.Equal(t, "Welcome to Cyberwise Ethical Hacking Bootcamp!", email.Subject)
	assert.Contains(t, email.Body, "Dear Ada Lovelace,")
	assert.Contains(t, email.Body, "Admission Number: CYBERWISE001")
	assert.Contains(t, email.Body, "Password: Hacker@2025")
	assert.Contains(t, email.Body, "Login at: http://portal.test/login")
	assert.Contains(t, email.Body, "Email: support@portal.test")
}

func TestRenderEveryKind(t *testing.T) {
	renderer, err := NewRenderer(testBranding)
	require.NoError(t, err)

	subjects := map[Kind]string{
		KindApplicationReceived: "Application Received - Cyberwise Ethical Hacking Bootcamp",
		KindApplicationRejected: "Application Status - Cyberwise Ethical Hacking Bootcamp",
		KindPasswordReset:       "Password Reset - Cyberwise Ethical Hacking Bootcamp",
	}
	for kind, subject := range subjects {
		email, err := renderer.Render(Message{Kind: kind, To: "x@example.com", Name: "X"})
		require.NoError(t, err, kind)
		assert.Equal(t, subject, email.Subject)
		assert.Contains(t, email.Body, "Best regards,")
	}
}

func TestRenderRejectsUnknownKind(t *testing.T) {
	renderer, err := NewRenderer(testBranding)
	require.NoError(t, err)

	_, err = renderer.Render(Message{Kind: "bogus", To: "x@example.com"})
	assert.Error(t, err)

	_, err = renderer.Render(Message{Kind: KindPasswordReset})
	assert.Error(t, err)
}

func TestStreamRelayDeliversAndAcks(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	cfg := RelayConfig{Stream: "notifications", Group: "mailers", Consumer: "c1", Block: 10 * time.Millisecond}
	delivery := &recorder{}
	relay := NewRelay(client, cfg, delivery, zerolog.Nop())
	require.NoError(t, relay.EnsureGroup(ctx))
	require.NoError(t, relay.EnsureGroup(ctx))

	publisher := NewStreamNotifier(client, "notifications")
	msg := Message{Kind: KindApplicationReceived, To: "ada@example.com", Name: "Ada"}
	require.NoError(t, publisher.Notify(ctx, msg))

	n, err := relay.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, delivery.msgs, 1)
	assert.Equal(t, msg, delivery.msgs[0])

	pending, err := client.XPending(ctx, "notifications", "mailers").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestStreamRelayLeavesFailedDeliveriesPending(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	delivery := &recorder{err: errors.New("smtp down")}
	relay := NewRelay(client, RelayConfig{Stream: "n", Group: "g", Consumer: "c", Block: 10 * time.Millisecond}, delivery, zerolog.Nop())
	require.NoError(t, relay.EnsureGroup(ctx))

	require.NoError(t, NewStreamNotifier(client, "n").Notify(ctx, Message{Kind: KindPasswordReset, To: "a@example.com"}))

	n, err := relay.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pending, err := client.XPending(ctx, "n", "g").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}

func TestStreamNotifierValidates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	err := NewStreamNotifier(client, "n").Notify(context.Background(), Message{Kind: KindPasswordReset})
	assert.Error(t, err)
	assert.False(t, mr.Exists("n"))
}
