package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberwise/portal/internal/models"
)

func newSession(id, userID string, ttl time.Duration) models.Session {
	now := time.Now().UTC()
	return models.Session{
		ID:                 id,
		UserID:             userID,
		MustChangePassword: true,
		IPAddress:          "127.0.0.1",
		UserAgent:          "test",
		CreatedAt:          now,
		ExpiresAt:          now.Add(ttl),
	}
}

func stores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"redis":  NewRedisStore(client),
		"memory": NewMemoryStore(),
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Create(ctx, newSession("s1", "u1", time.Hour)))
			require.NoError(t, store.Create(ctx, newSession("s2", "u1", time.Hour)))
			require.NoError(t, store.Create(ctx, newSession("s3", "u2", time.Hour)))

			got, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "u1", got.UserID)
			assert.True(t, got.MustChangePassword)

			require.NoError(t, store.ClearPasswordChangeFlag(ctx, "s1"))
			got, err = store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.False(t, got.MustChangePassword)

			require.NoError(t, store.Delete(ctx, "s1"))
			require.NoError(t, store.Delete(ctx, "s1"))
			_, err = store.Get(ctx, "s1")
			assert.ErrorIs(t, err, ErrNotFound)

			n, err := store.DeleteByUser(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			_, err = store.Get(ctx, "s2")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.Get(ctx, "s3")
			assert.NoError(t, err)

			assert.ErrorIs(t, store.ClearPasswordChangeFlag(ctx, "missing"), ErrNotFound)
		})
	}
}

func TestRedisStoreExpiresWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1", "u1", time.Hour)))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("session:s1").Seconds(), 5)
	assert.True(t, mr.Exists("user_sessions:u1"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDropsExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	sess := newSession("s1", "u1", time.Minute)
	sess.ExpiresAt = now.Add(time.Minute)
	require.NoError(t, store.Create(ctx, sess))

	store.now = func() time.Time { return now.Add(time.Minute) }
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreRejectsExpiredSession(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	err := NewRedisStore(client).Create(context.Background(), newSession("s1", "u1", -time.Minute))
	assert.Error(t, err)
}
