package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedStore() (*MemoryStore, *time.Time) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	return store, &now
}

func TestMemoryStore_SetAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Set(ctx, AccessTokenKey, "jwt-value", 5*time.Minute)
	require.NoError(t, err)

	tok, err := store.Get(ctx, AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "jwt-value", tok.Value)
	assert.Equal(t, AccessTokenKey, tok.Key)
	assert.False(t, tok.IsExpired())
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMemoryStore_GetExpired(t *testing.T) {
	ctx := context.Background()
	store, now := newClockedStore()

	require.NoError(t, store.Set(ctx, MapTokenKey, "map", time.Minute))
	*now = now.Add(time.Minute)

	_, err := store.Get(ctx, MapTokenKey)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestMemoryStore_NoExpiry(t *testing.T) {
	ctx := context.Background()
	store, now := newClockedStore()

	require.NoError(t, store.Set(ctx, AccessTokenKey, "forever", 0))
	*now = now.Add(24 * 365 * time.Hour)

	tok, err := store.Get(ctx, AccessTokenKey)
	require.NoError(t, err)
	assert.True(t, tok.ExpiresAt.IsZero())
	assert.Equal(t, time.Duration(0), tok.TTL())
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.Set(ctx, "del-key", "val", 5*time.Minute)
	require.NoError(t, store.Delete(ctx, "del-key"))

	_, err := store.Get(ctx, "del-key")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.NoError(t, store.Delete(ctx, "nope"))
}

func TestMemoryStore_OverwriteKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Set(ctx, "key", "val1", 5*time.Minute)
	_ = store.Set(ctx, "key", "val2", 5*time.Minute)
	tok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "val2", tok.Value)
}

func TestMemoryStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	store, now := newClockedStore()

	_ = store.Set(ctx, "fresh", "val", 5*time.Minute)
	_ = store.Set(ctx, "forever", "val", 0)
	_ = store.Set(ctx, "stale1", "val", time.Second)
	_ = store.Set(ctx, "stale2", "val", time.Second)

	*now = now.Add(2 * time.Second)

	count, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestToken_IsExpired(t *testing.T) {
	tok := &Token{ExpiresAt: time.Now().Add(-1 * time.Second)}
	assert.True(t, tok.IsExpired())

	tok2 := &Token{ExpiresAt: time.Now().Add(1 * time.Hour)}
	assert.False(t, tok2.IsExpired())
	assert.Greater(t, tok2.TTL(), 59*time.Minute)
}

func TestExpiryFor(t *testing.T) {
	now := time.Now()
	assert.True(t, ExpiryFor(now, 0).IsZero())
	assert.True(t, ExpiryFor(now, -time.Second).IsZero())
	assert.Equal(t, now.Add(time.Hour), ExpiryFor(now, time.Hour))
}
