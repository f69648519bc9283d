package session

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authorization "github.com/betandbeat/catalog-authorization"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, ttl), mr
}

func TestStore_Lifecycle(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := t.Context()

	token, err := store.Create(ctx, 42)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, mr.Exists("session:"+token))
	assert.Equal(t, time.Hour, mr.TTL("session:"+token))

	id, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	require.NoError(t, store.Destroy(ctx, token))
	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, authorization.ErrNotFound)

	require.NoError(t, store.Destroy(ctx, token), "destroying twice is harmless")
}

func TestStore_Expiry(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := t.Context()

	token, err := store.Create(ctx, 7)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, authorization.ErrNotFound)
}

func TestStore_ResolveEdgeCases(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := t.Context()

	_, err := store.Resolve(ctx, "")
	assert.ErrorIs(t, err, authorization.ErrNotFound)

	require.NoError(t, mr.Set("session:corrupt", "not-a-number"))
	_, err = store.Resolve(ctx, "corrupt")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, authorization.ErrNotFound)

	mr.Close()
	_, err = store.Resolve(ctx, "anything")
	assert.ErrorIs(t, err, authorization.ErrTransport)
}
