package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessdesk/accessdesk/internal/shared"
)

func newRefreshStore(t *testing.T) (*RedisRefreshStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRefreshStore(client, time.Hour), mr
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	store, _ := newRefreshStore(t)
	ctx := context.Background()

	token, expiresAt, err := store.Issue(ctx, 9)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	userID, err := store.Consume(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(9), userID)

	_, err = store.Consume(ctx, token)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestRefreshTokenExpires(t *testing.T) {
	store, mr := newRefreshStore(t)
	ctx := context.Background()

	token, _, err := store.Issue(ctx, 9)
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	_, err = store.Consume(ctx, token)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestRefreshMalformedToken(t *testing.T) {
	store, _ := newRefreshStore(t)
	_, err := store.Consume(context.Background(), "../../etc")
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
	assert.NoError(t, store.Revoke(context.Background(), 9, "../../etc"))
}

func TestRevokeAndRevokeUser(t *testing.T) {
	store, mr := newRefreshStore(t)
	ctx := context.Background()

	a, _, err := store.Issue(ctx, 1)
	require.NoError(t, err)
	b, _, err := store.Issue(ctx, 1)
	require.NoError(t, err)
	other, _, err := store.Issue(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, 1, a))
	require.NoError(t, store.Revoke(ctx, 1, a))
	_, err = store.Consume(ctx, a)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)

	require.NoError(t, store.RevokeUser(ctx, 1))
	_, err = store.Consume(ctx, b)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
	assert.False(t, mr.Exists(userKey(1)))

	userID, err := store.Consume(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(2), userID)
}

func TestRevokeIgnoresTokenOfAnotherUser(t *testing.T) {
	store, mr := newRefreshStore(t)
	ctx := context.Background()

	token, _, err := store.Issue(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, 2, token))
	assert.True(t, mr.Exists(tokenKey(token)))
	members, err := mr.SMembers(userKey(1))
	require.NoError(t, err)
	assert.Contains(t, members, token)

	userID, err := store.Consume(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), userID)
}

func TestRevokeClearsOwnerIndex(t *testing.T) {
	store, mr := newRefreshStore(t)
	ctx := context.Background()

	a, _, err := store.Issue(ctx, 1)
	require.NoError(t, err)
	b, _, err := store.Issue(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, 1, a))
	assert.False(t, mr.Exists(tokenKey(a)))
	members, err := mr.SMembers(userKey(1))
	require.NoError(t, err)
	assert.Equal(t, []string{b}, members)
}
