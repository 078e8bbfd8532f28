package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

var adminAddr = wallet.MustParseAddress("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359")

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisStore(client), mr
}

func TestCreateResolveDestroy(t *testing.T) {
	store, mr := newRedisStore(t)
	svc := NewService(store, "secret", time.Hour)
	ctx := context.Background()

	tok, sess, err := svc.Create(ctx, Session{DisplayName: "Ada", ContentHash: "QmAda", WalletAddress: adminAddr, Role: registry.RoleAdmin})
	require.NoError(t, err)
	require.NotEmpty(t, tok.Value)
	require.NotEmpty(t, sess.ID)
	assert.True(t, mr.Exists(redisKeyPrefix+sess.ID))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(redisKeyPrefix+sess.ID).Seconds(), 1)

	got, err := svc.Resolve(ctx, tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.DisplayName)
	assert.Equal(t, registry.RoleAdmin, got.Role)
	assert.Equal(t, adminAddr, got.WalletAddress)

	require.NoError(t, svc.Destroy(ctx, tok.Value))
	_, err = svc.Resolve(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRejectsForeignSignature(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tok, _, err := NewService(store, "secret-a", time.Hour).Create(ctx, Session{WalletAddress: adminAddr, Role: registry.RoleAdmin})
	require.NoError(t, err)

	_, err = NewService(store, "secret-b", time.Hour).Resolve(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewService(store, "secret-a", time.Hour).Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, "secret", time.Minute)
	ctx := context.Background()

	tok, _, err := svc.Create(ctx, Session{WalletAddress: adminAddr, Role: registry.RoleEmployee})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.Resolve(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
