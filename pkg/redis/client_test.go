package redis

import (
	"context"
	"testing"
	"time"

	"github.com/nmoreno/storefront-checkout/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	setNXCalls int
	setNXKey   string
	setNXOK    bool
	getValue   string
	getErr     error
}

func (s *stubStore) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (s *stubStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("OK", nil)
}

func (s *stubStore) Get(ctx context.Context, key string) *redis.StringCmd {
	return redis.NewStringResult(s.getValue, s.getErr)
}

func (s *stubStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	s.setNXCalls++
	s.setNXKey = key
	return redis.NewBoolResult(s.setNXOK, nil)
}

func (s *stubStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestIdempotencyKeyNamespacing(t *testing.T) {
	c := &Client{store: &stubStore{}}
	assert.Equal(t, "sc:idempotency:finalize:abc-123", c.IdempotencyKey("finalize", "abc-123"))
}

func TestSetNXDelegates(t *testing.T) {
	store := &stubStore{setNXOK: true}
	c := &Client{store: store}

	ok, err := c.SetNX(context.Background(), "sc:idempotency:finalize:k", "pending", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.setNXCalls)
	assert.Equal(t, "sc:idempotency:finalize:k", store.setNXKey)
}

func TestGetMissingKey(t *testing.T) {
	c := &Client{store: &stubStore{getErr: redis.Nil}}

	_, err := c.Get(context.Background(), "sc:idempotency:finalize:missing")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}

func TestOptionsFromConfigAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		Address:     "localhost:6379",
		DB:          2,
		PoolSize:    5,
		DialTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)
}
