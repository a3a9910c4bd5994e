package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualexpo/internal/domain"
)

type fakeRedis struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failGet error
	failSet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.failSet != nil {
		return redis.NewStatusResult("", f.failSet)
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestLiveSessionCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeRedis()
	c := NewLiveSessionCache(store, 15*time.Second)

	_, found, err := c.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "sess-1", domain.SessionStatusLive))
	assert.Equal(t, 15*time.Second, store.ttls["virtualexpo:session-status:sess-1"])

	status, found, err := c.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, domain.SessionStatusLive, status)

	require.NoError(t, c.Invalidate(ctx, "sess-1"))
	_, found, err = c.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Invalidate(ctx, "never-cached"))
}

func TestLiveSessionCache_UnknownValueIsAMiss(t *testing.T) {
	store := newFakeRedis()
	store.values["virtualexpo:session-status:sess-1"] = "paused"

	_, found, err := NewLiveSessionCache(store, time.Second).Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLiveSessionCache_Errors(t *testing.T) {
	store := newFakeRedis()
	store.failGet = errors.New("connection refused")
	store.failSet = errors.New("READONLY")
	c := NewLiveSessionCache(store, time.Second)

	_, _, err := c.Get(context.Background(), "sess-1")
	require.Error(t, err)
	require.Error(t, c.Set(context.Background(), "sess-1", domain.SessionStatusEnded))
}
