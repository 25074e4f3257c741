package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"PredictiBoot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetExpire(t *testing.T) {
	now := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithMemoryClock(func() time.Time { return now }))
	defer c.Close()
	ctx := context.Background()

	want := []model.StockListing{{Code: "005930", Name: "삼성전자", Market: "KOSPI"}}
	require.NoError(t, c.Set(ctx, "listings", want, time.Hour))

	var got []model.StockListing
	require.NoError(t, c.Get(ctx, "listings", &got))
	assert.Equal(t, want, got)

	now = now.Add(2 * time.Hour)
	require.True(t, errors.Is(c.Get(ctx, "listings", &got), ErrCacheMiss))
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(func() time.Time { return now }))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, time.Hour))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "b", 2, time.Hour))
	now = now.Add(time.Second)
	var v int
	require.NoError(t, c.Get(ctx, "a", &v))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "c", 3, time.Hour))

	assert.True(t, errors.Is(c.Get(ctx, "b", &v), ErrCacheMiss))
	require.NoError(t, c.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)

	require.NoError(t, c.Delete(ctx, "a"))
	assert.True(t, errors.Is(c.Get(ctx, "a", &v), ErrCacheMiss))
}

func TestGetOrLoad(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (string, error) {
		calls++
		return "삼성전자", nil
	}
	for i := 0; i < 3; i++ {
		got, err := GetOrLoad(ctx, c, GenerateKey("name", "005930"), time.Hour, load)
		require.NoError(t, err)
		assert.Equal(t, "삼성전자", got)
	}
	assert.Equal(t, 1, calls)

	_, err := GetOrLoad(ctx, c, "failing", time.Hour, func(context.Context) (int, error) {
		return 0, errors.New("down")
	})
	require.Error(t, err)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "news:005930:5", GenerateKey("news", "005930", 5))
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c, err := NewRedisCache(RedisConfig{Addr: addr, Prefix: "predictiboot-test"})
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	var got map[string]int
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 1, got["a"])
	require.NoError(t, c.Delete(ctx, "k"))
	assert.True(t, errors.Is(c.Get(ctx, "k", &got), ErrCacheMiss))
}
