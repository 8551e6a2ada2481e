package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/core/interfaces"
)

func newCache() *MemoryCache {
	return NewMemoryCache(time.Hour, time.Minute)
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := newCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "i18n:hi:nav.home", []byte("होम"), time.Hour))

	got, err := cache.Get(ctx, "i18n:hi:nav.home")
	require.NoError(t, err)
	assert.Equal(t, "होम", string(got))
}

func TestMemoryCache_Get_Miss(t *testing.T) {
	cache := newCache()

	got, err := cache.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
	assert.Nil(t, got)
}

func TestMemoryCache_Get_Expired(t *testing.T) {
	cache := newCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := cache.Get(ctx, "short")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	cache := NewMemoryCache(5*time.Millisecond, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "forever", []byte("v"), 0))
	require.NoError(t, cache.Set(ctx, "default", []byte("v"), -1))
	time.Sleep(20 * time.Millisecond)

	_, err := cache.Get(ctx, "forever")
	assert.NoError(t, err)
	_, err = cache.Get(ctx, "default")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	cache := newCache()
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, cache.Set(ctx, "k", value, time.Hour))
	value[0] = 'X'

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))

	got[0] = 'Y'
	again, _ := cache.Get(ctx, "k")
	assert.Equal(t, "original", string(again))
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := newCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, cache.Delete(ctx, "k"))
	require.NoError(t, cache.Delete(ctx, "never-existed"))

	_, err := cache.Get(ctx, "k")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_CancelledContext(t *testing.T) {
	cache := newCache()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, cache.Set(ctx, "k", []byte("v"), time.Hour))
	_, err := cache.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Error(t, cache.Delete(ctx, "k"))
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := newCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%5)
			_ = cache.Set(ctx, key, []byte(key), time.Minute)
			_, _ = cache.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, cache.Len())
}
