package thumbnail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheGetPut(t *testing.T) {
	cache := NewCache(10, time.Minute)
	_, ok := cache.Get("alpha")
	require.False(t, ok)

	img := &Image{URL: "alpha"}
	cache.Put("alpha", img)

	got, ok := cache.Get("alpha")
	require.True(t, ok)
	require.Same(t, img, got)
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := NewCache(10, 20*time.Millisecond)
	cache.Put("beta", &Image{URL: "beta"})
	time.Sleep(25 * time.Millisecond)

	_, ok := cache.Get("beta")
	require.False(t, ok)
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	cache := NewCache(1, time.Minute)
	cache.Put("first", &Image{URL: "first"})
	cache.Put("second", &Image{URL: "second"})

	_, ok := cache.Get("first")
	require.False(t, ok)
	_, ok = cache.Get("second")
	require.True(t, ok)
	require.Equal(t, 1, cache.Len())
}

func TestCacheOverwriteKeepsLatest(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewCache(2, time.Minute)
	cache.now = func() time.Time { return clock }

	cache.Put("a", &Image{ETag: "v1"})
	clock = clock.Add(time.Second)
	cache.Put("b", &Image{ETag: "b"})
	clock = clock.Add(time.Second)
	cache.Put("a", &Image{ETag: "v2"})

	got, ok := cache.Get("a")
	require.True(t, ok)
	require.Equal(t, "v2", got.ETag)
	_, ok = cache.Get("b")
	require.True(t, ok)

	clock = clock.Add(time.Second)
	cache.Put("c", &Image{ETag: "c"})

	_, ok = cache.Get("b")
	require.False(t, ok)
	got, ok = cache.Get("a")
	require.True(t, ok)
	require.Equal(t, "v2", got.ETag)
}

func TestCacheExpiredEntriesCompactOnWrite(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewCache(10, time.Minute)
	cache.now = func() time.Time { return clock }

	cache.Put("old", &Image{})
	clock = clock.Add(2 * time.Minute)
	cache.Put("new", &Image{})

	require.Equal(t, 1, cache.Len())
}
