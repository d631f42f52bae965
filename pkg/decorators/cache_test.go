// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package decorators

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	raw, _ := args.Get(0).([]byte)
	return raw, args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func TestCache_MemoryStore(t *testing.T) {
	ResetCacheStats()
	m, _ := withMetrics(t)
	store := NewMemoryStore()

	calls := 0
	load := func() (*user, error) {
		calls++
		return &user{ID: 7, Name: "ada"}, nil
	}

	first, err := Cache(store, "user:7", time.Minute, load)
	require.NoError(t, err)
	second, err := Cache(store, "user:7", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1}, Stats())
	assert.Equal(t, 0.5, Stats().HitRate())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")))
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	ResetCacheStats()
	store := NewMemoryStore()

	next, calls := counter(1, "ok")
	_, err := Cache(store, "flaky", 0, next)
	assert.ErrorIs(t, err, errBoom)

	out, err := Cache(store, "flaky", 0, next)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, *calls)
	assert.Equal(t, 1, store.Len())
}

func TestCache_StoreFailureFallsThrough(t *testing.T) {
	withObservedLogger(t, zapcore.DebugLevel)
	store := new(MockStore)
	store.On("Get", mock.Anything, "k").Return(nil, false, errors.New("connection refused"))
	store.On("Set", mock.Anything, "k", []byte(`"v"`), time.Second).Return(errors.New("connection refused"))

	out, err := Cache(store, "k", time.Second, func() (string, error) { return "v", nil })

	require.NoError(t, err)
	assert.Equal(t, "v", out)
	store.AssertExpectations(t)
}

func TestCache_UndecodableEntryIsMiss(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "n", []byte("not json"), 0))

	out, err := Cache(store, "n", 0, func() (int, error) { return 42, nil })

	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestMemoryStore_Expiry(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	store.now = clock.Now
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))

	v, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	clock.Advance(time.Second)
	_, ok, _ = store.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "b"))
	_, ok, _ = store.Get(ctx, "b")
	assert.False(t, ok)
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ResetCacheStats()
	m, _ := withMetrics(t)
	store := NewMemoryStoreSize(2)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))
	_, ok, _ := store.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, store.Set(ctx, "c", []byte("3"), 0))

	assert.Equal(t, 2, store.Len())
	_, ok, _ = store.Get(ctx, "b")
	assert.False(t, ok, "b was the least recently used entry")
	_, ok, _ = store.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = store.Get(ctx, "c")
	assert.True(t, ok)

	assert.Equal(t, uint64(1), Stats().Evictions)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheEvictions))
}

func TestMemoryStore_Bounded(t *testing.T) {
	ResetCacheStats()
	store := NewMemoryStoreSize(10)

	for i := 0; i < 100; i++ {
		_, err := Cache(store, fmt.Sprintf("user:%d", i), time.Minute, func() (int, error) { return i, nil })
		require.NoError(t, err)
	}

	assert.Equal(t, 10, store.Len())
	assert.Equal(t, uint64(90), Stats().Evictions)

	def := NewMemoryStoreSize(0)
	ctx := context.Background()
	for i := 0; i <= DefaultCacheSize; i++ {
		require.NoError(t, def.Set(ctx, fmt.Sprint(i), []byte("1"), 0))
	}
	assert.Equal(t, DefaultCacheSize, def.Len())
}

func TestMemoryStore_SetMaxSize(t *testing.T) {
	ResetCacheStats()
	store := NewMemoryStore()
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Set(ctx, k, []byte(k), 0))
	}

	store.SetMaxSize(2)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, uint64(2), Stats().Evictions)
	_, ok, _ := store.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "d")
	assert.True(t, ok)

	store.SetMaxSize(0)
	assert.Equal(t, 2, store.Len())
}

func TestInvalidateCache(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, k := range []string{"user:1", "user:2", "order:1"} {
		require.NoError(t, store.Set(ctx, k, []byte("{}"), 0))
	}

	require.NoError(t, InvalidateCache(ctx, store, "order:1"))
	assert.Equal(t, 2, store.Len())

	n, err := InvalidateCachePrefix(ctx, store, "user:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Set(ctx, "x", []byte("1"), 0))
	require.NoError(t, ClearCache(ctx, store))
	assert.Equal(t, 0, store.Len())
}

func TestInvalidateCachePrefix_Unsupported(t *testing.T) {
	store := new(MockStore)

	_, err := InvalidateCachePrefix(context.Background(), store, "user:")
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	assert.ErrorIs(t, ClearCache(context.Background(), store), errors.ErrUnsupported)
	store.AssertExpectations(t)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, "user:", escapeGlob("user:"))
	assert.Equal(t, `a\*b\?\[c\]\\`, escapeGlob(`a*b?[c]\`))
}

func testRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis is not available for testing:", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	client := testRedisClient(t)
	store := NewRedisStore(client, "decorate-test:")
	ctx := context.Background()
	t.Cleanup(func() { _ = store.Delete(ctx, "user") })

	_, ok, err := store.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)

	calls := 0
	load := func() (user, error) {
		calls++
		return user{ID: 1, Name: "grace"}, nil
	}
	_, err = Cache(store, "user", time.Minute, load)
	require.NoError(t, err)
	got, err := Cache(store, "user", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, user{ID: 1, Name: "grace"}, got)

	ttl, err := client.TTL(ctx, "decorate-test:user").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Set(ctx, "user*2", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "order", []byte("1"), time.Minute))
	n, err := InvalidateCachePrefix(ctx, store, "user")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, ok, err = store.Get(ctx, "order")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, ClearCache(ctx, store))
	_, ok, err = store.Get(ctx, "order")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisStore_DefaultPrefix(t *testing.T) {
	store := NewRedisStore(redis.NewClient(&redis.Options{}), "")
	assert.Equal(t, "decorate:", store.prefix)
}
