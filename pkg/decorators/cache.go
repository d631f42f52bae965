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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/innovationmech/decorate/pkg/logger"
)

// DefaultCacheSize bounds a MemoryStore created without an explicit size.
const DefaultCacheSize = 1000

// Store is the backend used by Cache. Get reports a miss with ok == false
// and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Invalidator is implemented by stores that can drop entries in bulk.
type Invalidator interface {
	// DeletePrefix removes every key starting with prefix and returns
	// the number removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// CacheStats counts cache lookups since start or the last ResetCacheStats.
// Evictions counts entries a MemoryStore dropped to stay within its size.
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// HitRate returns hits over lookups, 0 without lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

var cacheHits, cacheMisses, cacheEvictions atomic.Uint64

// Stats returns the process wide cache statistics.
func Stats() CacheStats {
	return CacheStats{
		Hits:      cacheHits.Load(),
		Misses:    cacheMisses.Load(),
		Evictions: cacheEvictions.Load(),
	}
}

// ResetCacheStats zeroes the cache statistics.
func ResetCacheStats() {
	cacheHits.Store(0)
	cacheMisses.Store(0)
	cacheEvictions.Store(0)
}

// InvalidateCache removes key from store.
func InvalidateCache(ctx context.Context, store Store, key string) error {
	return store.Delete(ctx, key)
}

// InvalidateCachePrefix removes every key of store starting with prefix.
// The store must implement Invalidator.
func InvalidateCachePrefix(ctx context.Context, store Store, prefix string) (int, error) {
	inv, ok := store.(Invalidator)
	if !ok {
		return 0, fmt.Errorf("decorators: %T cannot invalidate by prefix: %w", store, errors.ErrUnsupported)
	}
	n, err := inv.DeletePrefix(ctx, prefix)
	if err != nil {
		return n, err
	}
	logger.GetLogger().Debug("cache entries invalidated", zap.String("prefix", prefix), zap.Int("count", n))
	return n, nil
}

// ClearCache removes every entry of store. The store must implement
// Invalidator.
func ClearCache(ctx context.Context, store Store) error {
	inv, ok := store.(Invalidator)
	if !ok {
		return fmt.Errorf("decorators: %T cannot be cleared: %w", store, errors.ErrUnsupported)
	}
	return inv.Clear(ctx)
}

// Cache returns the value stored under key when present. Otherwise it
// runs next and stores a successful result for ttl (0 keeps it until
// evicted). Values are JSON encoded. Store failures are logged and
// treated as misses, so the decorated function keeps working without its
// cache.
func Cache[T any](store Store, key string, ttl time.Duration, next func() (T, error)) (T, error) {
	ctx := context.Background()
	log := logger.GetLogger()

	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		log.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			cacheHits.Add(1)
			currentMetrics().CacheRequests.WithLabelValues("hit").Inc()
			return out, nil
		}
		log.Warn("cache entry undecodable", zap.String("key", key))
	}

	cacheMisses.Add(1)
	currentMetrics().CacheRequests.WithLabelValues("miss").Inc()

	out, err := next()
	if err != nil {
		return out, err
	}
	data, err := json.Marshal(out)
	if err != nil {
		log.Warn("cache entry unencodable", zap.String("key", key), zap.Error(err))
		return out, nil
	}
	if err := store.Set(ctx, key, data, ttl); err != nil {
		log.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore is an in-process Store holding at most its size in
// entries. When full, the least recently used entry is evicted. Expired
// entries are dropped when read.
type MemoryStore struct {
	mu      sync.Mutex
	entries *simplelru.LRU
	now     func() time.Time
}

// NewMemoryStore creates an empty store bounded by DefaultCacheSize.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreSize(DefaultCacheSize)
}

// NewMemoryStoreSize creates an empty store holding at most size
// entries. A size below 1 uses DefaultCacheSize.
func NewMemoryStoreSize(size int) *MemoryStore {
	if size < 1 {
		size = DefaultCacheSize
	}
	entries, err := simplelru.NewLRU(size, nil)
	if err != nil {
		panic(fmt.Sprintf("decorators: %v", err))
	}
	return &MemoryStore{entries: entries, now: time.Now}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	e := v.(memoryEntry)
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		s.entries.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}

	s.mu.Lock()
	evicted := s.entries.Add(key, e)
	s.mu.Unlock()

	if evicted {
		s.evicted(1)
	}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	s.entries.Remove(key)
	s.mu.Unlock()
	return nil
}

// DeletePrefix implements Invalidator.
func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, k := range s.entries.Keys() {
		if key := k.(string); strings.HasPrefix(key, prefix) {
			s.entries.Remove(key)
			n++
		}
	}
	return n, nil
}

// Clear implements Invalidator.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.entries.Purge()
	s.mu.Unlock()
	return nil
}

// SetMaxSize changes the bound, evicting the least recently used entries
// that no longer fit. A size below 1 is ignored.
func (s *MemoryStore) SetMaxSize(size int) {
	if size < 1 {
		return
	}
	s.mu.Lock()
	n := s.entries.Resize(size)
	s.mu.Unlock()

	if n > 0 {
		s.evicted(n)
	}
}

func (s *MemoryStore) evicted(n int) {
	cacheEvictions.Add(uint64(n))
	currentMetrics().CacheEvictions.Add(float64(n))
	logger.GetLogger().Debug("cache entries evicted", zap.Int("count", n))
}

// Len returns the number of entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// RedisStore is a Store backed by Redis. Keys are prefixed with Prefix.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. An empty prefix defaults to "decorate:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "decorate:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// DeletePrefix implements Invalidator. Keys are found with SCAN; on a
// cluster client only the node serving the connection is scanned.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	pattern := s.prefix + escapeGlob(prefix) + "*"
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan %s: %w", pattern, err)
	}

	n := 0
	for len(keys) > 0 {
		batch := keys
		if len(batch) > 100 {
			batch = batch[:100]
		}
		keys = keys[len(batch):]
		removed, err := s.client.Del(ctx, batch...).Result()
		n += int(removed)
		if err != nil {
			return n, fmt.Errorf("redis del: %w", err)
		}
	}
	return n, nil
}

// Clear implements Invalidator by deleting every key under the store
// prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	_, err := s.DeletePrefix(ctx, "")
	return err
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
