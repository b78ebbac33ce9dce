package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"QuantDesk/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrCacheMiss is returned by a Store when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Store is a byte cache with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process TTL cache.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}

// RedisStore keeps cached tables in Redis so that several bot processes or a
// restarted one can reuse a recent universe download.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if prefix == "" {
		prefix = "quantdesk"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (r *RedisStore) key(k string) string { return r.prefix + ":" + k }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return b, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error { return r.client.Close() }

// CachedFetcher memoizes FetchSeries results per ticker set, lookback and
// calendar day. Tables with failed tickers are never stored, so a retry goes
// back to the provider. Cache failures degrade to a direct fetch.
type CachedFetcher struct {
	next  Fetcher
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedFetcher wraps next with store.
func NewCachedFetcher(next Fetcher, store Store, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{next: next, store: store, ttl: ttl, now: time.Now}
}

func (c *CachedFetcher) Name() string { return c.next.Name() + "+cache" }

func (c *CachedFetcher) cacheKey(tickers []string, lookbackDays int) string {
	sorted := append([]string(nil), tickers...)
	sort.Strings(sorted)
	h := fnv.New64a()
	h.Write([]byte(strings.Join(sorted, ",")))
	return fmt.Sprintf("series:%s:%d:%s:%x", c.next.Name(), lookbackDays, model.DayKey(c.now()), h.Sum64())
}

func (c *CachedFetcher) FetchSeries(ctx context.Context, tickers []string, lookbackDays int) (model.UniverseTable, error) {
	key := c.cacheKey(tickers, lookbackDays)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var table model.UniverseTable
		if jerr := json.Unmarshal(raw, &table); jerr == nil {
			log.Debug().Str("key", key).Msg("series cache hit")
			return table, nil
		}
	case !errors.Is(err, ErrCacheMiss):
		log.Warn().Err(err).Msg("series cache read failed")
	}

	table, err := c.next.FetchSeries(ctx, tickers, lookbackDays)
	if err != nil {
		return table, err
	}
	if !table.Complete() {
		log.Warn().Strs("failed", table.Failed).Msg("partial fetch not cached")
		return table, nil
	}
	if raw, err := json.Marshal(table); err == nil {
		if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
			log.Warn().Err(err).Msg("series cache write failed")
		}
	}
	return table, nil
}

func (c *CachedFetcher) FetchSingle(ctx context.Context, ticker string, lookbackDays int) (model.PriceSeries, error) {
	return fetchSingle(ctx, c, ticker, lookbackDays)
}
