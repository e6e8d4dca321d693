package usagewatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coder/quartz"
)

// Cache keys for the three stable upstream responses. Team detail entries
// are keyed per team id because a user may switch teams within a session.
const (
	CacheKeyUser       = "cache:user"
	CacheKeyTeams      = "cache:teams"
	cacheKeyTeamPrefix = "cache:team:"
	cacheKeyPrefix     = "cache:"
)

// TeamDetailsCacheKey returns the cache key for one team's membership
// details.
func TeamDetailsCacheKey(teamID int) string {
	return cacheKeyTeamPrefix + strconv.Itoa(teamID)
}

// cacheEnvelope wraps a cached value with its storage timestamp.
type cacheEnvelope struct {
	Value          json.RawMessage `json:"value"`
	StoredAtMillis int64           `json:"storedAtMillis"`
}

// Cache is a TTL-bounded view over the durable Storage. Entries expire
// lazily: an expired entry is deleted on read and reported absent. There
// is no background sweep; the read-time check is the source of truth.
type Cache struct {
	storage Storage
	ttl     time.Duration
	logger  Logger
	metrics Metrics
	clock   quartz.Clock
}

// NewCache creates a cache over storage with the configured TTL
// (default 24h).
func NewCache(storage Storage, config Config) *Cache {
	config = config.withDefaults()
	return &Cache{
		storage: storage,
		ttl:     config.CacheTTL,
		logger:  config.Logger,
		metrics: config.Metrics,
		clock:   config.Clock,
	}
}

// Get loads the entry for key into dest. It returns false when the entry
// is absent, expired, or unreadable; a corrupt entry is deleted and
// treated as a miss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			c.metrics.RecordCacheMiss(key)
			return false, nil
		}
		return false, fmt.Errorf("cache get %q: %w", key, err)
	}

	var envelope cacheEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.logger.Warn("discarding corrupt cache entry",
			Field{Key: "key", Value: key},
			Field{Key: "error", Value: err.Error()},
		)
		c.evict(ctx, key)
		return false, nil
	}

	age := c.clock.Now().UnixMilli() - envelope.StoredAtMillis
	if age > c.ttl.Milliseconds() {
		c.evict(ctx, key)
		c.metrics.RecordCacheMiss(key)
		return false, nil
	}

	if err := json.Unmarshal(envelope.Value, dest); err != nil {
		c.logger.Warn("discarding cache entry with mismatched shape",
			Field{Key: "key", Value: key},
			Field{Key: "error", Value: err.Error()},
		)
		c.evict(ctx, key)
		return false, nil
	}

	c.metrics.RecordCacheHit(key)
	return true, nil
}

// Set stores value under key with the current timestamp, overwriting any
// existing entry.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	envelope, err := json.Marshal(cacheEnvelope{
		Value:          raw,
		StoredAtMillis: c.clock.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return c.storage.Set(ctx, key, envelope)
}

// Clear deletes the listed keys. Absent keys are a no-op.
func (c *Cache) Clear(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("cache clear %q: %w", key, err)
		}
	}
	return nil
}

// ClearTeamScoped deletes the team list entry and every per-team detail
// entry.
func (c *Cache) ClearTeamScoped(ctx context.Context) error {
	if err := c.Clear(ctx, CacheKeyTeams); err != nil {
		return err
	}
	return c.clearByPrefix(ctx, cacheKeyTeamPrefix)
}

// ClearAll deletes every cache entry, leaving non-cache keys in the
// storage untouched.
func (c *Cache) ClearAll(ctx context.Context) error {
	return c.clearByPrefix(ctx, cacheKeyPrefix)
}

func (c *Cache) clearByPrefix(ctx context.Context, prefix string) error {
	keys, err := c.storage.Keys(ctx)
	if err != nil {
		return fmt.Errorf("cache clear prefix %q: %w", prefix, err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := c.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("cache clear %q: %w", key, err)
		}
	}
	return nil
}

// evict is a best-effort delete used on expiry and corruption.
func (c *Cache) evict(ctx context.Context, key string) {
	if err := c.storage.Delete(ctx, key); err != nil {
		c.logger.Warn("cache eviction failed",
			Field{Key: "key", Value: key},
			Field{Key: "error", Value: err.Error()},
		)
	}
}
