package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"post_importer/internal/domain"
)

type Config struct {
	TTL    time.Duration
	Prefix string
}

// FragmentCache stores rendered list fragments in Redis. Entries are
// namespaced by a generation counter, so Purge drops every entry at once
// by bumping the counter and letting old keys expire.
type FragmentCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewFragmentCache(client redis.Cmdable, cfg Config, logger *slog.Logger) *FragmentCache {
	return &FragmentCache{
		client: client,
		ttl:    cfg.TTL,
		prefix: cfg.Prefix,
		logger: logger.With("component", "cache"),
	}
}

// Get returns the cached fragment for key, if any.
func (c *FragmentCache) Get(ctx context.Context, key string) (string, bool, error) {
	full, err := c.entryKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	value, err := c.client.Get(ctx, full).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get fragment: %w", err)
	}
	return value, true, nil
}

func (c *FragmentCache) Set(ctx context.Context, key, value string) error {
	full, err := c.entryKey(ctx, key)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, full, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("set fragment: %w", err)
	}
	return nil
}

// Purge invalidates every cached fragment.
func (c *FragmentCache) Purge(ctx context.Context) error {
	gen, err := c.client.Incr(ctx, c.generationKey()).Result()
	if err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	c.logger.Debug("purged fragments", "generation", gen)
	return nil
}

// AfterImport purges the cache when the run created new items.
func (c *FragmentCache) AfterImport(ctx context.Context, report *domain.ImportReport) error {
	if report.Created() == 0 {
		return nil
	}
	return c.Purge(ctx)
}

func (c *FragmentCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get generation: %w", err)
	}
	return gen, nil
}

func (c *FragmentCache) entryKey(ctx context.Context, key string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return c.buildKey(gen, key), nil
}

func (c *FragmentCache) buildKey(gen int64, key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, hex.EncodeToString(sum[:16]))
}

func (c *FragmentCache) generationKey() string {
	return c.prefix + ":generation"
}
