package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache stores JSON values in redis. A Cache without a client is valid and
// behaves as an always-empty cache.
type Cache struct {
	client *redis.Client
	log    zerolog.Logger
}

// Connect pings addr and returns a Cache. When redis is not reachable the
// returned Cache is disabled and the server keeps running without it.
func Connect(ctx context.Context, addr string, log zerolog.Logger) *Cache {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Redis not available. Running without Redis.")
		_ = client.Close()
		return &Cache{log: log}
	}
	log.Info().Str("addr", addr).Msg("Redis connected successfully.")
	return &Cache{client: client, log: log}
}

func New(client *redis.Client, log zerolog.Logger) *Cache {
	return &Cache{client: client, log: log}
}

// Client returns the underlying client, nil when redis is disabled
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the value at key into dest. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decoding cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		return err
	}
	return nil
}

// GetVersion returns the counter at key, 0 when missing or disabled
func (c *Cache) GetVersion(ctx context.Context, key string) int64 {
	if !c.Enabled() {
		return 0
	}
	v, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

// IncrementVersion bumps the counter at key so every key derived from the
// previous version stops being read.
func (c *Cache) IncrementVersion(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache version bump failed")
	}
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// DocumentsVersionKey is bumped on every document mutation in organization
func DocumentsVersionKey(organization string) string {
	return fmt.Sprintf("org:%s:docs:version", organization)
}

func DocumentsListKey(organization string, version int64, email string) string {
	return fmt.Sprintf("docs:o:%s:v:%d:u:%s", organization, version, email)
}
