package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lingopad/api/internal/model"
	"github.com/redis/go-redis/v9"
)

const wordListTTL = 24 * time.Hour

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	// redis://host:port or redis://host:port/db
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// WordListKey is the cache key of one chapter of one dictionary.
// Format: "typing:words:{dictionary_id}:{chapter}".
func WordListKey(dictionaryID int64, chapter int) string {
	return fmt.Sprintf("typing:words:%d:%d", dictionaryID, chapter)
}

func dictionaryPattern(dictionaryID int64) string {
	return fmt.Sprintf("typing:words:%d:*", dictionaryID)
}

// GetWords returns the cached chapter and whether it was present.
func (c *RedisCache) GetWords(ctx context.Context, dictionaryID int64, chapter int) ([]model.Word, bool, error) {
	raw, err := c.client.Get(ctx, WordListKey(dictionaryID, chapter)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var words []model.Word
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, false, err
	}
	return words, true, nil
}

func (c *RedisCache) SetWords(ctx context.Context, dictionaryID int64, chapter int, words []model.Word) error {
	raw, err := json.Marshal(words)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, WordListKey(dictionaryID, chapter), raw, wordListTTL).Err()
}

// InvalidateDictionary drops every cached chapter of a dictionary.
func (c *RedisCache) InvalidateDictionary(ctx context.Context, dictionaryID int64) error {
	iter := c.client.Scan(ctx, 0, dictionaryPattern(dictionaryID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Incr bumps a fixed-window counter and (re)arms its expiry.
func (c *RedisCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.client.TTL(ctx, key).Result()
}
