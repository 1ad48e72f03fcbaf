package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

const assessmentKeyPrefix = "figo:assessment:"

// RedisCache is the shared second tier of the assessment cache.
type RedisCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// CachedAssessment represents a cached assessment with metadata
type CachedAssessment struct {
	Data      *domain.Assessment `json:"data"`
	CachedAt  time.Time          `json:"cached_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// NewRedisCache creates a cache client and verifies the connection
func NewRedisCache(config domain.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, config.DefaultTTL), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{redis: client, defaultTTL: ttl}
}

// Get implements domain.AssessmentCache. Transport errors and corrupt entries
// are reported as misses.
func (c *RedisCache) Get(ctx context.Context, key string) (*domain.Assessment, bool) {
	redisKey := assessmentKeyPrefix + key

	val, err := c.redis.Get(ctx, redisKey).Result()
	if err != nil {
		return nil, false
	}

	var cached CachedAssessment
	if err := json.Unmarshal([]byte(val), &cached); err != nil || cached.Data == nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, redisKey)
		return nil, false
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, redisKey)
		return nil, false
	}

	return cached.Data, true
}

// Set implements domain.AssessmentCache.
func (c *RedisCache) Set(ctx context.Context, key string, assessment *domain.Assessment) error {
	if assessment == nil {
		return errors.New("cannot cache nil assessment")
	}

	now := time.Now()
	jsonData, err := json.Marshal(CachedAssessment{
		Data:      assessment,
		CachedAt:  now,
		ExpiresAt: now.Add(c.defaultTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal assessment cache data: %w", err)
	}

	if err := c.redis.Set(ctx, assessmentKeyPrefix+key, jsonData, c.defaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to write assessment cache: %w", err)
	}
	return nil
}

// Ping checks the connection, for health reporting.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the underlying client
func (c *RedisCache) Close() error {
	return c.redis.Close()
}
