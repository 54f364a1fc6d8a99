package cache

import (
	"time"

	"github.com/go-redis/redis"
	"github.com/siherrmann/dealgraph/helper"
)

// RedisCache stores values in a shared redis instance
type RedisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedisCache connects to redis and verifies the connection with a ping
func NewRedisCache(addr string, password string, db int, defaultTTL time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, helper.NewError("ping redis", err)
	}

	return &RedisCache{client: client, defaultTTL: defaultTTL}, nil
}

// Get retrieves a value. Connection errors are reported as a miss.
func (c *RedisCache) Get(key string) ([]byte, bool) {
	val, err := c.client.Get(key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores a value with the given TTL. A zero TTL uses the default.
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(key, value, ttl).Err(); err != nil {
		return helper.NewError("redis set", err)
	}
	return nil
}

// Delete removes a value
func (c *RedisCache) Delete(key string) error {
	err := c.client.Del(key).Err()
	if err != nil && err != redis.Nil {
		return helper.NewError("redis del", err)
	}
	return nil
}

// Clear removes every dealgraph key, leaving other keys of the database alone
func (c *RedisCache) Clear() error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(cursor, KeyPrefix+"*", 100).Result()
		if err != nil {
			return helper.NewError("redis scan", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(keys...).Err(); err != nil {
				return helper.NewError("redis del", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
