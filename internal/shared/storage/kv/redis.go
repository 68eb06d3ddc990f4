package kv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore exposes the counter operations used by shared rate limits.
type RedisStore struct {
	cli *redis.Client
}

// NewRedisStore connects to a redis:// URL and verifies it with PING.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("redis url is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return newRedisStore(ctx, redis.NewClient(opts))
}

func newRedisStore(ctx context.Context, cli *redis.Client) (*RedisStore, error) {
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{cli: cli}, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.cli.Incr(ctx, key).Result()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.cli.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.cli.TTL(ctx, key).Result()
}

func (s *RedisStore) Close() error { return s.cli.Close() }
