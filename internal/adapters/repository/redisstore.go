package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/stuffscore/pkg/metrics"
)

const redisPingTimeout = 5 * time.Second

// RedisStore shares snapshots between replicas through Redis. Each
// snapshot is a JSON value under <prefix><population>.
type RedisStore struct {
	client *redis.Client
	opts   storeOptions
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, opts ...Option) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse redis url: %w", ErrStore, err)
	}
	client := redis.NewClient(opt)

	pctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping redis: %w", ErrStore, err)
	}
	return NewRedisStoreWithClient(client, opts...), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, opts ...Option) *RedisStore {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, opts: o}
}

func (s *RedisStore) key(population string) string {
	return s.opts.keyPrefix + population
}

// Publish implements Store.
func (s *RedisStore) Publish(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrStore, snap.Population, err)
	}
	if err := s.client.Set(ctx, s.key(snap.Population), data, s.opts.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrStore, snap.Population, err)
	}
	metrics.RecordSnapshotPublished(snap.Population, snap.GeneratedAt, snap.ComputeMs)
	return nil
}

// Latest implements Store.
func (s *RedisStore) Latest(ctx context.Context, population string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(population)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss("redis")
		return nil, fmt.Errorf("%w: snapshot %s", ErrNotFound, population)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrStore, population, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrStore, population, err)
	}
	metrics.RecordCacheHit("redis")
	return &snap, nil
}

// Invalidate implements Store.
func (s *RedisStore) Invalidate(ctx context.Context, population string) error {
	if err := s.client.Del(ctx, s.key(population)).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %w", ErrStore, population, err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
