package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/pkgindex/pkg/packages"
)

// redisIndexKey is the set holding every package key written by Redis.Upsert.
const redisIndexKey = "pkgindex:keys"

// redisBatch bounds the number of keys fetched per MGET.
const redisBatch = 500

// Redis stores each package as a JSON string under its package key.
type Redis struct {
	client redis.UniversalClient
}

// OpenRedis connects to the Redis server at rawURL and verifies the
// connection with a PING.
func OpenRedis(ctx context.Context, rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	r := NewRedis(redis.NewClient(opts))
	if err := r.Ping(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// NewRedis wraps an existing client. The store takes ownership of it.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Upsert implements Store.
func (r *Redis) Upsert(ctx context.Context, p packages.Package) error {
	if err := validate(p); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	key := p.Key()
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.SAdd(ctx, redisIndexKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: upsert %s: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, source packages.Source, identifier string) (packages.Package, error) {
	key := packages.Key(source, identifier)
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return packages.Package{}, ErrNotFound
	}
	if err != nil {
		return packages.Package{}, fmt.Errorf("redis: get %s: %w", key, err)
	}
	var p packages.Package
	if err := json.Unmarshal(data, &p); err != nil {
		return packages.Package{}, fmt.Errorf("redis: decode %s: %w", key, err)
	}
	return p, nil
}

// List implements Store. It loads every indexed package and filters locally.
func (r *Redis) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	keys, err := r.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return ListResult{}, fmt.Errorf("redis: list: %w", err)
	}

	all := make([]packages.Package, 0, len(keys))
	for start := 0; start < len(keys); start += redisBatch {
		batch := keys[start:min(start+redisBatch, len(keys))]
		vals, err := r.client.MGet(ctx, batch...).Result()
		if err != nil {
			return ListResult{}, fmt.Errorf("redis: list: %w", err)
		}
		for _, v := range vals {
			s, ok := v.(string)
			if !ok {
				continue
			}
			var p packages.Package
			if json.Unmarshal([]byte(s), &p) == nil {
				all = append(all, p)
			}
		}
	}
	return selectPackages(all, opts), nil
}

// Ping implements Store.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close implements Store.
func (r *Redis) Close() error { return r.client.Close() }

var _ Store = (*Redis)(nil)
