package kv

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Backend on Redis.
// Items are stored as plain strings under key: "<prefix><key>" without TTL.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a Redis-based backend. Prefix may be empty.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "localstore:"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) key(k string) string {
	return r.prefix + k
}

func (r *RedisBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisBackend) SetItem(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisBackend) RemoveItem(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// Keys scans the prefix; cost is proportional to the keyspace.
// SCAN may return a key more than once, so the result is deduplicated.
func (r *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	var raw []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		raw = append(raw, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return scannedKeys(raw, r.prefix), nil
}

// scannedKeys strips prefix from raw SCAN output and returns the distinct keys sorted.
func scannedKeys(raw []string, prefix string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		k = strings.TrimPrefix(k, prefix)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
