// Package redis stores credential scopes in Redis. With a TTL it models the
// session-lived scope: values vanish when the session would have ended.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frenchtutorhub/hub/pkg/credstore"
	"github.com/redis/go-redis/v9"
)

// Scope is a credstore.Scope backed by Redis string keys under a prefix.
type Scope struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewScope returns a scope storing keys as "<prefix>:<key>". A ttl of zero
// stores values without expiry; otherwise every Set refreshes the TTL.
func NewScope(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Scope {
	return &Scope{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *Scope) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *Scope) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", credstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: get: %w", err)
	}
	return v, nil
}

func (s *Scope) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

func (s *Scope) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis: delete: %w", err)
	}
	return nil
}

// TTL reports the remaining lifetime of key. Keys without expiry report -1,
// missing keys ErrNotFound.
func (s *Scope) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.rdb.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: ttl: %w", err)
	}
	if d == -2 {
		return 0, credstore.ErrNotFound
	}
	return d, nil
}

// Ping checks connectivity.
func (s *Scope) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
