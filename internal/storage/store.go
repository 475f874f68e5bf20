// Package storage provides the key-value store backing sessions and
// callback data, with a Redis implementation and an in-memory one for
// tests
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mvoevodskiy/botcms/internal/config"
)

type (
	// Store is the durable key-value contract. Get reports presence via
	// its boolean so callers can distinguish a missing record from an
	// empty one. SetTTL writes with an explicit retention instead of the
	// store's default; zero keeps the record forever
	Store interface {
		Get(ctx context.Context, key string, dst any) (bool, error)
		Set(ctx context.Context, key string, value any) error
		SetTTL(
			ctx context.Context, key string,
			value any, ttl time.Duration,
		) error
		Delete(ctx context.Context, key string) error
	}

	// RedisStore persists JSON-encoded records in Redis under a
	// configurable key prefix
	RedisStore struct {
		client *redis.Client
		prefix string
		ttl    time.Duration
	}

	// MemoryStore is a process-local Store for tests and single-node
	// setups
	MemoryStore struct {
		mu    sync.RWMutex
		items map[string][]byte

		// Sets counts successful Set calls so tests can assert that
		// no flush happened for untouched sessions
		Sets int
	}
)

var (
	ErrEncodeValue = errors.New("failed to encode value")
	ErrDecodeValue = errors.New("failed to decode value")
)

// NewRedisStore creates a Redis-backed store from the given settings. A
// zero TTL keeps records forever
func NewRedisStore(cfg config.StoreConfig, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		ttl:    ttl,
	}
}

// Close releases the underlying Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping verifies connectivity to the Redis backend
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(
	ctx context.Context, key string, dst any,
) (bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: %w", ErrDecodeValue, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	return s.SetTTL(ctx, key, value, s.ttl)
}

func (s *RedisStore) SetTTL(
	ctx context.Context, key string, value any, ttl time.Duration,
) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeValue, err)
	}
	return s.client.Set(ctx, s.key(key), raw, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string][]byte{}}
}

func (s *MemoryStore) Get(
	_ context.Context, key string, dst any,
) (bool, error) {
	s.mu.RLock()
	raw, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: %w", ErrDecodeValue, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeValue, err)
	}
	s.mu.Lock()
	s.items[key] = raw
	s.Sets++
	s.mu.Unlock()
	return nil
}

// SetTTL stores the record ignoring the retention; the in-memory store
// never expires anything
func (s *MemoryStore) SetTTL(
	ctx context.Context, key string, value any, _ time.Duration,
) error {
	return s.Set(ctx, key, value)
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
