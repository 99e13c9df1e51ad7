// Package redis implements repository.KVStore on top of Redis so several
// server instances can share favorites.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/repository"
)

// keyPrefix namespaces every key so the store can share a Redis database.
const keyPrefix = "country-explorer:"

// Store is a Redis-backed key/value store.
type Store struct {
	client *redis.Client
}

// compile-time check that *Store implements repository.KVStore
var _ repository.KVStore = (*Store)(nil)

// New wraps an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Connect parses url (redis://host:port/db), opens a client and pings it.
func Connect(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parsing URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	return &Store{client: client}, nil
}

// Health reports whether the server answers a PING.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get returns the value for key or apperror.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperror.NotFound("key", key)
	}
	if err != nil {
		return "", fmt.Errorf("redis: getting key %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key with no expiry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: setting key %s: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: deleting key %s: %w", key, err)
	}
	return nil
}
