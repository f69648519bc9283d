// Package session maps opaque session tokens to principal ids in Redis.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	authorization "github.com/betandbeat/catalog-authorization"
)

// Store keeps session tokens in Redis with a fixed TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create issues a new token for the principal.
func (s *Store) Create(ctx context.Context, principalID int64) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, key(token), strconv.FormatInt(principalID, 10), s.ttl).Err(); err != nil {
		return "", &authorization.TransportError{Op: "session create", Err: err}
	}
	return token, nil
}

// Resolve returns the principal id behind token, or
// authorization.ErrNotFound for unknown and expired tokens.
func (s *Store) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, authorization.ErrNotFound
	}
	raw, err := s.client.Get(ctx, key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, authorization.ErrNotFound
		}
		return 0, &authorization.TransportError{Op: "session resolve", Err: err}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session %s: %w", token, err)
	}
	return id, nil
}

func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return &authorization.TransportError{Op: "session destroy", Err: err}
	}
	return nil
}

func key(token string) string {
	return "session:" + token
}
