package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultRevocationTTL bounds revocation entries for tokens without an expiry claim.
const defaultRevocationTTL = 24 * time.Hour

// Store tracks sessions that were signed out before their token expired.
type Store interface {
	Revoke(ctx context.Context, sess Session) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// RedisStore keeps revoked session ids in Redis until the token would have expired.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore builds a revocation store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "roommate"
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

// Revoke destroys the session. Sessions without an id cannot be revoked.
func (s *RedisStore) Revoke(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return errors.New("session id is required for sign-out")
	}

	ttl := sess.TTL(s.now())
	if sess.ExpiresAt.IsZero() {
		ttl = defaultRevocationTTL
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.key(sess.ID), sess.UserID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether the session was signed out.
func (s *RedisStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	count, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":session:revoked:" + id
}
