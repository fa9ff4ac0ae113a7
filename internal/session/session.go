// Package session carries the authenticated actor through request handling.
//
// A Session is created by the JWT middleware after a bearer token verifies and is handed to
// services as an explicit argument. Signing out revokes the session id until the token expires.
package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Role identifies the kind of account behind a session.
type Role string

// Supported roles.
const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// ErrNoSession indicates the request carries no authenticated session.
var ErrNoSession = errors.New("no active session")

// Session is the authenticated identity for a single request.
type Session struct {
	ID         string
	UserID     string
	Role       Role
	HostelName string
	ExpiresAt  time.Time
}

// ParseRole normalises a role claim.
func ParseRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// IsAdmin reports whether the session belongs to a hostel administrator.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// IsStudent reports whether the session belongs to a resident.
func (s Session) IsStudent() bool {
	return s.Role == RoleStudent
}

// Valid reports whether the session identifies somebody.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.UserID) != ""
}

// TTL returns the remaining lifetime relative to now, never negative.
func (s Session) TTL(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

type contextKey struct{}

// WithContext attaches the session to ctx.
func WithContext(ctx context.Context, sess Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session bound to ctx.
func FromContext(ctx context.Context) (Session, error) {
	if ctx == nil {
		return Session{}, ErrNoSession
	}
	sess, ok := ctx.Value(contextKey{}).(Session)
	if !ok || !sess.Valid() {
		return Session{}, ErrNoSession
	}
	return sess, nil
}
