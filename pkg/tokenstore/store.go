// Package tokenstore keeps the credentials the console needs between runs:
// the GeoAI access and refresh tokens and the short-lived map service token.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
)

// Well-known keys.
const (
	AccessTokenKey  = "geoai.access_token"
	RefreshTokenKey = "geoai.refresh_token"
	MapTokenKey     = "geoai.map_token"
)

// Token represents a stored credential. A zero ExpiresAt never expires.
type Token struct {
	Key       string            `json:"key"`
	Value     string            `json:"value"`
	ExpiresAt time.Time         `json:"expires_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// IsExpired reports whether the token is past its expiry.
func (t *Token) IsExpired() bool {
	return t.expiredAt(time.Now())
}

func (t *Token) expiredAt(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// TTL returns the remaining lifetime, or 0 if the token never expires.
func (t *Token) TTL() time.Duration {
	if t.ExpiresAt.IsZero() {
		return 0
	}
	return time.Until(t.ExpiresAt)
}

// Store defines the token storage interface.
type Store interface {
	// Set stores a token under key. ttl <= 0 stores it without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get retrieves a token by key. Returns ErrTokenNotFound or ErrTokenExpired.
	Get(ctx context.Context, key string) (*Token, error)
	// Delete removes a token by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Cleanup removes all expired tokens and reports how many were dropped.
	Cleanup(ctx context.Context) (int, error)
}

// ExpiryFor converts a ttl into an absolute expiry, zero meaning none.
func ExpiryFor(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
