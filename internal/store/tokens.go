package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/p-blackswan/geoai-console/pkg/tokenstore"
)

// Tokens exposes the tokens table as a tokenstore.Store.
func (s *Store) Tokens() tokenstore.Store {
	return &tokenTable{s: s}
}

type tokenTable struct {
	s *Store
}

func (t *tokenTable) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	now := time.Now()
	var expiresAt int64
	if exp := tokenstore.ExpiryFor(now, ttl); !exp.IsZero() {
		expiresAt = exp.UnixMilli()
	}

	_, err := t.s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tokens (key, value, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		key, value, expiresAt, now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (t *tokenTable) Get(ctx context.Context, key string) (*tokenstore.Token, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	var value string
	var expiresAt int64
	err := t.s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM tokens WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tokenstore.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	tok := &tokenstore.Token{Key: key, Value: value}
	if expiresAt > 0 {
		tok.ExpiresAt = time.UnixMilli(expiresAt)
	}
	if tok.IsExpired() {
		return nil, tokenstore.ErrTokenExpired
	}
	return tok, nil
}

func (t *tokenTable) Delete(ctx context.Context, key string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, err := t.s.db.ExecContext(ctx, `DELETE FROM tokens WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

func (t *tokenTable) Cleanup(ctx context.Context) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	res, err := t.s.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE expires_at > 0 AND expires_at <= ?`, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
