package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/pkg/tokenstore"
)

// accessToken returns the stored bearer token, or "" when there is none.
func (c *Client) accessToken(ctx context.Context) string {
	tok, err := c.tokens.Get(ctx, tokenstore.AccessTokenKey)
	if err != nil {
		return ""
	}
	return tok.Value
}

// LoggedIn reports whether a refreshable session exists.
func (c *Client) LoggedIn(ctx context.Context) bool {
	if c.accessToken(ctx) != "" {
		return true
	}
	_, err := c.tokens.Get(ctx, tokenstore.RefreshTokenKey)
	return err == nil
}

// SetAccessToken stores a bearer token, expiring it with its exp claim.
func (c *Client) SetAccessToken(ctx context.Context, raw string) error {
	if raw == "" {
		return fmt.Errorf("empty access token: %w", perrors.ErrInvalidInput)
	}
	if err := c.tokens.Set(ctx, tokenstore.AccessTokenKey, raw, tokenTTL(raw, c.now())); err != nil {
		return fmt.Errorf("storing access token: %w", err)
	}
	return nil
}

// tokenTTL reads the exp claim without verifying the signature; the server
// verifies. Tokens without exp are stored without expiry.
func tokenTTL(raw string, now time.Time) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	ttl := exp.Sub(now)
	if ttl <= 0 {
		// Already expired: keep it briefly so the next call refreshes.
		return time.Nanosecond
	}
	return ttl
}

func (c *Client) captureRefreshCookie(ctx context.Context, resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name != refreshCookie {
			continue
		}
		if ck.Value == "" || ck.MaxAge < 0 {
			_ = c.tokens.Delete(ctx, tokenstore.RefreshTokenKey)
			return
		}
		var ttl time.Duration
		switch {
		case ck.MaxAge > 0:
			ttl = time.Duration(ck.MaxAge) * time.Second
		case !ck.Expires.IsZero():
			ttl = ck.Expires.Sub(c.now())
			if ttl <= 0 {
				_ = c.tokens.Delete(ctx, tokenstore.RefreshTokenKey)
				return
			}
		}
		if err := c.tokens.Set(ctx, tokenstore.RefreshTokenKey, ck.Value, ttl); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to store refresh token")
		}
		return
	}
}

// ClearSession forgets every stored credential.
func (c *Client) ClearSession(ctx context.Context) {
	for _, key := range []string{tokenstore.AccessTokenKey, tokenstore.RefreshTokenKey, tokenstore.MapTokenKey} {
		if err := c.tokens.Delete(ctx, key); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete token")
		}
	}
}

// refreshAfter refreshes the session after a request carrying sent was
// rejected. Concurrent callers share one refresh.
func (c *Client) refreshAfter(ctx context.Context, sent string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if cur := c.accessToken(ctx); cur != "" && cur != sent {
		return nil
	}

	if _, err := c.Refresh(ctx); err != nil {
		var apiErr *perrors.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			c.logger.Info().Err(err).Msg("Session refresh rejected, dropping credentials")
			c.ClearSession(ctx)
			return fmt.Errorf("session expired: %w", perrors.ErrUnauthorized)
		}
		return fmt.Errorf("refreshing session: %w", err)
	}
	return nil
}

// Login authenticates with email and password. Doubled backslashes in the
// email (domain\\user) are collapsed to one.
func (c *Client) Login(ctx context.Context, params models.LoginParams) (*models.AuthResponse, error) {
	params.Email = NormalizeEmail(params.Email)

	var out models.AuthResponse
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/login", body: params, public: true}, &out)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := c.SetAccessToken(ctx, out.AccessToken); err != nil {
		return nil, err
	}
	return &out, nil
}

// NormalizeEmail collapses runs of one or two backslashes into one.
func NormalizeEmail(email string) string {
	out := make([]byte, 0, len(email))
	for i := 0; i < len(email); i++ {
		out = append(out, email[i])
		if email[i] == '\\' && i+1 < len(email) && email[i+1] == '\\' {
			i++
		}
	}
	return string(out)
}

// Refresh exchanges the refresh cookie for a new access token.
func (c *Client) Refresh(ctx context.Context) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, call{method: http.MethodGet, path: "/auth/refresh", public: true}, &out)
	if err != nil {
		c.metrics.RecordRefresh("failed")
		return nil, err
	}
	if err := c.SetAccessToken(ctx, out.AccessToken); err != nil {
		c.metrics.RecordRefresh("failed")
		return nil, err
	}
	c.metrics.RecordRefresh("ok")
	return &out, nil
}

// Logout ends the session on the server and forgets local credentials.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, call{method: http.MethodGet, path: "/auth/logout"}, nil)
	if err != nil && !errors.Is(err, perrors.ErrUnauthorized) {
		return fmt.Errorf("logout: %w", err)
	}
	c.ClearSession(ctx)
	return nil
}

func (c *Client) ChangePassword(ctx context.Context, params models.ChangePasswordParams) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/change-password", body: params}, nil)
}

// RestoreAccess sends a password reset link to email.
func (c *Client) RestoreAccess(ctx context.Context, params models.RestoreAccessParams) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/restore_access", body: params}, nil)
}

// CheckRestoreKey reports whether a reset key is still valid.
func (c *Client) CheckRestoreKey(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/auth/restore_access/status",
		query:  url.Values{"key": {key}},
	}, &ok)
	return ok, err
}

func (c *Client) ResetPassword(ctx context.Context, params models.ResetPasswordParams) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/restore_access/change-password",
		query:  url.Values{"key": {params.Key}},
		body:   params,
	}, nil)
}

// MapToken returns a map service token, reusing the stored one until it
// expires.
func (c *Client) MapToken(ctx context.Context) (*models.MapToken, error) {
	if tok, err := c.tokens.Get(ctx, tokenstore.MapTokenKey); err == nil {
		return &models.MapToken{
			Token:   tok.Value,
			Expires: strconv.FormatInt(tok.ExpiresAt.UnixMilli(), 10),
		}, nil
	}

	var out models.MapToken
	if err := c.do(ctx, call{method: http.MethodGet, path: "/arcgis/generate-arcgis-token"}, &out); err != nil {
		return nil, fmt.Errorf("map token: %w", err)
	}

	ttl := time.Duration(0)
	if exp, err := MapTokenExpiry(out); err == nil {
		ttl = exp.Sub(c.now())
	}
	if ttl > 0 {
		if err := c.tokens.Set(ctx, tokenstore.MapTokenKey, out.Token, ttl); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache map token")
		}
	}
	return &out, nil
}

// MapTokenExpiry parses the expires field (unix milliseconds).
func MapTokenExpiry(t models.MapToken) (time.Time, error) {
	ms, err := strconv.ParseInt(t.Expires, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing map token expiry %q: %w", t.Expires, err)
	}
	return time.UnixMilli(ms), nil
}
