package mapsession

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/geoai-console/internal/models"
)

// TokenSource issues map service tokens.
type TokenSource interface {
	MapToken(ctx context.Context) (*models.MapToken, error)
}

// Session holds the active view and highlight. It never touches layers of
// a view it no longer references.
type Session struct {
	mu        sync.Mutex
	view      View
	highlight Handle
	token     *models.MapToken
	expiry    *time.Timer

	logger zerolog.Logger
	now    func() time.Time
}

// New creates an empty session.
func New(logger zerolog.Logger) *Session {
	return &Session{
		logger: logger.With().Str("component", "mapsession").Logger(),
		now:    time.Now,
	}
}

// SetMapView replaces the active view. nil clears it.
func (s *Session) SetMapView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

// MapView returns the active view, or nil.
func (s *Session) MapView() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetHighlightHandle releases the previous highlight, if any, and stores h.
func (s *Session) SetHighlightHandle(h Handle) {
	s.mu.Lock()
	old := s.highlight
	s.highlight = h
	s.mu.Unlock()

	if old != nil {
		old.Remove()
	}
}

// HighlightHandle returns the active highlight, or nil.
func (s *Session) HighlightHandle() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlight
}

// Token returns the current map token, if one is held.
func (s *Session) Token() (*models.MapToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, false
	}
	t := *s.token
	return &t, true
}

// FetchToken obtains a map token and arranges for it and the view to be
// dropped when it expires.
func (s *Session) FetchToken(ctx context.Context, src TokenSource) (*models.MapToken, error) {
	tok, err := src.MapToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching map token: %w", err)
	}

	ms, err := strconv.ParseInt(tok.Expires, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing map token expiry %q: %w", tok.Expires, err)
	}
	expiresIn := time.UnixMilli(ms).Sub(s.now())

	s.mu.Lock()
	if s.expiry != nil {
		s.expiry.Stop()
	}
	t := *tok
	s.token = &t
	s.expiry = time.AfterFunc(expiresIn, s.DropToken)
	s.mu.Unlock()

	s.logger.Debug().Dur("expires_in", expiresIn).Msg("Map token set")
	return tok, nil
}

// DropToken forgets the token and the view built with it.
func (s *Session) DropToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	s.token = nil
	s.view = nil
}

// Close releases the highlight and stops the expiry timer.
func (s *Session) Close() {
	s.SetHighlightHandle(nil)
	s.DropToken()
}
