package state

import (
	"context"
	"sync"

	"github.com/p-blackswan/geoai-console/internal/alert"
	"github.com/p-blackswan/geoai-console/internal/models"
)

// AuthAPI is the part of the REST client the user store needs.
type AuthAPI interface {
	Login(ctx context.Context, params models.LoginParams) (*models.AuthResponse, error)
	Refresh(ctx context.Context) (*models.AuthResponse, error)
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, params models.ChangePasswordParams) error
	RestoreAccess(ctx context.Context, params models.RestoreAccessParams) error
	CheckRestoreKey(ctx context.Context, key string) (bool, error)
	ResetPassword(ctx context.Context, params models.ResetPasswordParams) error
}

// UserStore holds the signed-in user and their preferences.
type UserStore struct {
	api    AuthAPI
	alerts *alert.Center
	Prefs  *Preferences

	mu   sync.Mutex
	user *models.User
}

func NewUserStore(api AuthAPI, prefs *Preferences, deps Deps) *UserStore {
	return &UserStore{api: api, alerts: deps.Alerts, Prefs: prefs}
}

// User returns the signed-in user.
func (s *UserStore) User() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// IsAdmin reports whether the signed-in user administers the platform.
func (s *UserStore) IsAdmin() bool {
	u, ok := s.User()
	return ok && u.Role == models.RoleAdmin
}

func (s *UserStore) setUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

// Login signs in. Errors are returned for display next to the form.
func (s *UserStore) Login(ctx context.Context, params models.LoginParams) error {
	resp, err := s.api.Login(ctx, params)
	if err != nil {
		return err
	}
	s.setUser(&resp.User)
	return nil
}

// CheckAuth restores the session from the refresh token.
func (s *UserStore) CheckAuth(ctx context.Context) error {
	resp, err := s.api.Refresh(ctx)
	if err != nil {
		return err
	}
	s.setUser(&resp.User)
	return nil
}

// Logout signs out. A failure raises an alert and keeps the user.
func (s *UserStore) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.alerts.Error(err)
		return err
	}
	s.setUser(nil)
	return nil
}

func (s *UserStore) ChangePassword(ctx context.Context, params models.ChangePasswordParams) error {
	if err := s.api.ChangePassword(ctx, params); err != nil {
		return err
	}
	s.alerts.Success(alert.ChangePasswordSuccess)
	return nil
}

func (s *UserStore) RestoreAccess(ctx context.Context, params models.RestoreAccessParams) error {
	return s.api.RestoreAccess(ctx, params)
}

func (s *UserStore) CheckRestoreKey(ctx context.Context, key string) (bool, error) {
	return s.api.CheckRestoreKey(ctx, key)
}

func (s *UserStore) ResetPassword(ctx context.Context, params models.ResetPasswordParams) error {
	return s.api.ResetPassword(ctx, params)
}
