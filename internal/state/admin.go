package state

import (
	"context"

	"github.com/p-blackswan/geoai-console/internal/alert"
	"github.com/p-blackswan/geoai-console/internal/models"
)

// AdminAPI is the part of the REST client the admin pages need.
type AdminAPI interface {
	ListUsers(ctx context.Context, p models.Pagination, fs models.FilterSort[models.RoleFilter]) (models.Page[models.User], error)
	CreateUser(ctx context.Context, params models.CreateUserParams) error
	UpdateUser(ctx context.Context, params models.UpdateUserParams) (*models.User, error)
	SetUserStatus(ctx context.Context, params models.UpdateUserStatusParams) error
	ResendInvite(ctx context.Context, userID int64) error
	ListGroups(ctx context.Context, p models.Pagination, fs models.FilterSort[models.NoFilter]) (models.Page[models.Group], error)
	CreateGroup(ctx context.Context, params models.CreateGroupParams) error
}

// Admin holds the users and groups tables.
type Admin struct {
	Users  *ListStore[models.User, models.RoleFilter]
	Groups *ListStore[models.Group, models.NoFilter]

	api    AdminAPI
	alerts *alert.Center
}

func NewAdmin(api AdminAPI, deps Deps) *Admin {
	return &Admin{
		Users: NewListStore("users", api.ListUsers,
			models.FilterSort[models.RoleFilter]{Filter: models.FilterAll}, nil, deps),
		Groups: NewListStore("groups", api.ListGroups,
			models.FilterSort[models.NoFilter]{}, nil, deps),
		api:    api,
		alerts: deps.Alerts,
	}
}

func (s *Admin) CreateUser(ctx context.Context, params models.CreateUserParams) error {
	return s.Users.mutate(ctx, func(ctx context.Context) error {
		return s.api.CreateUser(ctx, params)
	}, alert.CreateUserSuccess)
}

func (s *Admin) UpdateUser(ctx context.Context, params models.UpdateUserParams) error {
	return s.Users.mutate(ctx, func(ctx context.Context) error {
		_, err := s.api.UpdateUser(ctx, params)
		return err
	}, alert.UpdateUserSuccess)
}

// SetUserStatus activates or blocks a user.
func (s *Admin) SetUserStatus(ctx context.Context, id int64, active bool) error {
	return s.Users.mutate(ctx, func(ctx context.Context) error {
		return s.api.SetUserStatus(ctx, models.UpdateUserStatusParams{ID: id, Status: active})
	}, "")
}

// ResendInvite mails the invitation again. Nothing on the page changes.
func (s *Admin) ResendInvite(ctx context.Context, id int64) error {
	if err := s.api.ResendInvite(ctx, id); err != nil {
		s.alerts.Error(err)
		return err
	}
	s.alerts.Success(alert.SendInvitationSuccess)
	return nil
}

func (s *Admin) CreateGroup(ctx context.Context, params models.CreateGroupParams) error {
	return s.Groups.mutate(ctx, func(ctx context.Context) error {
		return s.api.CreateGroup(ctx, params)
	}, alert.CreateGroupSuccess)
}
