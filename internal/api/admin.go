package api

import (
	"context"
	"net/http"

	"github.com/p-blackswan/geoai-console/internal/models"
)

// ListUsers fetches one page of platform accounts.
func (c *Client) ListUsers(ctx context.Context, p models.Pagination, fs models.FilterSort[models.RoleFilter]) (models.Page[models.User], error) {
	return getPage[models.User](ctx, c, call{
		method: http.MethodGet,
		path:   "/auth/all-users",
		query:  pageQuery(p, fs, string(fs.Filter)),
	}, "users")
}

// CreateUser creates an account and sends its invitation.
func (c *Client) CreateUser(ctx context.Context, params models.CreateUserParams) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/create-user", body: params}, nil)
}

func (c *Client) UpdateUser(ctx context.Context, params models.UpdateUserParams) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, call{method: http.MethodPost, path: "/auth/change-user-data", body: params}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetUserStatus activates or blocks an account.
func (c *Client) SetUserStatus(ctx context.Context, params models.UpdateUserStatusParams) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/change-status-user", body: params}, nil)
}

// ResendInvite sends the invitation email again.
func (c *Client) ResendInvite(ctx context.Context, userID int64) error {
	return c.do(ctx, call{method: http.MethodGet, path: "/auth/invite-user", query: idQuery("id", userID)}, nil)
}

// ListGroups fetches one page of user groups. Groups have no filter.
func (c *Client) ListGroups(ctx context.Context, p models.Pagination, fs models.FilterSort[models.NoFilter]) (models.Page[models.Group], error) {
	return getPage[models.Group](ctx, c, call{
		method: http.MethodGet,
		path:   "/auth/all-groups",
		query:  pageQuery(p, fs, ""),
	}, "groups")
}

func (c *Client) CreateGroup(ctx context.Context, params models.CreateGroupParams) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/create-group", body: params}, nil)
}
