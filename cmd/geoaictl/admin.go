package main

import (
	"context"
	"fmt"
	"strconv"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
)

func runAdmin(ctx context.Context, c *cli, args []string) error {
	sub, rest, err := subcommand(args, "users", "user-create", "user-update", "user-status", "invite", "groups", "group-create")
	if err != nil {
		return err
	}
	a := c.app.Admin

	switch sub {
	case "users":
		return adminUsers(ctx, c, rest)
	case "user-create":
		fs := newFlags("admin user-create")
		name := fs.String("username", "", "user name")
		email := fs.String("email", "", "email the invitation is sent to")
		role := fs.String("role", string(models.RoleUser), "user, ml_user or admin")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *name == "" || *email == "" {
			return fmt.Errorf("--username and --email are required: %w", perrors.ErrInvalidInput)
		}
		r, err := parseRole(*role)
		if err != nil {
			return err
		}
		if err := a.CreateUser(ctx, models.CreateUserParams{Username: *name, Email: *email, Role: r}); err != nil {
			return fieldError(err)
		}
		return nil
	case "user-update":
		fs := newFlags("admin user-update")
		name := fs.String("username", "", "new user name")
		role := fs.String("role", "", "new role")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		uid, err := parseID(fs.Args(), "user")
		if err != nil {
			return err
		}
		if *name == "" || *role == "" {
			return fmt.Errorf("--username and --role are required: %w", perrors.ErrInvalidInput)
		}
		r, err := parseRole(*role)
		if err != nil {
			return err
		}
		return a.UpdateUser(ctx, models.UpdateUserParams{ID: uid, Username: *name, Role: r})
	case "user-status":
		fs := newFlags("admin user-status")
		active := fs.Bool("active", true, "activate (true) or block (false) the user")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		uid, err := parseID(fs.Args(), "user")
		if err != nil {
			return err
		}
		return a.SetUserStatus(ctx, uid, *active)
	case "invite":
		uid, err := parseID(rest, "user")
		if err != nil {
			return err
		}
		return a.ResendInvite(ctx, uid)
	case "groups":
		fs := newFlags("admin groups")
		pf := addPageFlags(fs, c.cfg.PageLimit)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := loadList(ctx, a.Groups, pf, models.NoFilter{}, ""); err != nil {
			return err
		}
		items := a.Groups.Items()
		rows := make([][]string, 0, len(items))
		for _, g := range items {
			rows = append(rows, []string{id(g.ID), g.Name, strconv.Itoa(len(g.Users)), g.CreatedAt})
		}
		if err := printTable(c.out, []string{"ID", "NAME", "USERS", "CREATED"}, rows); err != nil {
			return err
		}
		printPage(c.out, a.Groups.Pagination())
		return nil
	default:
		fs := newFlags("admin group-create")
		name := fs.String("name", "", "group name")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *name == "" {
			return fmt.Errorf("--name is required: %w", perrors.ErrInvalidInput)
		}
		return a.CreateGroup(ctx, models.CreateGroupParams{Name: *name})
	}
}

func adminUsers(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("admin users")
	pf := addPageFlags(fs, c.cfg.PageLimit)
	role := fs.String("role", models.FilterAll, "user, ml_user, admin or all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter := models.RoleFilter(*role)
	if *role != models.FilterAll {
		r, err := parseRole(*role)
		if err != nil {
			return err
		}
		filter = models.RoleFilter(r)
	}

	users := c.app.Admin.Users
	if err := loadList(ctx, users, pf, filter, ""); err != nil {
		return err
	}
	items := users.Items()
	rows := make([][]string, 0, len(items))
	for _, u := range items {
		status := "blocked"
		if u.IsActive {
			status = "active"
		}
		rows = append(rows, []string{id(u.ID), u.Username, u.Email, string(u.Role), status})
	}
	if err := printTable(c.out, []string{"ID", "USERNAME", "EMAIL", "ROLE", "STATUS"}, rows); err != nil {
		return err
	}
	printPage(c.out, users.Pagination())
	return nil
}

func parseRole(s string) (models.Role, error) {
	r := models.Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q: %w", s, perrors.ErrInvalidInput)
	}
	return r, nil
}
