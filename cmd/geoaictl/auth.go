package main

import (
	"context"
	"fmt"
	"os"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
)

// secret returns the flag value or, when empty, the named variable.
func secret(v, env string) string {
	if v != "" {
		return v
	}
	return os.Getenv(env)
}

func runLogin(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email or DOMAIN\\user")
	password := fs.String("password", "", "password (default $GEOAI_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw := secret(*password, "GEOAI_PASSWORD")
	if *email == "" || pw == "" {
		return fmt.Errorf("--email and a password are required: %w", perrors.ErrInvalidInput)
	}

	if err := c.app.User.Login(ctx, models.LoginParams{Email: *email, Password: pw}); err != nil {
		return err
	}
	u, _ := c.app.User.User()
	fmt.Fprintf(c.out, "Signed in as %s (%s)\n", u.Username, u.Role)
	return nil
}

func runLogout(ctx context.Context, c *cli, args []string) error {
	if err := c.app.User.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out")
	return nil
}

func runWhoami(ctx context.Context, c *cli, args []string) error {
	if err := c.app.User.CheckAuth(ctx); err != nil {
		return err
	}
	u, _ := c.app.User.User()
	return printJSON(c.out, u)
}

func runPasswd(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("passwd")
	oldPw := fs.String("old", "", "current password (default $GEOAI_PASSWORD)")
	newPw := fs.String("new", "", "new password (default $GEOAI_NEW_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.app.User.CheckAuth(ctx); err != nil {
		return err
	}
	u, _ := c.app.User.User()
	next := secret(*newPw, "GEOAI_NEW_PASSWORD")
	return c.app.User.ChangePassword(ctx, models.ChangePasswordParams{
		ID:              u.ID,
		OldPassword:     secret(*oldPw, "GEOAI_PASSWORD"),
		Password:        next,
		ConfirmPassword: next,
	})
}

func runRestoreAccess(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("restore-access")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("--email is required: %w", perrors.ErrInvalidInput)
	}
	if err := c.app.User.RestoreAccess(ctx, models.RestoreAccessParams{Email: *email}); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "A recovery link was sent if the account exists")
	return nil
}

func runResetPassword(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("reset-password")
	key := fs.String("key", "", "key from the recovery link")
	password := fs.String("password", "", "new password (default $GEOAI_NEW_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("--key is required: %w", perrors.ErrInvalidInput)
	}

	valid, err := c.app.User.CheckRestoreKey(ctx, *key)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("recovery link expired or already used: %w", perrors.ErrInvalidInput)
	}
	pw := secret(*password, "GEOAI_NEW_PASSWORD")
	if err := c.app.User.ResetPassword(ctx, models.ResetPasswordParams{Key: *key, Password: pw, ConfirmPassword: pw}); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Password changed; sign in with the new password")
	return nil
}
