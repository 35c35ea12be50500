package main

import (
	"context"
	"fmt"
	"sort"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
)

func runPrefs(ctx context.Context, c *cli, args []string) error {
	sub, rest, err := subcommand(args, "get", "set")
	if err != nil {
		return err
	}
	prefs := c.app.Prefs.All()

	if sub == "set" {
		if len(rest) != 2 {
			return fmt.Errorf("expected KEY VALUE: %w", perrors.ErrInvalidInput)
		}
		return c.app.Prefs.Set(ctx, rest[0], rest[1])
	}

	switch len(rest) {
	case 0:
		keys := make([]string, 0, len(prefs))
		for k := range prefs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(c.out, "%s=%s\n", k, prefs[k])
		}
		return nil
	case 1:
		v, ok := prefs[rest[0]]
		if !ok {
			return fmt.Errorf("unknown preference %q: %w", rest[0], perrors.ErrNotFound)
		}
		fmt.Fprintln(c.out, v)
		return nil
	}
	return fmt.Errorf("expected at most one KEY: %w", perrors.ErrInvalidInput)
}
