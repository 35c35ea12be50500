package main

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/state"
)

func runCompare(ctx context.Context, c *cli, args []string) error {
	sub, rest, err := subcommand(args, "list", "show", "start", "delete", "candidates")
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		return compareList(ctx, c, rest)
	case "show":
		cid, err := parseID(rest, "comparison")
		if err != nil {
			return err
		}
		cmp, err := c.app.Comparisons.Load(ctx, cid)
		if err != nil {
			return err
		}
		return printJSON(c.out, cmp)
	case "delete":
		cid, err := parseID(rest, "comparison")
		if err != nil {
			return err
		}
		return c.app.Comparisons.Delete(ctx, cid)
	case "candidates":
		return compareCandidates(ctx, c)
	default:
		return compareStart(ctx, c, rest)
	}
}

func compareList(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("compare list")
	pf := addPageFlags(fs, c.cfg.PageLimit)
	typ := fs.String("type", "", "aerial, satellite or panorama")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter, err := typeFilter(*typ)
	if err != nil {
		return err
	}
	s := c.app.Comparisons
	if err := loadList(ctx, s.ListStore, pf, filter, state.DefaultSort); err != nil {
		return err
	}

	items := s.Items()
	rows := make([][]string, 0, len(items))
	for _, cmp := range items {
		rows = append(rows, []string{
			id(cmp.ID), cmp.Project1.Name, cmp.Project2.Name, string(cmp.Type), string(cmp.Status), cmp.Info,
		})
	}
	if err := printTable(c.out, []string{"ID", "FIRST", "SECOND", "TYPE", "STATUS", "INFO"}, rows); err != nil {
		return err
	}
	printPage(c.out, s.Pagination())
	return nil
}

// compareCandidates lists the finished projects a comparison can use.
func compareCandidates(ctx context.Context, c *cli) error {
	ps, err := c.app.Comparisons.LoadFinishedProjects(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []string{id(p.ID), p.Name, string(p.Type), p.Date})
	}
	return printTable(c.out, []string{"ID", "NAME", "TYPE", "DATE"}, rows)
}

func compareStart(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("compare start")
	wait := fs.Bool("wait", false, "wait until the comparison finishes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("expected two project ids: %w", perrors.ErrInvalidInput)
	}

	pair := make([]models.Project, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, arg := range fs.Args() {
		pid, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || pid < 1 {
			return fmt.Errorf("invalid project id %q: %w", arg, perrors.ErrInvalidInput)
		}
		g.Go(func() error {
			p, err := c.client.GetProject(gctx, pid)
			if err != nil {
				return err
			}
			pair[i] = *p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !*wait {
		cid, err := c.app.Comparisons.Start(ctx, pair)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Comparison %d started\n", cid)
		return nil
	}
	cid, w, err := c.app.Comparisons.StartAndWatch(ctx, pair)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Comparison %d started, waiting\n", cid)
	return w.Wait(ctx)
}
