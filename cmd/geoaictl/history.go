package main

import (
	"context"
	"fmt"
	"time"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
)

func runHistory(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("history")
	pf := addPageFlags(fs, c.cfg.PageLimit)
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	typ := models.HistoryAction
	switch fs.NArg() {
	case 0:
	case 1:
		typ = models.HistoryType(fs.Arg(0))
	default:
		return fmt.Errorf("expected at most one history type: %w", perrors.ErrInvalidInput)
	}

	var dr models.DateRange
	var err error
	if dr.From, err = parseDay(*from, "--from"); err != nil {
		return err
	}
	if dr.To, err = parseDay(*to, "--to"); err != nil {
		return err
	}

	h := c.app.History
	if typ != h.Type() {
		if err := h.SetType(ctx, typ); err != nil {
			return err
		}
	}
	if err := loadList(ctx, h.ListStore, pf, dr, ""); err != nil {
		return err
	}

	items := h.Items()
	rows := make([][]string, 0, len(items))
	for _, e := range items {
		action := e.UserAction
		if typ == models.HistoryObject {
			action = e.ObjectName + " " + e.Action
		}
		rows = append(rows, []string{e.Date, e.Username, e.Project, action, e.Info})
	}
	if err := printTable(c.out, []string{"DATE", "USER", "PROJECT", "ACTION", "DESCRIPTION"}, rows); err != nil {
		return err
	}
	printPage(c.out, h.Pagination())
	return nil
}

func parseDay(s, flag string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", flag, s, perrors.ErrInvalidInput)
	}
	return t, nil
}
