package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/p-blackswan/geoai-console/internal/alert"
	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/errtext"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/state"
)

func runProjects(ctx context.Context, c *cli, args []string) error {
	sub, rest, err := subcommand(args, "list", "show", "create", "delete", "files", "detect")
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		return projectsList(ctx, c, rest)
	case "show":
		return projectsShow(ctx, c, rest)
	case "create":
		return projectsCreate(ctx, c, rest)
	case "delete":
		pid, err := parseID(rest, "project")
		if err != nil {
			return err
		}
		return c.app.Projects.Delete(ctx, pid)
	case "files":
		return projectsFiles(ctx, c, rest)
	default:
		return projectsDetect(ctx, c, rest)
	}
}

// loadList applies the filter axis, then the page axis if it moved.
func loadList[E, F any](ctx context.Context, s *state.ListStore[E, F], p *pageFlags, filter F, defaultSort string) error {
	if err := s.SetFilterSort(ctx, filterSort(p, filter, defaultSort)); err != nil {
		return err
	}
	if cur := s.Pagination(); cur.Page != p.page || cur.Limit != p.limit {
		return s.SetPagination(ctx, p.pagination())
	}
	return nil
}

func projectsList(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("projects list")
	pf := addPageFlags(fs, c.cfg.PageLimit)
	typ := fs.String("type", "", "aerial, satellite or panorama")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter, err := typeFilter(*typ)
	if err != nil {
		return err
	}
	if err := loadList(ctx, c.app.Projects.ListStore, pf, filter, state.DefaultSort); err != nil {
		return err
	}

	items := c.app.Projects.Items()
	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rows = append(rows, []string{id(p.ID), p.Name, string(p.Type), string(p.Status), p.Date, p.Info})
	}
	if err := printTable(c.out, []string{"ID", "NAME", "TYPE", "STATUS", "DATE", "INFO"}, rows); err != nil {
		return err
	}
	printPage(c.out, c.app.Projects.Pagination())
	return nil
}

func projectsShow(ctx context.Context, c *cli, args []string) error {
	pid, err := parseID(args, "project")
	if err != nil {
		return err
	}
	if _, err := c.app.Project.Load(ctx, pid); err != nil {
		return err
	}
	return printJSON(c.out, c.app.Project.View())
}

func projectsCreate(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("projects create")
	name := fs.String("name", "", "project name")
	link := fs.String("link", "", "storage folder")
	typ := fs.String("type", "aerial", "aerial, satellite or panorama")
	date := fs.String("date", time.Now().Format(time.DateOnly), "capture date, YYYY-MM-DD")
	folders := fs.Bool("folders", false, "list the storage folders for --type and exit")
	wait := fs.Bool("wait", false, "wait until the project is prepared")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pt, err := parseProjectType(*typ)
	if err != nil {
		return err
	}

	if *folders {
		links, err := c.app.Projects.LoadFolders(ctx, pt)
		if err != nil {
			return err
		}
		for _, l := range links {
			fmt.Fprintln(c.out, l)
		}
		return nil
	}

	if *name == "" || *link == "" {
		return fmt.Errorf("--name and --link are required: %w", perrors.ErrInvalidInput)
	}
	captured, err := time.Parse(time.DateOnly, *date)
	if err != nil {
		return fmt.Errorf("invalid --date %q: %w", *date, perrors.ErrInvalidInput)
	}
	params := models.NewCreateProjectParams(*name, *link, pt, captured)

	if !*wait {
		resp, err := c.app.Projects.Create(ctx, params)
		if err != nil {
			return fieldError(err)
		}
		fmt.Fprintf(c.out, "Project %d created, preparing (task %s)\n", resp.Project.ID, resp.TaskID)
		return nil
	}

	resp, w, err := c.app.Projects.CreateAndWatch(ctx, params)
	if err != nil {
		return fieldError(err)
	}
	fmt.Fprintf(c.out, "Project %d created, waiting for task %s\n", resp.Project.ID, resp.TaskID)
	return w.Wait(ctx)
}

// fieldError names the flag a create error belongs to.
func fieldError(err error) error {
	field := errtext.FieldFor(perrors.CodeOf(err))
	if field == errtext.FieldNone {
		return err
	}
	return fmt.Errorf("--%s: %s: %w", field, alert.Text(err), perrors.ErrInvalidInput)
}

func projectsFiles(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("projects files")
	refresh := fs.Bool("refresh", false, "re-read the storage folder first")
	wait := fs.Bool("wait", false, "wait while input files are still loading")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pid, err := parseID(fs.Args(), "project")
	if err != nil {
		return err
	}
	if _, err := c.app.Project.Load(ctx, pid); err != nil {
		return err
	}
	if *refresh {
		if err := c.app.Project.RefreshFiles(ctx); err != nil {
			return err
		}
	}
	if *wait && c.app.Project.View().FilesLoading {
		if err := c.app.Project.WatchFiles(ctx, c.cfg.FilesPollInterval).Wait(ctx); err != nil {
			return err
		}
	}
	printFiles(c, c.app.Project.View())
	return nil
}

func printFiles(c *cli, v state.ProjectView) {
	if v.FilesLoading {
		fmt.Fprintln(c.out, "files are still loading")
		return
	}
	rows := make([][]string, 0, len(v.Images))
	for _, f := range v.Images {
		rows = append(rows, []string{f.Name, f.Path, mark(f.Selected)})
	}
	for _, g := range v.Groups {
		rows = append(rows, []string{g.Title, fmt.Sprintf("%d images", len(g.Images)), mark(g.Selected)})
	}
	_ = printTable(c.out, []string{"NAME", "PATH", "SELECTED"}, rows)
}

func mark(b bool) string {
	if b {
		return "*"
	}
	return ""
}

func projectsDetect(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("projects detect")
	sel := fs.StringSlice("select", nil, "image paths or group titles to run on")
	all := fs.Bool("all", false, "run on every file")
	quality := fs.String("quality", "", "quality label or value (default: server default)")
	types := fs.StringSlice("models", nil, "detection models (default: server default)")
	views := fs.StringSlice("views", nil, "segmentation models (default: server default)")
	wait := fs.Bool("wait", false, "wait until detection finishes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pid, err := parseID(fs.Args(), "project")
	if err != nil {
		return err
	}

	p := c.app.Project
	if _, err := p.Load(ctx, pid); err != nil {
		return err
	}
	if err := p.LoadOptions(ctx); err != nil {
		return err
	}
	if *quality != "" {
		if err := p.SetQuality(*quality); err != nil {
			return err
		}
	}
	if fs.Changed("models") {
		p.SelectModelTypes(*types)
	}
	if fs.Changed("views") {
		p.SelectModelViews(*views)
	}

	if *all {
		p.Selection.ToggleAll(true)
	} else {
		for _, s := range *sel {
			if !p.Selection.ToggleImage(s) && !p.Selection.ToggleGroup(s) {
				return fmt.Errorf("no image or group %q: %w", s, perrors.ErrNotFound)
			}
		}
	}
	v := p.View()
	c.logger.Debug().
		Str("models", joinOr(v.SelectedTypes, "none")).
		Str("views", joinOr(v.SelectedViews, "none")).
		Str("quality", v.Quality).
		Msg("Detection options")

	if !*wait {
		resp, err := p.StartDetection(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Detection started (task %s)\n", resp.ID)
		return nil
	}
	resp, w, err := p.StartDetectionAndWatch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Detection started, waiting for task %s\n", resp.ID)
	return w.Wait(ctx)
}

func joinOr(s []string, empty string) string {
	if len(s) == 0 {
		return empty
	}
	return strings.Join(s, ",")
}
