package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/state"
	"github.com/p-blackswan/geoai-console/internal/store"
)

func runJobs(ctx context.Context, c *cli, args []string) error {
	sub, rest, err := subcommand(args, "list", "watch")
	if err != nil {
		return err
	}
	if sub == "watch" {
		return jobsWatch(ctx, c)
	}

	fs := newFlags("jobs list")
	active := fs.Bool("active", false, "only jobs still running")
	kind := fs.String("kind", "", "project_create, detection, comparison or training")
	limit := fs.Int("limit", 50, "maximum jobs shown")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	jobs, err := c.db.ListJobs(ctx, store.JobFilter{Kind: store.JobKind(*kind), Active: *active, Limit: *limit})
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		result := j.Error
		if j.Status == store.JobSucceeded {
			result = targetOf(j)
		}
		rows = append(rows, []string{
			j.ID, string(j.Kind), id(j.EntityID), j.Name, string(j.Status),
			strconv.Itoa(j.Attempts), time.UnixMilli(j.CreatedAt).Format(time.DateTime), result,
		})
	}
	return printTable(c.out, []string{"TASK", "KIND", "ENTITY", "NAME", "STATUS", "CHECKS", "STARTED", "RESULT"}, rows)
}

// jobsWatch resumes every unfinished job and waits for all of them.
func jobsWatch(ctx context.Context, c *cli) error {
	watches, err := c.app.Tracker.Resume(ctx)
	if err != nil {
		return err
	}
	if len(watches) == 0 {
		fmt.Fprintln(c.out, "No jobs running")
		return nil
	}

	var failed int
	for _, w := range watches {
		fmt.Fprintf(c.out, "Watching %s %s (%s)\n", w.Job.Kind, w.Job.ID, w.Job.Name)
	}
	for _, w := range watches {
		err := w.Wait(ctx)
		switch {
		case err == nil:
		case errors.Is(err, perrors.ErrTaskFailed):
			failed++
			fmt.Fprintf(c.out, "%s %s failed\n", w.Job.Kind, w.Job.ID)
		default:
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed: %w", failed, len(watches), perrors.ErrTaskFailed)
	}
	return nil
}

// targetOf is the route a job leads to once done.
func targetOf(j *store.Job) string {
	if j.Target != "" {
		return j.Target
	}
	switch j.Kind {
	case store.JobComparison:
		return state.ComparisonPath(j.EntityID)
	case store.JobTraining:
		return state.ModelPath(j.EntityID)
	}
	return state.ProjectPath(j.EntityID)
}
