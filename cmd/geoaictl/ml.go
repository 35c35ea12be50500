package main

import (
	"context"
	"fmt"
	"strings"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/state"
)

func runML(ctx context.Context, c *cli, args []string) error {
	sub, rest, err := subcommand(args, "list", "show", "create", "train", "finish", "delete", "types", "folders", "dashboard")
	if err != nil {
		return err
	}
	ml := c.app.ML

	switch sub {
	case "list":
		return mlList(ctx, c, rest)
	case "show":
		mid, err := parseID(rest, "model")
		if err != nil {
			return err
		}
		m, err := ml.Load(ctx, mid)
		if err != nil {
			return err
		}
		return printJSON(c.out, m)
	case "create":
		return mlCreate(ctx, c, rest)
	case "train":
		return mlTrain(ctx, c, rest)
	case "finish":
		mid, err := parseID(rest, "model")
		if err != nil {
			return err
		}
		return ml.FinishTraining(ctx, mid)
	case "delete":
		mid, err := parseID(rest, "model")
		if err != nil {
			return err
		}
		return ml.Delete(ctx, mid)
	case "types":
		types, err := ml.ModelTypes(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, strings.Join(types, "\n"))
		return nil
	case "folders":
		folders, err := ml.Folders(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, strings.Join(folders, "\n"))
		return nil
	default:
		u, err := ml.MLFlowURL(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, u)
		return nil
	}
}

func mlList(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("ml list")
	pf := addPageFlags(fs, c.cfg.PageLimit)
	tab := fs.String("tab", "", "default or created (default: last used)")
	typ := fs.String("type", "", "aerial, satellite or panorama")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ml := c.app.ML
	if *tab != "" && models.MLTab(*tab) != ml.Tab() {
		if !models.MLTab(*tab).Valid() {
			return fmt.Errorf("unknown tab %q: %w", *tab, perrors.ErrInvalidInput)
		}
		if err := ml.SetTab(ctx, models.MLTab(*tab)); err != nil {
			return err
		}
	}
	filter, err := typeFilter(*typ)
	if err != nil {
		return err
	}
	list := ml.Active()
	if err := loadList(ctx, list, pf, filter, state.DefaultSort); err != nil {
		return err
	}

	items := list.Items()
	rows := make([][]string, 0, len(items))
	for _, m := range items {
		rows = append(rows, []string{
			id(m.ID), m.Name, string(m.Status), strings.Join(m.TypeOfData, ","), strings.Join(m.TypeOfObjects, ","), m.Info,
		})
	}
	fmt.Fprintf(c.out, "%s models\n", ml.Tab())
	if err := printTable(c.out, []string{"ID", "NAME", "STATUS", "DATA", "OBJECTS", "INFO"}, rows); err != nil {
		return err
	}
	printPage(c.out, list.Pagination())
	return nil
}

func mlCreate(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("ml create")
	name := fs.String("name", "", "model name")
	link := fs.String("link", "", "training data folder")
	data := fs.String("data", "aerial", "type of data: aerial, satellite or panorama")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *link == "" {
		return fmt.Errorf("--name and --link are required: %w", perrors.ErrInvalidInput)
	}
	pt, err := parseProjectType(*data)
	if err != nil {
		return err
	}
	mid, err := c.app.ML.Create(ctx, models.CreateMLModelParams{Name: *name, Link: *link, TypeOfData: string(pt)})
	if err != nil {
		return fieldError(err)
	}
	c.app.Tracker.Navigate(state.ModelPath(mid))
	return nil
}

func mlTrain(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("ml train")
	arch := fs.String("arch", string(models.ViewYolo), "model architecture, see ml types")
	epochs := fs.Int("epochs", 50, "training epochs")
	scale := fs.Float64("scale", 1, "image scale factor")
	classes := fs.StringSlice("classes", nil, "classes to train on")
	wait := fs.Bool("wait", false, "wait until training settles")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mid, err := parseID(fs.Args(), "model")
	if err != nil {
		return err
	}
	if *epochs < 1 || *scale <= 0 {
		return fmt.Errorf("--epochs and --scale must be positive: %w", perrors.ErrInvalidInput)
	}

	m, err := c.app.ML.Load(ctx, mid)
	if err != nil {
		return err
	}
	params := models.StartTrainingParams{
		ID:          mid,
		TypeModel:   *arch,
		Epochs:      *epochs,
		ScaleFactor: *scale,
		Classes:     *classes,
	}
	if len(params.Classes) == 0 && m.TaskResult != nil {
		params.Classes = m.TaskResult.Classes
	}

	if !*wait {
		task, err := c.app.ML.StartTraining(ctx, params)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Training started (task %s)\n", task.ID)
		return nil
	}
	w, err := c.app.ML.StartTrainingAndWatch(ctx, params, m.Name)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Training started, waiting for task %s\n", w.Job.ID)
	return w.Wait(ctx)
}
