package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/geoai-console/internal/alert"
	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/state"
	"github.com/p-blackswan/geoai-console/internal/store"
)

func TestSubcommand(t *testing.T) {
	sub, rest, err := subcommand([]string{"list", "--page", "2"}, "list", "show")
	require.NoError(t, err)
	assert.Equal(t, "list", sub)
	assert.Equal(t, []string{"--page", "2"}, rest)

	_, _, err = subcommand(nil, "list")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	_, _, err = subcommand([]string{"frobnicate"}, "list", "show")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "frobnicate")
}

func TestParseID(t *testing.T) {
	v, err := parseID([]string{"42"}, "project")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	for _, args := range [][]string{nil, {"0"}, {"-3"}, {"abc"}, {"1", "2"}} {
		_, err := parseID(args, "project")
		assert.ErrorIs(t, err, perrors.ErrInvalidInput, "args %v", args)
	}
}

func TestTypeFilter(t *testing.T) {
	f, err := typeFilter("")
	require.NoError(t, err)
	assert.Equal(t, models.TypeFilter(models.FilterAll), f)

	f, err = typeFilter("360")
	require.NoError(t, err)
	assert.Equal(t, models.TypeFilter(models.ProjectPanorama), f)

	_, err = typeFilter("lidar")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestFilterSort_DefaultSort(t *testing.T) {
	p := &pageFlags{page: 1, limit: 10, search: "site"}
	fs := filterSort(p, models.TypeFilter(models.FilterAll), state.DefaultSort)
	assert.Equal(t, state.DefaultSort, fs.Sort)
	assert.Equal(t, "site", fs.Search)

	p.sort = "name"
	p.reverse = true
	fs = filterSort(p, models.TypeFilter(models.FilterAll), state.DefaultSort)
	assert.Equal(t, "name", fs.Sort)
	assert.True(t, fs.Reverse)
}

func TestFieldError(t *testing.T) {
	err := perrors.NewAPIError("geoai", 400, "PROJECT_EXIST", "")
	got := fieldError(err)
	assert.ErrorIs(t, got, perrors.ErrInvalidInput)
	assert.Contains(t, got.Error(), "--name")
	assert.Contains(t, got.Error(), alert.Text(err))

	plain := errors.New("boom")
	assert.Equal(t, plain, fieldError(plain))
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "boom", errorText(errors.New("boom")))
	assert.Equal(t, "server says no", errorText(perrors.NewAPIError("geoai", 400, "", "server says no")))
}

func TestTargetOf(t *testing.T) {
	assert.Equal(t, "/projects/comparison/7", targetOf(&store.Job{Kind: store.JobComparison, EntityID: 7}))
	assert.Equal(t, "/projects/3", targetOf(&store.Job{Kind: store.JobDetection, EntityID: 3}))
	assert.Equal(t, "/custom", targetOf(&store.Job{Kind: store.JobDetection, EntityID: 3, Target: "/custom"}))
}

func TestRunPrefs(t *testing.T) {
	ctx := context.Background()
	app, err := state.New(ctx, state.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer app.Close()

	var out bytes.Buffer
	c := &cli{app: app, out: &out, logger: zerolog.Nop()}

	require.NoError(t, runPrefs(ctx, c, []string{"set", state.PrefMLTab, "created"}))
	require.NoError(t, runPrefs(ctx, c, []string{"get", state.PrefMLTab}))
	assert.Equal(t, "created\n", out.String())

	out.Reset()
	require.NoError(t, runPrefs(ctx, c, []string{"get"}))
	assert.Equal(t, "mapFilesToggle=both\nmlTab=created\n", out.String())

	assert.ErrorIs(t, runPrefs(ctx, c, []string{"set", state.PrefMLTab, "bogus"}), perrors.ErrInvalidInput)
	assert.ErrorIs(t, runPrefs(ctx, c, []string{"get", "nope"}), perrors.ErrNotFound)
}
