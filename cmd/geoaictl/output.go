package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func printPage(w io.Writer, p models.Pagination) {
	fmt.Fprintf(w, "page %d of %d, %d total\n", p.Page, p.Pages, p.Total)
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func newFlags(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

// pageFlags are the pagination and filter flags every list shares.
type pageFlags struct {
	page    int
	limit   int
	search  string
	sort    string
	reverse bool
}

func addPageFlags(fs *pflag.FlagSet, defaultLimit int) *pageFlags {
	p := &pageFlags{}
	fs.IntVar(&p.page, "page", 1, "page number")
	fs.IntVar(&p.limit, "limit", defaultLimit, "rows per page")
	fs.StringVar(&p.search, "search", "", "search text")
	fs.StringVar(&p.sort, "sort", "", "sort column")
	fs.BoolVar(&p.reverse, "reverse", false, "reverse the sort")
	return p
}

func (p *pageFlags) pagination() models.Pagination {
	return models.Pagination{Page: p.page, Limit: p.limit}
}

func filterSort[F any](p *pageFlags, filter F, defaultSort string) models.FilterSort[F] {
	fs := models.FilterSort[F]{Filter: filter, Search: p.search, Sort: p.sort, Reverse: p.reverse}
	if fs.Sort == "" {
		fs.Sort = defaultSort
	}
	return fs
}

// parseID reads the single positional id argument.
func parseID(args []string, what string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one %s id: %w", what, perrors.ErrInvalidInput)
	}
	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid %s id %q: %w", what, args[0], perrors.ErrInvalidInput)
	}
	return v, nil
}

func parseProjectType(s string) (models.ProjectType, error) {
	t, ok := models.ParseProjectType(s)
	if !ok {
		return "", fmt.Errorf("unknown project type %q: %w", s, perrors.ErrInvalidInput)
	}
	return t, nil
}

// typeFilter turns an optional --type flag into a list filter.
func typeFilter(s string) (models.TypeFilter, error) {
	if s == "" || s == models.FilterAll {
		return models.FilterAll, nil
	}
	t, err := parseProjectType(s)
	return models.TypeFilter(t), err
}
