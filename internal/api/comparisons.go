package api

import (
	"context"
	"net/http"

	"github.com/p-blackswan/geoai-console/internal/models"
)

// ListComparisons fetches one page of comparisons.
func (c *Client) ListComparisons(ctx context.Context, p models.Pagination, fs models.FilterSort[models.TypeFilter]) (models.Page[models.Comparison], error) {
	return getPage[models.Comparison](ctx, c, call{
		method: http.MethodGet,
		path:   "/project/get-all-compare-projects",
		query:  pageQuery(p, fs, string(fs.Filter)),
	}, "projects")
}

func (c *Client) GetComparison(ctx context.Context, id int64) (*models.Comparison, error) {
	var out models.Comparison
	if err := c.do(ctx, call{method: http.MethodGet, path: "/project/get-compare-projects", query: idQuery("id", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartComparison compares two projects. The response carries the new
// comparison id in ProjectIDs.
func (c *Client) StartComparison(ctx context.Context, projectIDs []int64) (*models.ComparisonTask, error) {
	var out models.ComparisonTask
	if err := c.do(ctx, call{method: http.MethodPost, path: "/project/compare-projects", body: projectIDs}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteComparison(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/project/delete-compare-projects", query: idQuery("id", id)}, nil)
}
