package api

import (
	"context"
	"fmt"
	"net/http"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
)

var historyPaths = map[models.HistoryType]string{
	models.HistoryAction: "/history/get-all-action-history",
	models.HistoryObject: "/history/get-all-object-history",
	models.HistoryError:  "/history/get-all-error-history",
}

// ListHistory fetches one page of a history log. The To date is inclusive:
// the server receives the start of the following day.
func (c *Client) ListHistory(ctx context.Context, typ models.HistoryType, p models.Pagination, fs models.FilterSort[models.DateRange]) (models.Page[models.HistoryEntry], error) {
	path, ok := historyPaths[typ]
	if !ok {
		return models.Page[models.HistoryEntry]{}, fmt.Errorf("unknown history type %q: %w", typ, perrors.ErrInvalidInput)
	}

	q := pageQuery(p, fs, "")
	if !fs.Filter.From.IsZero() {
		q.Set("from_date", fs.Filter.From.UTC().Format(isoLayout))
	}
	if !fs.Filter.To.IsZero() {
		q.Set("to_date", fs.Filter.To.AddDate(0, 0, 1).UTC().Format(isoLayout))
	}

	return getPage[models.HistoryEntry](ctx, c, call{
		method: http.MethodGet,
		path:   path,
		query:  q,
	}, "histories")
}

// isoLayout matches JavaScript's Date.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"
