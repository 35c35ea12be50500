package state

import (
	"context"
	"fmt"
	"sync"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/errtext"
	"github.com/p-blackswan/geoai-console/internal/models"
)

// HistoryAPI lists one of the history logs.
type HistoryAPI interface {
	ListHistory(ctx context.Context, typ models.HistoryType, p models.Pagination, fs models.FilterSort[models.DateRange]) (models.Page[models.HistoryEntry], error)
}

// History is the history page: one list whose source log can be switched.
type History struct {
	*ListStore[models.HistoryEntry, models.DateRange]

	mu  sync.Mutex
	typ models.HistoryType
}

func NewHistory(api HistoryAPI, deps Deps) *History {
	h := &History{typ: models.HistoryAction}
	fetch := func(ctx context.Context, p models.Pagination, fs models.FilterSort[models.DateRange]) (models.Page[models.HistoryEntry], error) {
		return api.ListHistory(ctx, h.Type(), p, fs)
	}
	h.ListStore = NewListStore("history", fetch,
		models.FilterSort[models.DateRange]{},
		func(e *models.HistoryEntry) { e.Info = errtext.Describe(e.Code, e.Description) },
		deps)
	return h
}

// Type returns the log being shown.
func (h *History) Type() models.HistoryType {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.typ
}

// SetType switches logs. Rows of the old log are dropped before the new
// log is fetched from its first page.
func (h *History) SetType(ctx context.Context, typ models.HistoryType) error {
	if !typ.Valid() {
		return fmt.Errorf("history type %q: %w", typ, perrors.ErrInvalidInput)
	}
	h.mu.Lock()
	h.typ = typ
	h.mu.Unlock()

	h.Clear()
	p := h.Pagination()
	p.Page = 1
	return h.SetPagination(ctx, p)
}
