package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/geoai-console/internal/alert"
	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/metrics"
	"github.com/p-blackswan/geoai-console/internal/models"
)

// FetchFunc loads one page of a list.
type FetchFunc[E, F any] func(ctx context.Context, p models.Pagination, fs models.FilterSort[F]) (models.Page[E], error)

// ListStore is a paginated, filterable list mirrored from the server.
// Every request is tagged with a generation; a response is applied only if
// no newer request was issued meanwhile.
type ListStore[E, F any] struct {
	name     string
	fetch    FetchFunc[E, F]
	decorate func(*E)
	alerts   *alert.Center
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu         sync.Mutex
	items      []E
	pagination models.Pagination
	filterSort models.FilterSort[F]
	issued     uint64
	loaded     bool
}

// NewListStore creates a list with the default pagination and fs as its
// initial filter. decorate, if set, is applied to every fetched item.
func NewListStore[E, F any](name string, fetch FetchFunc[E, F], fs models.FilterSort[F], decorate func(*E), deps Deps) *ListStore[E, F] {
	limit := deps.PageLimit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return &ListStore[E, F]{
		name:       name,
		fetch:      fetch,
		decorate:   decorate,
		alerts:     deps.Alerts,
		metrics:    deps.Metrics,
		logger:     deps.Logger.With().Str("component", "state").Str("store", name).Logger(),
		items:      []E{},
		pagination: models.DefaultPagination(limit),
		filterSort: fs,
	}
}

// Items returns a copy of the current page.
func (s *ListStore[E, F]) Items() []E {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]E(nil), s.items...)
}

func (s *ListStore[E, F]) Pagination() models.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

func (s *ListStore[E, F]) FilterSort() models.FilterSort[F] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterSort
}

// Loaded reports whether a fetch has succeeded since the last Clear.
func (s *ListStore[E, F]) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// SetPagination replaces the pagination and refetches.
func (s *ListStore[E, F]) SetPagination(ctx context.Context, p models.Pagination) error {
	s.mu.Lock()
	s.pagination = p
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetFilterSort replaces the filter and sort and refetches.
func (s *ListStore[E, F]) SetFilterSort(ctx context.Context, fs models.FilterSort[F]) error {
	s.mu.Lock()
	s.filterSort = fs
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh refetches the current page with the newest pagination and
// filter. On failure an alert is raised and the previous state is kept.
// A response overtaken by a newer request is dropped and ErrStale
// returned.
func (s *ListStore[E, F]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	gen := s.issued
	p, fs := s.pagination, s.filterSort
	s.mu.Unlock()

	page, err := s.fetch(ctx, p, fs)

	s.mu.Lock()
	if gen != s.issued {
		s.mu.Unlock()
		s.metrics.RecordStale(s.name)
		s.logger.Debug().Uint64("generation", gen).Msg("Discarding superseded response")
		return perrors.ErrStale
	}
	if err != nil {
		s.mu.Unlock()
		s.metrics.RecordError("state", s.name)
		s.alerts.Error(err)
		return fmt.Errorf("loading %s: %w", s.name, err)
	}

	items := page.Items
	if items == nil {
		items = []E{}
	}
	if s.decorate != nil {
		for i := range items {
			s.decorate(&items[i])
		}
	}
	s.items = items
	if page.Pagination.Limit > 0 {
		s.pagination = page.Pagination
	}
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Clear empties the list and invalidates requests in flight.
func (s *ListStore[E, F]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.items = []E{}
	s.loaded = false
}

// mutate runs a server-side change, raises success and then refetches the
// current page, so a failed refetch replaces the success alert. A failed
// change raises an error alert and is returned.
func (s *ListStore[E, F]) mutate(ctx context.Context, change func(context.Context) error, success string) error {
	if err := change(ctx); err != nil {
		s.alerts.Error(err)
		return err
	}
	if success != "" {
		s.alerts.Success(success)
	}
	if err := s.Refresh(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("Refetch after change failed")
	}
	return nil
}
