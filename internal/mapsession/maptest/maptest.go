// Package maptest provides in-memory fakes of the mapping SDK.
package maptest

import (
	"context"
	"sync"

	"github.com/p-blackswan/geoai-console/internal/mapsession"
)

// Layer is a GraphicsLayer that records its contents and the calls made.
type Layer struct {
	mu       sync.Mutex
	graphics []mapsession.Graphic
	Calls    []string
}

func (l *Layer) Add(g mapsession.Graphic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "add")
	l.graphics = append(l.graphics, g)
}

func (l *Layer) Remove(g mapsession.Graphic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "remove")
	l.removeLocked(g)
}

func (l *Layer) AddMany(gs []mapsession.Graphic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "addMany")
	l.graphics = append(l.graphics, gs...)
}

func (l *Layer) RemoveMany(gs []mapsession.Graphic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "removeMany")
	for _, g := range gs {
		l.removeLocked(g)
	}
}

func (l *Layer) removeLocked(g mapsession.Graphic) {
	for i, have := range l.graphics {
		if have.ID == g.ID {
			l.graphics = append(l.graphics[:i], l.graphics[i+1:]...)
			return
		}
	}
}

// Len returns the number of graphics on the layer.
func (l *Layer) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.graphics)
}

// Has reports whether a graphic with id is on the layer.
func (l *Layer) Has(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, g := range l.graphics {
		if g.ID == id {
			return true
		}
	}
	return false
}

// View is a View backed by a Layer.
type View struct {
	Layer Layer
}

func (v *View) Graphics() mapsession.GraphicsLayer { return &v.Layer }

// Handle counts Remove calls.
type Handle struct {
	mu      sync.Mutex
	removed int
}

func (h *Handle) Remove() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removed++
}

// Removed returns how many times Remove was called.
func (h *Handle) Removed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removed
}

// FeatureLayer serves Features in pages of PageSize.
type FeatureLayer struct {
	Features []mapsession.Graphic
	PageSize int
	Err      error
	Queries  []mapsession.Query
}

func (f *FeatureLayer) QueryFeatures(_ context.Context, q mapsession.Query) (mapsession.FeatureSet, error) {
	f.Queries = append(f.Queries, q)
	if f.Err != nil {
		return mapsession.FeatureSet{}, f.Err
	}
	size := f.PageSize
	if size <= 0 {
		size = len(f.Features)
	}
	if q.Num > 0 && q.Num < size {
		size = q.Num
	}
	start := q.Start
	if start > len(f.Features) {
		start = len(f.Features)
	}
	end := start + size
	if end > len(f.Features) {
		end = len(f.Features)
	}
	return mapsession.FeatureSet{
		Features:              append([]mapsession.Graphic(nil), f.Features[start:end]...),
		ExceededTransferLimit: end < len(f.Features),
	}, nil
}
