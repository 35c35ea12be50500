// Package mapsession holds the console's references into the mapping SDK:
// the active view, the highlight handle and the map service token.
package mapsession

import (
	"context"
	"fmt"
	"strings"
)

// Graphic is a drawable overlay. Attributes carry at least "name".
type Graphic struct {
	ID         string
	Attributes map[string]any
	Geometry   any
}

// Name returns the name attribute, or "".
func (g Graphic) Name() string {
	if s, ok := g.Attributes["name"].(string); ok {
		return s
	}
	return ""
}

// GraphicsLayer is the view's overlay collection.
type GraphicsLayer interface {
	Add(g Graphic)
	Remove(g Graphic)
	AddMany(gs []Graphic)
	RemoveMany(gs []Graphic)
}

// Handle is a releasable SDK resource such as a feature highlight.
type Handle interface {
	Remove()
}

// View is a rendered map.
type View interface {
	Graphics() GraphicsLayer
}

// Query selects features from a layer. Num 0 means the server default.
type Query struct {
	Where          string
	OutFields      []string
	ReturnGeometry bool
	Start          int
	Num            int
}

// FeatureSet is one query response.
type FeatureSet struct {
	Features              []Graphic
	ExceededTransferLimit bool
}

// FeatureLayer is a queryable map service layer.
type FeatureLayer interface {
	QueryFeatures(ctx context.Context, q Query) (FeatureSet, error)
}

// QueryPageSize is the page size used for continuation queries.
const QueryPageSize = 1000

// QueryAll runs q and keeps requesting the next page while the layer
// reports that the transfer limit was exceeded.
func QueryAll(ctx context.Context, layer FeatureLayer, q Query) ([]Graphic, error) {
	set, err := layer.QueryFeatures(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying features: %w", err)
	}
	features := set.Features
	more := set.ExceededTransferLimit

	for more {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := q
		next.Start = len(features)
		next.Num = QueryPageSize
		next.OutFields = []string{"*"}
		next.ReturnGeometry = true

		set, err := layer.QueryFeatures(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("querying features from %d: %w", next.Start, err)
		}
		if len(set.Features) == 0 {
			break
		}
		features = append(features, set.Features...)
		more = set.ExceededTransferLimit
	}
	return features, nil
}

// NameSearch builds a where clause matching feature names containing term.
// Comparison layers carry the old and new name instead.
func NameSearch(term string, comparison bool) string {
	if term == "" {
		return ""
	}
	term = strings.ReplaceAll(term, "'", "''")
	if comparison {
		return fmt.Sprintf("name_old LIKE '%%%s%%' OR name_new LIKE '%%%s%%'", term, term)
	}
	return fmt.Sprintf("name LIKE '%%%s%%'", term)
}
