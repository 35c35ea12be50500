// Package state holds the console's application state: one store per
// screen of the GeoAI web console, each backed by the REST API.
package state

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/geoai-console/internal/alert"
	"github.com/p-blackswan/geoai-console/internal/metrics"
)

// Deps are the collaborators every store shares.
type Deps struct {
	Alerts    *alert.Center
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
	PageLimit int // 0 means DefaultPageLimit
}

// DefaultPageLimit is the page size of every list before the user
// changes it.
const DefaultPageLimit = 10

// DefaultSort orders lists newest first.
const DefaultSort = "created_at"

// ProjectPath is the console route of a project.
func ProjectPath(id int64) string {
	return fmt.Sprintf("/projects/%d", id)
}

// ComparisonPath is the console route of a comparison.
func ComparisonPath(id int64) string {
	return fmt.Sprintf("/projects/comparison/%d", id)
}

// ModelPath is the console route of an ML model.
func ModelPath(id int64) string {
	return fmt.Sprintf("/ml/%d", id)
}
