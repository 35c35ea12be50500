package state

import (
	"context"
	"sync"

	"github.com/p-blackswan/geoai-console/internal/alert"
	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/errtext"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/store"
)

// ComparisonAPI is the part of the REST client the comparison pages need.
type ComparisonAPI interface {
	ListComparisons(ctx context.Context, p models.Pagination, fs models.FilterSort[models.TypeFilter]) (models.Page[models.Comparison], error)
	GetComparison(ctx context.Context, id int64) (*models.Comparison, error)
	StartComparison(ctx context.Context, projectIDs []int64) (*models.ComparisonTask, error)
	DeleteComparison(ctx context.Context, id int64) error
	ListFinishedProjects(ctx context.Context, limit int) ([]models.Project, error)
}

// FinishedProjectsLimit bounds the comparison picker.
const FinishedProjectsLimit = 1000

// Comparisons is the comparisons table, the open comparison and the picker
// of projects that can be compared.
type Comparisons struct {
	*ListStore[models.Comparison, models.TypeFilter]

	api     ComparisonAPI
	tracker *Tracker
	alerts  *alert.Center

	mu       sync.Mutex
	current  *models.Comparison
	projects []models.Project
}

func NewComparisons(api ComparisonAPI, tracker *Tracker, deps Deps) *Comparisons {
	return &Comparisons{
		ListStore: NewListStore("comparisons", api.ListComparisons,
			models.FilterSort[models.TypeFilter]{Filter: models.FilterAll, Sort: DefaultSort},
			func(c *models.Comparison) { c.Info = errtext.Describe(c.ErrorCode, c.Description) },
			deps),
		api:     api,
		tracker: tracker,
		alerts:  deps.Alerts,
	}
}

// Load fetches a comparison and makes it current.
func (s *Comparisons) Load(ctx context.Context, id int64) (*models.Comparison, error) {
	c, err := s.api.GetComparison(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Info = errtext.Describe(c.ErrorCode, c.Description)
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
	out := *c
	return &out, nil
}

// Current returns the open comparison.
func (s *Comparisons) Current() (models.Comparison, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.Comparison{}, false
	}
	return *s.current, true
}

// DropCurrent closes the open comparison.
func (s *Comparisons) DropCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// LoadFinishedProjects fetches the projects the picker offers: finished
// ones that had a detection model run on them.
func (s *Comparisons) LoadFinishedProjects(ctx context.Context) ([]models.Project, error) {
	all, err := s.api.ListFinishedProjects(ctx, FinishedProjectsLimit)
	if err != nil {
		s.alerts.Error(err)
		return nil, err
	}
	usable := make([]models.Project, 0, len(all))
	for _, p := range all {
		if p.HasModels() {
			usable = append(usable, p)
		}
	}
	s.mu.Lock()
	s.projects = usable
	s.mu.Unlock()
	return usable, nil
}

// FinishedProjects returns the picker's projects.
func (s *Comparisons) FinishedProjects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Project(nil), s.projects...)
}

// ValidatePair checks that two distinct finished projects of the same type
// were picked.
func ValidatePair(projects []models.Project) error {
	if len(projects) != 2 {
		return perrors.NewValidationError("TWO_PROJECTS_COMPARE")
	}
	a, b := projects[0], projects[1]
	if a.ID == b.ID {
		return perrors.NewValidationError("SAME_PROJECTS")
	}
	if a.Type != b.Type {
		return perrors.NewValidationError("DIFFERENT_PROJECT_TYPES")
	}
	if a.Status != models.StatusFinished || b.Status != models.StatusFinished {
		return perrors.NewValidationError("PROJECTS_NOT_COMPLETED")
	}
	return nil
}

// Start compares two projects, opens the new comparison's page and
// returns its id.
func (s *Comparisons) Start(ctx context.Context, pair []models.Project) (int64, error) {
	task, err := s.start(ctx, pair)
	if err != nil {
		return 0, err
	}
	// The server returns the new comparison's id in project_ids.
	return task.ProjectIDs, nil
}

// StartAndWatch starts a comparison and watches it until it finishes.
func (s *Comparisons) StartAndWatch(ctx context.Context, pair []models.Project) (int64, *Watch, error) {
	task, err := s.start(ctx, pair)
	if err != nil {
		return 0, nil, err
	}
	w, err := s.tracker.Track(ctx, store.Job{
		ID:       task.ID,
		Kind:     store.JobComparison,
		EntityID: task.ProjectIDs,
		Name:     pair[0].Name + " / " + pair[1].Name,
	})
	if err != nil {
		return task.ProjectIDs, nil, err
	}
	return task.ProjectIDs, w, nil
}

func (s *Comparisons) start(ctx context.Context, pair []models.Project) (*models.ComparisonTask, error) {
	if err := ValidatePair(pair); err != nil {
		return nil, err
	}
	task, err := s.api.StartComparison(ctx, []int64{pair[0].ID, pair[1].ID})
	if err != nil {
		s.alerts.Error(err)
		return nil, err
	}
	s.alerts.Success(alert.StartComparisonSuccess)
	s.tracker.Navigate(ComparisonPath(task.ProjectIDs))
	return task, nil
}

// Delete removes a comparison and reloads the page.
func (s *Comparisons) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		return s.api.DeleteComparison(ctx, id)
	}, alert.DeleteComparisonSuccess)
}
