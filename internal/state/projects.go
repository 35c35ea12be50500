package state

import (
	"context"
	"sync"

	"github.com/p-blackswan/geoai-console/internal/alert"
	"github.com/p-blackswan/geoai-console/internal/errtext"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/store"
)

// ProjectListAPI is the part of the REST client the project list needs.
type ProjectListAPI interface {
	ListProjects(ctx context.Context, p models.Pagination, fs models.FilterSort[models.TypeFilter]) (models.Page[models.Project], error)
	CreateProject(ctx context.Context, params models.CreateProjectParams) (*models.CreateProjectResponse, error)
	DeleteProject(ctx context.Context, id int64) error
	ProjectFolders(ctx context.Context, typ models.ProjectType) ([]string, error)
}

// ProjectList is the projects table.
type ProjectList struct {
	*ListStore[models.Project, models.TypeFilter]

	api     ProjectListAPI
	tracker *Tracker
	alerts  *alert.Center

	mu      sync.Mutex
	folders []string
}

func NewProjectList(api ProjectListAPI, tracker *Tracker, deps Deps) *ProjectList {
	return &ProjectList{
		ListStore: NewListStore("projects", api.ListProjects,
			models.FilterSort[models.TypeFilter]{Filter: models.FilterAll, Sort: DefaultSort},
			describeProject, deps),
		api:     api,
		tracker: tracker,
		alerts:  deps.Alerts,
	}
}

func describeProject(p *models.Project) {
	p.Info = errtext.Describe(p.ErrorCode, p.Description)
}

// Create registers a project and reloads the page. Errors are returned,
// not alerted, so the form can show them next to the offending field.
func (s *ProjectList) Create(ctx context.Context, params models.CreateProjectParams) (*models.CreateProjectResponse, error) {
	resp, err := s.api.CreateProject(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("Refetch after create failed")
	}
	return resp, nil
}

// CreateAndWatch creates a project and watches its preparation task. The
// watch ends on the project's page.
func (s *ProjectList) CreateAndWatch(ctx context.Context, params models.CreateProjectParams) (*models.CreateProjectResponse, *Watch, error) {
	resp, err := s.Create(ctx, params)
	if err != nil {
		return nil, nil, err
	}
	w, err := s.tracker.Track(ctx, store.Job{
		ID:       resp.TaskID,
		Kind:     store.JobProjectCreate,
		EntityID: resp.Project.ID,
		Name:     resp.Project.Name,
	})
	if err != nil {
		return resp, nil, err
	}
	return resp, w, nil
}

// Delete removes a project and reloads the page.
func (s *ProjectList) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		return s.api.DeleteProject(ctx, id)
	}, alert.DeleteProjectSuccess)
}

// LoadFolders lists storage folders usable for a new project of typ.
func (s *ProjectList) LoadFolders(ctx context.Context, typ models.ProjectType) ([]string, error) {
	folders, err := s.api.ProjectFolders(ctx, typ)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.folders = folders
	s.mu.Unlock()
	return folders, nil
}

// Folders returns the folders last loaded.
func (s *ProjectList) Folders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.folders...)
}
