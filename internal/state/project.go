package state

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/p-blackswan/geoai-console/internal/alert"
	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/mapsession"
	"github.com/p-blackswan/geoai-console/internal/metrics"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/poller"
	"github.com/p-blackswan/geoai-console/internal/selection"
	"github.com/p-blackswan/geoai-console/internal/store"
)

// ProjectAPI is the part of the REST client the project page needs.
type ProjectAPI interface {
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	SyncProjectFolder(ctx context.Context, projectID int64) (*models.ProjectFiles, error)
	ProjectFiles(ctx context.Context, projectID int64) (*models.ProjectFiles, error)
	ImageQualities(ctx context.Context) (models.ImageQualities, error)
	ModelsByType(ctx context.Context, dataType string, view models.MLModelView) ([]models.MLModel, error)
	StartDetection(ctx context.Context, typ models.ProjectType, params models.StartDetectionParams) (*models.StartDetectionResponse, error)
}

// ResultGroupTitle names the single point-cloud group of a finished
// panorama project.
const ResultGroupTitle = "Result"

// ProjectView is a snapshot of the project page.
type ProjectView struct {
	Project        models.Project        `json:"project"`
	Loaded         bool                  `json:"loaded"`
	FilesLoading   bool                  `json:"files_loading"`
	PreviewLayerID string                `json:"preview_layer_id,omitempty"`
	Images         []selection.File      `json:"images"`
	Groups         []selection.Group     `json:"groups"`
	SomeSelected   bool                  `json:"some_selected"`
	AllSelected    bool                  `json:"all_selected"`
	Qualities      models.ImageQualities `json:"qualities,omitempty"`
	Quality        string                `json:"quality,omitempty"`
	ModelTypes     []models.MLModel      `json:"model_types"`
	ModelViews     []models.MLModel      `json:"model_views"`
	SelectedTypes  []string              `json:"selected_types"`
	SelectedViews  []string              `json:"selected_views"`
}

// ProjectDetail is the state of one open project: its files, their
// selection and the detection options.
type ProjectDetail struct {
	api       ProjectAPI
	tracker   *Tracker
	Selection *selection.Store
	alerts    *alert.Center
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	mu             sync.Mutex
	project        models.Project
	loaded         bool
	filesLoading   bool
	previewLayerID string
	qualities      models.ImageQualities
	quality        string
	modelTypes     []models.MLModel
	modelViews     []models.MLModel
	selectedTypes  []string
	selectedViews  []string
	issued         uint64
}

// NewProjectDetail creates the project page state. Selected files are
// drawn on the view views returns.
func NewProjectDetail(api ProjectAPI, views selection.ViewSource, tracker *Tracker, deps Deps) *ProjectDetail {
	return &ProjectDetail{
		api:       api,
		tracker:   tracker,
		Selection: selection.New(views),
		alerts:    deps.Alerts,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With().Str("component", "state").Str("store", "project").Logger(),
	}
}

// Load fetches a project and derives its files. Finished projects show
// their result images; others show their input files, which may still be
// loading.
func (s *ProjectDetail) Load(ctx context.Context, id int64) (*models.Project, error) {
	s.mu.Lock()
	s.issued++
	gen := s.issued
	s.mu.Unlock()

	p, err := s.api.GetProject(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.issued {
		s.metrics.RecordStale("project")
		return nil, perrors.ErrStale
	}
	if err != nil {
		return nil, err
	}
	describeProject(p)
	s.applyLocked(p)
	out := s.project
	return &out, nil
}

func (s *ProjectDetail) applyLocked(p *models.Project) {
	s.project = *p
	s.loaded = true

	if p.Status == models.StatusFinished {
		s.filesLoading = false
		if p.TaskResult == nil {
			s.Selection.Reset(nil, nil)
			return
		}
		files := make([]models.ProjectFile, len(p.TaskResult.PathImages))
		for i, path := range p.TaskResult.PathImages {
			files[i] = models.ProjectFile{Name: strconv.Itoa(i), Path: path}
		}
		if p.Type == models.ProjectPanorama {
			s.Selection.Reset(nil, []models.ProjectFileGroup{{
				Title:   ResultGroupTitle,
				Images:  files,
				PCDPath: p.TaskResult.PCDPath,
			}})
		} else {
			s.Selection.Reset(files, nil)
		}
		return
	}

	s.filesLoading = p.InputFiles == nil
	if p.InputFiles == nil {
		s.Selection.Reset(nil, nil)
		return
	}
	s.previewLayerID = p.InputFiles.LayerID
	s.Selection.Reset(p.InputFiles.AerialFiles, p.InputFiles.Panorama)
}

// Drop forgets the open project.
func (s *ProjectDetail) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.project = models.Project{}
	s.loaded = false
	s.filesLoading = false
	s.previewLayerID = ""
	s.modelTypes, s.modelViews = nil, nil
	s.selectedTypes, s.selectedViews = nil, nil
	s.Selection.Reset(nil, nil)
}

func (s *ProjectDetail) projectID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || s.project.ID == 0 {
		return 0, fmt.Errorf("no project loaded: %w", perrors.ErrInvalidInput)
	}
	return s.project.ID, nil
}

// RefreshFiles asks the server to re-read the project's storage folder and
// reloads the file list. A failure raises an alert.
func (s *ProjectDetail) RefreshFiles(ctx context.Context) error {
	id, err := s.projectID()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.filesLoading = true
	s.mu.Unlock()
	s.Selection.Reset(nil, nil)

	files, err := s.syncFiles(ctx, id)

	s.mu.Lock()
	s.filesLoading = false
	if err == nil {
		s.previewLayerID = files.LayerID
	}
	s.mu.Unlock()

	if err != nil {
		s.alerts.Error(err)
		return err
	}
	s.Selection.Reset(files.AerialFiles, files.Panorama)
	return nil
}

func (s *ProjectDetail) syncFiles(ctx context.Context, id int64) (*models.ProjectFiles, error) {
	if _, err := s.api.SyncProjectFolder(ctx, id); err != nil {
		return nil, err
	}
	return s.api.ProjectFiles(ctx, id)
}

// WatchFiles polls the project until its input files are listed.
func (s *ProjectDetail) WatchFiles(ctx context.Context, interval time.Duration) *poller.Poller {
	return poller.Start(ctx, func(ctx context.Context) error {
		s.mu.Lock()
		loading, id := s.filesLoading, s.project.ID
		s.mu.Unlock()
		if !loading {
			return poller.ErrDone
		}
		p, err := s.Load(ctx, id)
		if err != nil {
			return err
		}
		if p.InputFiles != nil || p.Status.Terminal() {
			return poller.ErrDone
		}
		return nil
	}, poller.Options{Name: "files", Interval: interval, Metrics: s.metrics, Logger: s.logger})
}

// BindFeatures attaches the preview layer's features to the files.
func (s *ProjectDetail) BindFeatures(features []mapsession.Graphic) {
	s.Selection.BindImageFeatures(features)
	s.Selection.BindGroupFeatures(features)
}

// LoadOptions fetches the quality options and the models usable on the
// project concurrently. Server-marked default models are preselected.
func (s *ProjectDetail) LoadOptions(ctx context.Context) error {
	s.mu.Lock()
	typ := s.project.Type
	s.mu.Unlock()
	if typ == "" {
		return fmt.Errorf("no project loaded: %w", perrors.ErrInvalidInput)
	}

	var (
		qualities    models.ImageQualities
		types, extra []models.MLModel
		views        []models.MLModel
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		qualities, err = s.api.ImageQualities(gctx)
		return err
	})
	g.Go(func() (err error) {
		types, err = s.api.ModelsByType(gctx, string(typ), models.ViewYolo)
		return err
	})
	if typ == models.ProjectPanorama {
		g.Go(func() (err error) {
			extra, err = s.api.ModelsByType(gctx, models.DataGarbage, models.ViewYoloDet)
			return err
		})
	}
	g.Go(func() (err error) {
		views, err = s.api.ModelsByType(gctx, string(typ), models.ViewDeeplab)
		return err
	})
	if err := g.Wait(); err != nil {
		s.alerts.Error(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.qualities = qualities
	if def, ok := qualities.Default(); ok {
		s.quality = def
	}
	s.modelTypes = append(append([]models.MLModel{}, types...), extra...)
	s.modelViews = views
	if def, ok := defaultModel(types); ok {
		s.selectedTypes = []string{def}
	}
	if def, ok := defaultModel(views); ok {
		s.selectedViews = []string{def}
	}
	return nil
}

func defaultModel(ms []models.MLModel) (string, bool) {
	for _, m := range ms {
		if m.DefaultModel {
			return m.Name, true
		}
	}
	return "", false
}

// SetQuality picks a quality by label or value.
func (s *ProjectDetail) SetQuality(q string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.qualities.Lookup(q)
	if !ok {
		return fmt.Errorf("unknown quality %q: %w", q, perrors.ErrInvalidInput)
	}
	s.quality = v
	return nil
}

// SelectModelTypes replaces the chosen detection models.
func (s *ProjectDetail) SelectModelTypes(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedTypes = append([]string{}, names...)
}

// SelectModelViews replaces the chosen segmentation models.
func (s *ProjectDetail) SelectModelViews(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedViews = append([]string{}, names...)
}

// DetectionParams builds the request for the current selection. Panorama
// projects send every image of the selected groups; aerial and satellite
// projects send the GeoTIFF of each selected image.
func (s *ProjectDetail) DetectionParams() (models.ProjectType, models.StartDetectionParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || s.project.ID == 0 {
		return "", models.StartDetectionParams{}, fmt.Errorf("no project loaded: %w", perrors.ErrInvalidInput)
	}

	params := models.StartDetectionParams{
		ProjectID:      s.project.ID,
		MLModel:        append([]string{}, s.selectedTypes...),
		MLModelDeeplab: append([]string{}, s.selectedViews...),
	}
	if s.project.Type == models.ProjectPanorama {
		params.Paths = s.Selection.SelectedGroupPaths()
	} else {
		params.Paths = s.Selection.SelectedTIFPaths()
		params.Quality = s.quality
		params.SaveImageFlag = true
		params.SaveJSONFlag = true
	}
	return s.project.Type, params, nil
}

// StartDetection runs detection on the selected files and marks the
// project in progress.
func (s *ProjectDetail) StartDetection(ctx context.Context) (*models.StartDetectionResponse, error) {
	typ, params, err := s.DetectionParams()
	if err != nil {
		return nil, err
	}
	if len(params.Paths) == 0 {
		return nil, fmt.Errorf("no files selected: %w", perrors.ErrInvalidInput)
	}

	resp, err := s.api.StartDetection(ctx, typ, params)
	if err != nil {
		s.alerts.Error(err)
		return nil, err
	}

	s.mu.Lock()
	if s.project.ID == params.ProjectID {
		s.project.Status = models.StatusInProgress
		s.project.DetectionID = resp.ID
	}
	s.mu.Unlock()
	return resp, nil
}

// StartDetectionAndWatch starts detection and watches the project until
// it finishes.
func (s *ProjectDetail) StartDetectionAndWatch(ctx context.Context) (*models.StartDetectionResponse, *Watch, error) {
	resp, err := s.StartDetection(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	job := store.Job{ID: resp.ID, Kind: store.JobDetection, EntityID: s.project.ID, Name: s.project.Name}
	s.mu.Unlock()

	w, err := s.tracker.Track(ctx, job)
	if err != nil {
		return resp, nil, err
	}
	return resp, w, nil
}

// Project returns the open project.
func (s *ProjectDetail) Project() (models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project, s.loaded
}

// View returns a snapshot of the page.
func (s *ProjectDetail) View() ProjectView {
	s.mu.Lock()
	v := ProjectView{
		Project:        s.project,
		Loaded:         s.loaded,
		FilesLoading:   s.filesLoading,
		PreviewLayerID: s.previewLayerID,
		Qualities:      s.qualities,
		Quality:        s.quality,
		ModelTypes:     append([]models.MLModel{}, s.modelTypes...),
		ModelViews:     append([]models.MLModel{}, s.modelViews...),
		SelectedTypes:  append([]string{}, s.selectedTypes...),
		SelectedViews:  append([]string{}, s.selectedViews...),
	}
	s.mu.Unlock()

	v.Images = s.Selection.Images()
	v.Groups = s.Selection.Groups()
	v.SomeSelected = s.Selection.SomeSelected()
	v.AllSelected = s.Selection.AllSelected()
	return v
}
