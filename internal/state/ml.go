package state

import (
	"context"
	"sync"

	"github.com/p-blackswan/geoai-console/internal/alert"
	"github.com/p-blackswan/geoai-console/internal/errtext"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/store"
)

// MLAPI is the part of the REST client the ML pages need.
type MLAPI interface {
	ListModels(ctx context.Context, tab models.MLTab, p models.Pagination, fs models.FilterSort[models.TypeFilter]) (models.Page[models.MLModel], error)
	GetModel(ctx context.Context, id int64) (*models.MLModel, error)
	CreateModel(ctx context.Context, params models.CreateMLModelParams) (*models.MLModelTask, error)
	DeleteModel(ctx context.Context, id int64) error
	StartTraining(ctx context.Context, params models.StartTrainingParams) (*models.MLModelTask, error)
	FinishTraining(ctx context.Context, id int64) (*models.MLModelTask, error)
	MLFlowURL(ctx context.Context) (string, error)
	ModelTypes(ctx context.Context) ([]string, error)
	ModelFolders(ctx context.Context) ([]string, error)
}

// MLModels holds the default and user-created model tables and the open
// model.
type MLModels struct {
	Default *ListStore[models.MLModel, models.TypeFilter]
	Created *ListStore[models.MLModel, models.TypeFilter]

	api     MLAPI
	prefs   *Preferences
	tracker *Tracker
	alerts  *alert.Center

	mu      sync.Mutex
	current *models.MLModel
}

func NewMLModels(api MLAPI, prefs *Preferences, tracker *Tracker, deps Deps) *MLModels {
	listOf := func(tab models.MLTab) *ListStore[models.MLModel, models.TypeFilter] {
		fetch := func(ctx context.Context, p models.Pagination, fs models.FilterSort[models.TypeFilter]) (models.Page[models.MLModel], error) {
			return api.ListModels(ctx, tab, p, fs)
		}
		return NewListStore("ml_"+string(tab), fetch,
			models.FilterSort[models.TypeFilter]{Filter: models.FilterAll, Sort: DefaultSort},
			describeModel, deps)
	}
	return &MLModels{
		Default: listOf(models.MLTabDefault),
		Created: listOf(models.MLTabCreated),
		api:     api,
		prefs:   prefs,
		tracker: tracker,
		alerts:  deps.Alerts,
	}
}

func describeModel(m *models.MLModel) {
	m.Info = errtext.Describe(m.ErrorCode, m.Description)
}

// Tab returns the table the user last looked at.
func (s *MLModels) Tab() models.MLTab {
	if s.prefs == nil {
		return models.MLTabDefault
	}
	return s.prefs.MLTab()
}

// Active returns the list of the current tab.
func (s *MLModels) Active() *ListStore[models.MLModel, models.TypeFilter] {
	if s.Tab() == models.MLTabCreated {
		return s.Created
	}
	return s.Default
}

// SetTab switches tables, remembers the choice and loads the new table.
func (s *MLModels) SetTab(ctx context.Context, tab models.MLTab) error {
	if s.prefs != nil {
		if err := s.prefs.SetMLTab(ctx, tab); err != nil {
			return err
		}
	}
	return s.Active().Refresh(ctx)
}

// Refresh reloads the current tab.
func (s *MLModels) Refresh(ctx context.Context) error {
	return s.Active().Refresh(ctx)
}

// Load fetches a model and makes it current. A model in Error status
// raises its error text. When the fetch itself fails a placeholder in
// Error status becomes current so the page can render.
func (s *MLModels) Load(ctx context.Context, id int64) (models.MLModel, error) {
	m, err := s.api.GetModel(ctx, id)
	if err != nil {
		s.alerts.Error(err)
		m = &models.MLModel{Status: models.MLError, Info: errtext.GeneralError}
		s.setCurrent(m)
		return *m, err
	}
	describeModel(m)
	if m.Status == models.MLError {
		s.alerts.Raise(models.SeverityError, m.Info)
	}
	s.setCurrent(m)
	return *m, nil
}

func (s *MLModels) setCurrent(m *models.MLModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = m
}

// Current returns the open model.
func (s *MLModels) Current() (models.MLModel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.MLModel{}, false
	}
	return *s.current, true
}

// setStatus moves the open model to st if it is model id.
func (s *MLModels) setStatus(id int64, st models.MLStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.ID == id {
		s.current.Status = st
	}
}

// Create registers a model from a storage folder and returns its id.
func (s *MLModels) Create(ctx context.Context, params models.CreateMLModelParams) (int64, error) {
	task, err := s.api.CreateModel(ctx, params)
	if err != nil {
		s.alerts.Error(err)
		return 0, err
	}
	s.alerts.Success(alert.CreateModelSuccess)
	if err := s.Created.Refresh(ctx); err != nil {
		s.Created.logger.Debug().Err(err).Msg("Refetch after create failed")
	}
	return task.ProjectID, nil
}

// Delete removes a created model and reloads its table.
func (s *MLModels) Delete(ctx context.Context, id int64) error {
	return s.Created.mutate(ctx, func(ctx context.Context) error {
		return s.api.DeleteModel(ctx, id)
	}, alert.DeleteModelSuccess)
}

// StartTraining launches training. The open model is marked Trained once
// the server accepted the request.
func (s *MLModels) StartTraining(ctx context.Context, params models.StartTrainingParams) (*models.MLModelTask, error) {
	task, err := s.api.StartTraining(ctx, params)
	if err != nil {
		s.alerts.Error(err)
		return nil, err
	}
	s.setStatus(params.ID, models.MLTrained)
	return task, nil
}

// StartTrainingAndWatch launches training and watches the model until it
// settles.
func (s *MLModels) StartTrainingAndWatch(ctx context.Context, params models.StartTrainingParams, name string) (*Watch, error) {
	task, err := s.StartTraining(ctx, params)
	if err != nil {
		return nil, err
	}
	return s.tracker.Track(ctx, store.Job{
		ID:       task.ID,
		Kind:     store.JobTraining,
		EntityID: params.ID,
		Name:     name,
	})
}

// FinishTraining saves the trained model, making it ready to use.
func (s *MLModels) FinishTraining(ctx context.Context, id int64) error {
	if _, err := s.api.FinishTraining(ctx, id); err != nil {
		s.alerts.Error(err)
		return err
	}
	s.setStatus(id, models.MLReady)
	return nil
}

// MLFlowURL returns the address of the training dashboard.
func (s *MLModels) MLFlowURL(ctx context.Context) (string, error) {
	u, err := s.api.MLFlowURL(ctx)
	if err != nil {
		s.alerts.Error(err)
	}
	return u, err
}

// ModelTypes lists the architectures a model can be trained as.
func (s *MLModels) ModelTypes(ctx context.Context) ([]string, error) {
	return s.api.ModelTypes(ctx)
}

// Folders lists storage folders usable for a new model.
func (s *MLModels) Folders(ctx context.Context) ([]string, error) {
	return s.api.ModelFolders(ctx)
}
