package state

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/geoai-console/internal/alert"
	"github.com/p-blackswan/geoai-console/internal/api"
	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/mapsession/maptest"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/retry"
	"github.com/p-blackswan/geoai-console/internal/store"
	"github.com/p-blackswan/geoai-console/pkg/tokenstore"
)

type testApp struct {
	*App
	db        *store.Store
	navigated chan string
}

func setupTestApp(t *testing.T, mux *http.ServeMux) *testApp {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := api.NewClient(api.Options{
		BaseURL: server.URL,
		Retry:   retry.Config{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}, tokenstore.NewMemoryStore(), zerolog.Nop())
	client.SetHTTPClient(server.Client())

	db, err := store.New(filepath.Join(t.TempDir(), "state.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	navigated := make(chan string, 8)
	app, err := New(context.Background(), Options{
		Client:    client,
		Store:     db,
		Intervals: Intervals{Create: 5 * time.Millisecond, Task: 5 * time.Millisecond},
		Navigate:  func(path string) { navigated <- path },
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return &testApp{App: app, db: db, navigated: navigated}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"detail": map[string]string{"code": code, "message": "server says no"}})
}

func waitNavigation(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no navigation")
		return ""
	}
}

func timeoutCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCreateProject_PollsUntilSuccessAndNavigates(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/create-project", func(w http.ResponseWriter, r *http.Request) {
		var body models.CreateProjectParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Site A", body.Name)
		assert.Equal(t, "X", body.Link)
		assert.Equal(t, models.ProjectAerial, body.Type)
		writeJSON(w, map[string]any{
			"project": map[string]any{"id": 42, "name": "Site A", "type": "aerial_images", "status": "Ready to start"},
			"task_id": "T1",
		})
	})
	mux.HandleFunc("/api/project/tasks/T1", func(w http.ResponseWriter, r *http.Request) {
		status := models.TaskPending
		if polls.Add(1) >= 2 {
			status = models.TaskSuccess
		}
		writeJSON(w, models.Task{ID: "T1", Status: status})
	})
	mux.HandleFunc("/api/project/get-projects", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"projects": []any{}, "page": 1, "pages": 1, "total": 1, "limit": 10})
	})
	app := setupTestApp(t, mux)
	ctx := timeoutCtx(t)

	resp, w, err := app.Projects.CreateAndWatch(ctx, models.NewCreateProjectParams("Site A", "X", models.ProjectAerial, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.Project.ID)

	require.NoError(t, w.Wait(ctx))
	assert.Equal(t, "/projects/42", waitNavigation(t, app.navigated))
	assert.Equal(t, "/projects/42", w.Target())
	assert.EqualValues(t, 2, polls.Load())

	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 2, polls.Load(), "polling must stop after success")

	job, err := app.db.GetJob(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, store.JobSucceeded, job.Status)
	assert.Equal(t, "/projects/42", job.Target)
}

func TestCreateProject_FailureRaisesAlert(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/create-project", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"project": map[string]any{"id": 9, "name": "Site B"}, "task_id": "T9"})
	})
	mux.HandleFunc("/api/project/tasks/T9", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.Task{ID: "T9", Status: models.TaskFailure})
	})
	mux.HandleFunc("/api/project/get-projects", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"projects": []any{}, "page": 1, "pages": 1, "total": 1, "limit": 10})
	})
	app := setupTestApp(t, mux)
	ctx := timeoutCtx(t)

	_, w, err := app.Projects.CreateAndWatch(ctx, models.NewCreateProjectParams("Site B", "Y", models.ProjectAerial, time.Now()))
	require.NoError(t, err)

	err = w.Wait(ctx)
	assert.ErrorIs(t, err, perrors.ErrTaskFailed)
	assert.Empty(t, w.Target())

	a, ok := app.Alerts.Current()
	require.True(t, ok)
	assert.Equal(t, models.SeverityError, a.Severity)
}

func TestCreateProject_ErrorIsReturnedNotAlerted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/create-project", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusBadRequest, "PROJECT_EXIST")
	})
	app := setupTestApp(t, mux)

	_, err := app.Projects.Create(timeoutCtx(t), models.NewCreateProjectParams("Site A", "X", models.ProjectAerial, time.Now()))
	require.Error(t, err)
	assert.Equal(t, "PROJECT_EXIST", perrors.CodeOf(err))

	_, ok := app.Alerts.Current()
	assert.False(t, ok)
}

func finishedProject(id int64, typ models.ProjectType) map[string]any {
	return map[string]any{"id": id, "name": "p", "type": typ, "status": models.StatusFinished, "ml_model": []string{"yolo"}}
}

func TestComparison_StartNavigatesToComparison(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/get-projects", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("is_completed"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		noModels := finishedProject(3, models.ProjectAerial)
		delete(noModels, "ml_model")
		writeJSON(w, map[string]any{
			"projects": []any{finishedProject(1, models.ProjectAerial), finishedProject(2, models.ProjectAerial), noModels},
			"page":     1, "pages": 1, "total": 3, "limit": 1000,
		})
	})
	mux.HandleFunc("/api/project/compare-projects", func(w http.ResponseWriter, r *http.Request) {
		var ids []int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
		assert.Equal(t, []int64{1, 2}, ids)
		writeJSON(w, map[string]any{"task_id": "C1", "task_status": "PENDING", "project_ids": 77})
	})
	app := setupTestApp(t, mux)
	ctx := timeoutCtx(t)

	projects, err := app.Comparisons.LoadFinishedProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2, "projects without models are not comparable")

	id, err := app.Comparisons.Start(ctx, projects)
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	assert.Equal(t, "/projects/comparison/77", waitNavigation(t, app.navigated))

	a, ok := app.Alerts.Current()
	require.True(t, ok)
	assert.Equal(t, alert.StartComparisonSuccess, a.Message)
}

func TestValidatePair(t *testing.T) {
	p := func(id int64, typ models.ProjectType, st models.ProjectStatus) models.Project {
		return models.Project{ID: id, Type: typ, Status: st}
	}
	tests := []struct {
		name string
		pair []models.Project
		code string
	}{
		{"one", []models.Project{p(1, models.ProjectAerial, models.StatusFinished)}, "TWO_PROJECTS_COMPARE"},
		{"same", []models.Project{p(1, models.ProjectAerial, models.StatusFinished), p(1, models.ProjectAerial, models.StatusFinished)}, "SAME_PROJECTS"},
		{"types", []models.Project{p(1, models.ProjectAerial, models.StatusFinished), p(2, models.ProjectSatellite, models.StatusFinished)}, "DIFFERENT_PROJECT_TYPES"},
		{"unfinished", []models.Project{p(1, models.ProjectAerial, models.StatusFinished), p(2, models.ProjectAerial, models.StatusInProgress)}, "PROJECTS_NOT_COMPLETED"},
		{"ok", []models.Project{p(1, models.ProjectAerial, models.StatusFinished), p(2, models.ProjectAerial, models.StatusFinished)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePair(tt.pair)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, perrors.ErrInvalidInput)
			assert.Equal(t, tt.code, perrors.CodeOf(err))
		})
	}
}

func TestProjectDetail_ToggleSelectedImageRemovesOneGraphic(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/get-project", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id": 5, "name": "Site A", "type": models.ProjectAerial, "status": models.StatusInitial,
			"input_files": map[string]any{
				"layer_id": "L1",
				"aerial_images": []map[string]string{
					{"name": "10", "path": "/in/10", "path_tif": "/tif/10"},
					{"name": "2", "path": "/in/2", "path_tif": "/tif/2"},
				},
			},
		})
	})
	app := setupTestApp(t, mux)
	view := &maptest.View{}
	app.Session.SetMapView(view)

	_, err := app.Project.Load(timeoutCtx(t), 5)
	require.NoError(t, err)
	v := app.Project.View()
	assert.Equal(t, "L1", v.PreviewLayerID)
	require.Len(t, v.Images, 2)
	assert.Equal(t, "2", v.Images[0].Name, "files are in natural order")

	require.True(t, app.Project.Selection.ToggleImage("/in/2"))
	require.True(t, app.Project.Selection.ToggleImage("/in/10"))
	assert.Equal(t, 2, view.Layer.Len())
	assert.True(t, app.Project.Selection.AllSelected())

	require.True(t, app.Project.Selection.ToggleImage("/in/10"))
	assert.Equal(t, 1, view.Layer.Len())
	assert.Equal(t, "remove", view.Layer.Calls[len(view.Layer.Calls)-1])

	images := app.Project.Selection.Images()
	assert.True(t, images[0].Selected)
	assert.False(t, images[1].Selected)
	assert.True(t, app.Project.Selection.SomeSelected())
	assert.False(t, app.Project.Selection.AllSelected())
}

func TestProjectDetail_FinishedPanoramaHasResultGroup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/get-project", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("include_result"))
		writeJSON(w, map[string]any{
			"id": 6, "type": models.ProjectPanorama, "status": models.StatusFinished,
			"task_result": map[string]any{"path_images": []string{"/r/a.jpg", "/r/b.jpg"}, "layer_id": "R", "pcd_path": "/r/cloud.pcd"},
		})
	})
	app := setupTestApp(t, mux)

	_, err := app.Project.Load(timeoutCtx(t), 6)
	require.NoError(t, err)

	groups := app.Project.Selection.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, ResultGroupTitle, groups[0].Title)
	assert.Equal(t, "/r/cloud.pcd", groups[0].PCDPath)
	assert.Len(t, groups[0].Images, 2)
	assert.Empty(t, app.Project.Selection.Images())
}

func TestProjectDetail_StartDetectionUsesSelectedTIFs(t *testing.T) {
	var started atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/get-project", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id": 8, "type": models.ProjectAerial, "status": models.StatusInitial,
			"input_files": map[string]any{"aerial_images": []map[string]string{
				{"name": "a", "path": "/in/a", "path_tif": "/tif/a"},
				{"name": "b", "path": "/in/b", "path_tif": "/tif/b"},
			}},
		})
	})
	mux.HandleFunc("/api/ml/image-quality", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"High":"high","Low":"low"}`))
	})
	mux.HandleFunc("/api/ml/get-ml-models-by-types", func(w http.ResponseWriter, r *http.Request) {
		view := r.URL.Query().Get("view")
		writeJSON(w, []models.MLModel{{ID: 1, Name: view + "-default", DefaultModel: true}, {ID: 2, Name: view + "-other"}})
	})
	mux.HandleFunc("/api/ml/aerial", func(w http.ResponseWriter, r *http.Request) {
		started.Store(true)
		var body models.StartDetectionParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"/tif/b"}, body.Paths)
		assert.Equal(t, "high", body.Quality)
		assert.True(t, body.SaveImageFlag)
		writeJSON(w, map[string]any{"task_id": "D1", "project_id": 8})
	})
	app := setupTestApp(t, mux)
	app.Session.SetMapView(&maptest.View{})
	ctx := timeoutCtx(t)

	_, err := app.Project.Load(ctx, 8)
	require.NoError(t, err)
	require.NoError(t, app.Project.LoadOptions(ctx))
	assert.Equal(t, "high", app.Project.View().Quality, "first quality is the default")

	_, err = app.Project.StartDetection(ctx)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput, "nothing selected")
	assert.False(t, started.Load())

	app.Project.Selection.ToggleImage("/in/b")
	resp, err := app.Project.StartDetection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "D1", resp.ID)

	p, _ := app.Project.Project()
	assert.Equal(t, models.StatusInProgress, p.Status)
	assert.Equal(t, "D1", p.DetectionID)
}

func TestListStore_DropsSupersededResponse(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context, p models.Pagination, fs models.FilterSort[models.NoFilter]) (models.Page[int], error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return models.Page[int]{Items: []int{1}}, nil
		}
		return models.Page[int]{Items: []int{p.Page}}, nil
	}
	m := newTestDeps()
	s := NewListStore("numbers", fetch, models.FilterSort[models.NoFilter]{}, nil, m)

	first := make(chan error, 1)
	go func() { first <- s.Refresh(context.Background()) }()
	<-entered

	require.NoError(t, s.SetPagination(context.Background(), models.Pagination{Page: 3, Limit: 10}))
	close(release)

	assert.ErrorIs(t, <-first, perrors.ErrStale)
	assert.Equal(t, []int{3}, s.Items())
}

func TestListStore_SetFilterSortRefetchesOnceWithBothAxes(t *testing.T) {
	var seen []models.Pagination
	var filters []models.FilterSort[models.TypeFilter]
	fetch := func(ctx context.Context, p models.Pagination, fs models.FilterSort[models.TypeFilter]) (models.Page[models.Project], error) {
		seen = append(seen, p)
		filters = append(filters, fs)
		return models.Page[models.Project]{Items: []models.Project{{ID: 1}}}, nil
	}
	s := NewListStore("projects", fetch, models.FilterSort[models.TypeFilter]{Filter: models.FilterAll}, nil, newTestDeps())
	ctx := context.Background()

	require.NoError(t, s.SetPagination(ctx, models.Pagination{Page: 2, Limit: 5}))
	require.NoError(t, s.SetFilterSort(ctx, models.FilterSort[models.TypeFilter]{Filter: models.TypeFilter(models.ProjectSatellite), Sort: "name"}))

	require.Len(t, seen, 2)
	assert.Equal(t, 2, seen[1].Page)
	assert.Equal(t, 5, seen[1].Limit)
	assert.Equal(t, models.TypeFilter(models.ProjectSatellite), filters[1].Filter)
	assert.Equal(t, "name", filters[1].Sort)
	assert.True(t, s.Loaded())
}

func TestListStore_FetchFailureKeepsStateAndAlerts(t *testing.T) {
	fail := false
	fetch := func(ctx context.Context, p models.Pagination, fs models.FilterSort[models.NoFilter]) (models.Page[string], error) {
		if fail {
			return models.Page[string]{}, perrors.NewAPIError("geoai", 500, "", "database is down")
		}
		return models.Page[string]{Items: []string{"a"}, Pagination: models.Pagination{Page: 1, Pages: 4, Total: 31, Limit: 10}}, nil
	}
	deps := newTestDeps()
	s := NewListStore("letters", fetch, models.FilterSort[models.NoFilter]{}, nil, deps)
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, 31, s.Pagination().Total)

	fail = true
	err := s.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, s.Items())
	assert.Equal(t, 31, s.Pagination().Total)

	a, ok := deps.Alerts.Current()
	require.True(t, ok)
	assert.Equal(t, "database is down", a.Message)
}

func newTestDeps() Deps {
	return Deps{Alerts: alert.NewCenter(time.Minute, nil, zerolog.Nop()), Logger: zerolog.Nop()}
}

func TestProjectList_DeleteRefetchesAndAlerts(t *testing.T) {
	var deleted, listed atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/delete-project", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4", r.URL.Query().Get("id"))
		deleted.Add(1)
	})
	mux.HandleFunc("/api/project/get-projects", func(w http.ResponseWriter, r *http.Request) {
		listed.Add(1)
		writeJSON(w, map[string]any{"projects": []any{}, "page": 1, "pages": 1, "total": 0, "limit": 10})
	})
	app := setupTestApp(t, mux)

	require.NoError(t, app.Projects.Delete(timeoutCtx(t), 4))
	assert.EqualValues(t, 1, deleted.Load())
	assert.EqualValues(t, 1, listed.Load())

	a, ok := app.Alerts.Current()
	require.True(t, ok)
	assert.Equal(t, alert.DeleteProjectSuccess, a.Message)
}

func TestProjectList_CreateRefetchesPage(t *testing.T) {
	var listed atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/create-project", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"project": map[string]any{"id": 5, "name": "Site C"}, "task_id": "T5"})
	})
	mux.HandleFunc("/api/project/get-projects", func(w http.ResponseWriter, r *http.Request) {
		n := listed.Add(1)
		items := make([]any, 0, n)
		for i := int32(0); i < n; i++ {
			items = append(items, map[string]any{"id": 5 + i, "name": "Site"})
		}
		writeJSON(w, map[string]any{"projects": items, "page": 1, "pages": 1, "total": n, "limit": 10})
	})
	app := setupTestApp(t, mux)
	ctx := timeoutCtx(t)

	require.NoError(t, app.Projects.Refresh(ctx))
	assert.Equal(t, 1, app.Projects.Pagination().Total)

	resp, err := app.Projects.Create(ctx, models.NewCreateProjectParams("Site C", "Z", models.ProjectAerial, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.Project.ID)
	assert.EqualValues(t, 2, listed.Load())
	assert.Equal(t, 2, app.Projects.Pagination().Total)
	assert.Len(t, app.Projects.Items(), 2)
}

func TestProjectList_RefetchFailureAfterDeleteStaysVisible(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/delete-project", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/project/get-projects", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusBadRequest, "")
	})
	app := setupTestApp(t, mux)

	require.NoError(t, app.Projects.Delete(timeoutCtx(t), 4))

	a, ok := app.Alerts.Current()
	require.True(t, ok)
	assert.Equal(t, models.SeverityError, a.Severity)
	assert.Equal(t, "server says no", a.Message)
}

func TestHistory_SetTypeSwitchesLog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/history/get-all-action-history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"histories": []map[string]any{{"id": 1}}, "page": 2, "pages": 2, "total": 11, "limit": 10})
	})
	mux.HandleFunc("/api/history/get-all-error-history", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		writeJSON(w, map[string]any{"histories": []map[string]any{{"id": 2, "code": "PROJECT_EXIST"}}, "page": 1, "pages": 1, "total": 1, "limit": 10})
	})
	app := setupTestApp(t, mux)
	ctx := timeoutCtx(t)

	require.NoError(t, app.History.SetPagination(ctx, models.Pagination{Page: 2, Limit: 10}))
	assert.Equal(t, int64(1), app.History.Items()[0].ID)

	require.NoError(t, app.History.SetType(ctx, models.HistoryError))
	assert.Equal(t, models.HistoryError, app.History.Type())
	items := app.History.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "A project with this name already exists", items[0].Info)

	assert.ErrorIs(t, app.History.SetType(ctx, "bogus"), perrors.ErrInvalidInput)
}

func TestMLModels_LoadFailureGivesPlaceholder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ml/get-ml-model", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "1" {
			writeJSON(w, models.MLModel{ID: 1, Status: models.MLError, ErrorCode: "TRANING_ML_MODEL_ERROR"})
			return
		}
		writeAPIError(w, http.StatusNotFound, "ML_MODEL_NOT_EXIST")
	})
	app := setupTestApp(t, mux)
	ctx := timeoutCtx(t)

	m, err := app.ML.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MLError, m.Status)
	a, ok := app.Alerts.Current()
	require.True(t, ok)
	assert.Equal(t, "Model training failed", a.Message)

	m, err = app.ML.Load(ctx, 2)
	require.Error(t, err)
	assert.Equal(t, int64(0), m.ID)
	assert.Equal(t, models.MLError, m.Status)
	a, _ = app.Alerts.Current()
	assert.Equal(t, "Model does not exist", a.Message)
}

func TestMLModels_SetTabPersists(t *testing.T) {
	var tab atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ml/get-ml-models", func(w http.ResponseWriter, r *http.Request) {
		tab.Store(r.URL.Query().Get("default"))
		writeJSON(w, map[string]any{"models": []any{}, "page": 1, "pages": 1, "total": 0, "limit": 10})
	})
	app := setupTestApp(t, mux)
	ctx := timeoutCtx(t)

	assert.Equal(t, models.MLTabDefault, app.ML.Tab())
	require.NoError(t, app.ML.SetTab(ctx, models.MLTabCreated))
	assert.Equal(t, "false", tab.Load())
	assert.Same(t, app.ML.Created, app.ML.Active())

	v, ok, err := app.db.GetPreference(ctx, PrefMLTab)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "created", v)
}

func TestTracker_ResumeFinishesRecordedJobs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/project/get-compare-projects", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.Comparison{ID: 77, Status: models.StatusFinished})
	})
	app := setupTestApp(t, mux)
	ctx := timeoutCtx(t)

	require.NoError(t, app.db.SaveJob(ctx, &store.Job{ID: "C1", Kind: store.JobComparison, EntityID: 77}))

	watches, err := app.Tracker.Resume(ctx)
	require.NoError(t, err)
	require.Len(t, watches, 1)
	require.NoError(t, watches[0].Wait(ctx))
	assert.Equal(t, "/projects/comparison/77", waitNavigation(t, app.navigated))

	active, err := app.db.ListJobs(ctx, store.JobFilter{Active: true})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestTracker_RejectsJobWithoutTask(t *testing.T) {
	tr := NewTracker(nil, nil, Intervals{}, nil, newTestDeps())
	_, err := tr.Track(context.Background(), store.Job{Kind: store.JobDetection})
	assert.True(t, errors.Is(err, perrors.ErrInvalidInput))
}
