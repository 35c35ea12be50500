package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
)

// ListProjects fetches one page of the project list.
func (c *Client) ListProjects(ctx context.Context, p models.Pagination, fs models.FilterSort[models.TypeFilter]) (models.Page[models.Project], error) {
	return getPage[models.Project](ctx, c, call{
		method: http.MethodGet,
		path:   "/project/get-projects",
		query:  pageQuery(p, fs, string(fs.Filter)),
	}, "projects")
}

// ListFinishedProjects fetches finished projects with their results, as the
// comparison picker needs them.
func (c *Client) ListFinishedProjects(ctx context.Context, limit int) ([]models.Project, error) {
	q := pageQuery(models.Pagination{Page: 1, Limit: limit}, models.FilterSort[models.TypeFilter]{}, "")
	q.Set("include_result", "true")
	q.Set("is_completed", "true")
	page, err := getPage[models.Project](ctx, c, call{
		method: http.MethodGet,
		path:   "/project/get-projects",
		query:  q,
	}, "projects")
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GetProject fetches a project including its detection result.
func (c *Client) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	q := idQuery("id", id)
	q.Set("include_result", "true")
	var out models.Project
	if err := c.do(ctx, call{method: http.MethodGet, path: "/project/get-project", query: q}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject registers a project and starts its preparation task.
func (c *Client) CreateProject(ctx context.Context, params models.CreateProjectParams) (*models.CreateProjectResponse, error) {
	if len([]rune(params.Name)) < MinProjectNameLength {
		return nil, perrors.NewValidationError("PROJECT_NAME_TOO_SHORT")
	}
	var out models.CreateProjectResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/project/create-project", body: params}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MinProjectNameLength is the shortest name the server accepts.
const MinProjectNameLength = 6

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/project/delete-project", query: idQuery("id", id)}, nil)
}

// SyncProjectFolder asks the server to re-read the project's storage folder.
func (c *Client) SyncProjectFolder(ctx context.Context, projectID int64) (*models.ProjectFiles, error) {
	var out models.ProjectFiles
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/project/check-update-nextcloud-folder",
		query:  idQuery("project_id", projectID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ProjectFiles(ctx context.Context, projectID int64) (*models.ProjectFiles, error) {
	var out models.ProjectFiles
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/project/project-files",
		query:  idQuery("project_id", projectID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ImageQualities returns the detection quality options. The list rarely
// changes and is cached.
func (c *Client) ImageQualities(ctx context.Context) (models.ImageQualities, error) {
	return cached(ctx, c.qualities, "qualities", func(ctx context.Context) (models.ImageQualities, error) {
		var out models.ImageQualities
		err := c.do(ctx, call{method: http.MethodGet, path: "/ml/image-quality"}, &out)
		return out, err
	})
}

// StartDetection runs detection on a project. The endpoint depends on the
// project type; panorama runs take no quality or save flags.
func (c *Client) StartDetection(ctx context.Context, typ models.ProjectType, params models.StartDetectionParams) (*models.StartDetectionResponse, error) {
	var path string
	switch typ {
	case models.ProjectAerial:
		path = "/ml/aerial"
	case models.ProjectSatellite:
		path = "/ml/satellite"
	case models.ProjectPanorama:
		path = "/ml/360"
		params.Quality = ""
		params.SaveImageFlag = false
		params.SaveJSONFlag = false
	default:
		return nil, fmt.Errorf("unknown project type %q: %w", typ, perrors.ErrInvalidInput)
	}

	var out models.StartDetectionResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   path,
		query:  idQuery("project_id", params.ProjectID),
		body:   params,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TaskStatus returns the state of a server task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*models.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("empty task id: %w", perrors.ErrInvalidInput)
	}
	var out models.Task
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/project/tasks/" + url.PathEscape(taskID),
		route:  "/project/tasks/:id",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ProjectFolders lists storage folders a new project of typ can use.
func (c *Client) ProjectFolders(ctx context.Context, typ models.ProjectType) ([]string, error) {
	var out models.Folders
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/project/folder_nextcloud_project",
		query:  url.Values{"type_folder": {string(typ)}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Links, nil
}
