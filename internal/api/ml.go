package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/p-blackswan/geoai-console/internal/models"
)

// ListModels fetches one page of the default or user-created models.
func (c *Client) ListModels(ctx context.Context, tab models.MLTab, p models.Pagination, fs models.FilterSort[models.TypeFilter]) (models.Page[models.MLModel], error) {
	q := pageQuery(p, fs, string(fs.Filter))
	q.Set("default", strconv.FormatBool(tab == models.MLTabDefault))
	return getPage[models.MLModel](ctx, c, call{
		method: http.MethodGet,
		path:   "/ml/get-ml-models",
		query:  q,
	}, "models")
}

func (c *Client) GetModel(ctx context.Context, id int64) (*models.MLModel, error) {
	var out models.MLModel
	if err := c.do(ctx, call{method: http.MethodGet, path: "/ml/get-ml-model", query: idQuery("id", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateModel registers a model from a storage folder of training data.
func (c *Client) CreateModel(ctx context.Context, params models.CreateMLModelParams) (*models.MLModelTask, error) {
	var out models.MLModelTask
	if err := c.do(ctx, call{method: http.MethodPost, path: "/ml/create-ml-model", body: params}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteModel(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/ml/delete-ml-model", query: idQuery("id", id)}, nil)
}

func (c *Client) StartTraining(ctx context.Context, params models.StartTrainingParams) (*models.MLModelTask, error) {
	var out models.MLModelTask
	if err := c.do(ctx, call{method: http.MethodPost, path: "/ml/train", body: params}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinishTraining saves a trained model so it can be used for detection.
func (c *Client) FinishTraining(ctx context.Context, id int64) (*models.MLModelTask, error) {
	var out models.MLModelTask
	if err := c.do(ctx, call{method: http.MethodPost, path: "/ml/save-ml-model", query: idQuery("id", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ModelsByType lists the ready models for a data type and view. Results
// are cached per type and view.
func (c *Client) ModelsByType(ctx context.Context, dataType string, view models.MLModelView) ([]models.MLModel, error) {
	key := dataType + "|" + string(view)
	return cached(ctx, c.byType, key, func(ctx context.Context) ([]models.MLModel, error) {
		var out []models.MLModel
		err := c.do(ctx, call{
			method: http.MethodGet,
			path:   "/ml/get-ml-models-by-types",
			query:  url.Values{"type": {dataType}, "view": {string(view)}},
		}, &out)
		return out, err
	})
}

// MLFlowURL returns the address of the training dashboard.
func (c *Client) MLFlowURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	// The server mounts these two routes without a slash after /ml.
	if err := c.do(ctx, call{method: http.MethodGet, path: "/mlget-mlflow-address"}, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// ModelTypes lists the architectures a model can be trained as.
func (c *Client) ModelTypes(ctx context.Context) ([]string, error) {
	return cached(ctx, c.modelTypes, "types", func(ctx context.Context) ([]string, error) {
		var out []string
		err := c.do(ctx, call{method: http.MethodGet, path: "/mlget-mlflow-type-model"}, &out)
		return out, err
	})
}

// ModelFolders lists storage folders holding training data.
func (c *Client) ModelFolders(ctx context.Context) ([]string, error) {
	var out models.Folders
	if err := c.do(ctx, call{method: http.MethodGet, path: "/project/folder_nextcloud_ml"}, &out); err != nil {
		return nil, err
	}
	return out.Links, nil
}
