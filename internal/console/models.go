package console

import (
	"github.com/gofiber/fiber/v2"

	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/store"
)

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
}

func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// ProjectListResponse is the project table as the console shows it.
type ProjectListResponse struct {
	Projects   []models.Project                     `json:"projects"`
	Pagination models.Pagination                    `json:"pagination"`
	FilterSort models.FilterSort[models.TypeFilter] `json:"filter_sort"`
}

// PageRequest changes the project table. Exactly one of the two axes
// must be set.
type PageRequest struct {
	Pagination *models.Pagination                    `json:"pagination,omitempty"`
	FilterSort *models.FilterSort[models.TypeFilter] `json:"filter_sort,omitempty"`
}

// ToggleRequest flips one image by path or one group by title.
type ToggleRequest struct {
	Path  string `json:"path,omitempty"`
	Title string `json:"title,omitempty"`
}

// ToggleAllRequest sets every image and group.
type ToggleAllRequest struct {
	Selected bool `json:"selected"`
}

// JobResponse is one tracked job.
type JobResponse struct {
	ID          string          `json:"id"`
	Kind        store.JobKind   `json:"kind"`
	EntityID    int64           `json:"entity_id"`
	Name        string          `json:"name,omitempty"`
	Status      store.JobStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	Target      string          `json:"target,omitempty"`
	Attempts    int             `json:"attempts"`
	CreatedAt   int64           `json:"created_at"`
	CompletedAt int64           `json:"completed_at,omitempty"`
}

func jobResponse(j *store.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		Kind:        j.Kind,
		EntityID:    j.EntityID,
		Name:        j.Name,
		Status:      j.Status,
		Error:       j.Error,
		Target:      j.Target,
		Attempts:    j.Attempts,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	}
}
