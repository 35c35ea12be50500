package console

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/geoai-console/internal/alert"
	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/health"
	"github.com/p-blackswan/geoai-console/internal/state"
	"github.com/p-blackswan/geoai-console/internal/store"
)

// JobLister lists recorded jobs.
type JobLister interface {
	ListJobs(ctx context.Context, f store.JobFilter) ([]*store.Job, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	app       *state.App
	jobs      JobLister
	checker   *health.Checker
	logger    zerolog.Logger
	startTime time.Time
}

func NewHandlers(app *state.App, jobs JobLister, checker *health.Checker, logger zerolog.Logger) *Handlers {
	return &Handlers{
		app:       app,
		jobs:      jobs,
		checker:   checker,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

// errorResponse maps a state error onto a problem response. The detail is
// the same text the alert slot would show.
func errorResponse(c *fiber.Ctx, err error) error {
	status, errType := fiber.StatusBadGateway, "upstream_error"
	switch {
	case errors.Is(err, perrors.ErrInvalidInput):
		status, errType = fiber.StatusBadRequest, "invalid_input"
	case errors.Is(err, perrors.ErrNotFound):
		status, errType = fiber.StatusNotFound, "not_found"
	case errors.Is(err, perrors.ErrUnauthorized):
		status, errType = fiber.StatusUnauthorized, "session_expired"
	case errors.Is(err, perrors.ErrForbidden):
		status, errType = fiber.StatusForbidden, "forbidden"
	case errors.Is(err, perrors.ErrStale):
		status, errType = fiber.StatusConflict, "superseded"
	case errors.Is(err, perrors.ErrTimeout):
		status, errType = fiber.StatusGatewayTimeout, "upstream_timeout"
	}
	p := ProblemDetail{
		Type:     errType,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   alert.Text(err),
		Instance: c.Path(),
		Code:     perrors.CodeOf(err),
	}
	return c.Status(status).JSON(p)
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "uptime": time.Since(h.startTime).Round(time.Second).String()})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if h.checker == nil {
		return c.JSON(health.Report{Status: "ready", Checks: map[string]health.Status{}})
	}
	report := h.checker.Report(c.UserContext())
	if !report.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// CurrentAlert handles GET /api/v1/alert.
func (h *Handlers) CurrentAlert(c *fiber.Ctx) error {
	a, ok := h.app.Alerts.Current()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(a)
}

func (h *Handlers) projectList() ProjectListResponse {
	return ProjectListResponse{
		Projects:   h.app.Projects.Items(),
		Pagination: h.app.Projects.Pagination(),
		FilterSort: h.app.Projects.FilterSort(),
	}
}

// ListProjects handles GET /api/v1/projects. The first call loads the
// table; later calls return what is held.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	if !h.app.Projects.Loaded() || c.QueryBool("refresh") {
		if err := h.app.Projects.Refresh(c.UserContext()); err != nil {
			return errorResponse(c, err)
		}
	}
	return c.JSON(h.projectList())
}

// PageProjects handles POST /api/v1/projects/page.
func (h *Handlers) PageProjects(c *fiber.Ctx) error {
	var req PageRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	var err error
	switch {
	case req.Pagination != nil && req.FilterSort != nil:
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Set either pagination or filter_sort, not both")
	case req.Pagination != nil:
		if req.Pagination.Page < 1 || req.Pagination.Limit < 1 {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_pagination", "Bad Request",
				"page and limit must be positive")
		}
		err = h.app.Projects.SetPagination(c.UserContext(), *req.Pagination)
	case req.FilterSort != nil:
		err = h.app.Projects.SetFilterSort(c.UserContext(), *req.FilterSort)
	default:
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"pagination or filter_sort is required")
	}
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(h.projectList())
}

// ListJobs handles GET /api/v1/jobs.
func (h *Handlers) ListJobs(c *fiber.Ctx) error {
	if h.jobs == nil {
		return c.JSON(fiber.Map{"jobs": []JobResponse{}})
	}
	f := store.JobFilter{
		Status: store.JobStatus(c.Query("status")),
		Kind:   store.JobKind(c.Query("kind")),
		Active: c.QueryBool("active"),
		Limit:  c.QueryInt("limit", 50),
	}
	jobs, err := h.jobs.ListJobs(c.UserContext(), f)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		return problemResponse(c, fiber.StatusInternalServerError,
			"store_error", "Internal Server Error",
			"Failed to list jobs")
	}
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobResponse(j))
	}
	return c.JSON(fiber.Map{"jobs": out})
}

// GetProject handles GET /api/v1/project.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	if _, ok := h.app.Project.Project(); !ok {
		return problemResponse(c, fiber.StatusNotFound,
			"no_project", "Not Found",
			"No project is open")
	}
	return c.JSON(h.app.Project.View())
}

// LoadProject handles POST /api/v1/project/:id/load.
func (h *Handlers) LoadProject(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_id", "Bad Request",
			"Project id must be a positive integer")
	}
	if _, err := h.app.Project.Load(c.UserContext(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(h.app.Project.View())
}

// Toggle handles POST /api/v1/project/toggle.
func (h *Handlers) Toggle(c *fiber.Ctx) error {
	if _, ok := h.app.Project.Project(); !ok {
		return problemResponse(c, fiber.StatusNotFound,
			"no_project", "Not Found",
			"No project is open")
	}
	var req ToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	var found bool
	switch {
	case req.Path != "" && req.Title != "":
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Set either path or title, not both")
	case req.Path != "":
		found = h.app.Project.Selection.ToggleImage(req.Path)
	case req.Title != "":
		found = h.app.Project.Selection.ToggleGroup(req.Title)
	default:
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"path or title is required")
	}
	if !found {
		return problemResponse(c, fiber.StatusNotFound,
			"unknown_file", "Not Found",
			"No such image or group in the open project")
	}
	return c.JSON(h.app.Project.View())
}

// ToggleAll handles POST /api/v1/project/toggle-all.
func (h *Handlers) ToggleAll(c *fiber.Ctx) error {
	if _, ok := h.app.Project.Project(); !ok {
		return problemResponse(c, fiber.StatusNotFound,
			"no_project", "Not Found",
			"No project is open")
	}
	var req ToggleAllRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	h.app.Project.Selection.ToggleAll(req.Selected)
	return c.JSON(h.app.Project.View())
}
