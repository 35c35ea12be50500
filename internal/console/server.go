// Package console serves the local console API: a JSON view of the
// application state that a browser page or script can drive.
package console

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/geoai-console/internal/health"
	"github.com/p-blackswan/geoai-console/internal/metrics"
	"github.com/p-blackswan/geoai-console/internal/requestid"
	"github.com/p-blackswan/geoai-console/internal/state"
)

// ServerConfig holds configuration for the console API server.
type ServerConfig struct {
	ListenAddr  string
	AuthConfig  AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins string
}

// Server is the console API Fiber application.
type Server struct {
	app    *fiber.App
	logger zerolog.Logger
	config ServerConfig
}

// NewServer creates and configures a console API server over app.
// jobs may be nil when no state database is open.
func NewServer(cfg ServerConfig, app *state.App, jobs JobLister, checker *health.Checker, m *metrics.Metrics, logger zerolog.Logger) *Server {
	fa := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:    fa,
		logger: logger.With().Str("component", "console").Logger(),
		config: cfg,
	}
	s.setupMiddleware(cfg)
	s.setupRoutes(NewHandlers(app, jobs, checker, logger), m)
	return s
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

func (s *Server) setupMiddleware(cfg ServerConfig) {
	s.app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	s.app.Use(func(c *fiber.Ctx) error {
		reqID := c.Get(requestid.Header)
		if reqID == "" {
			_, reqID = requestid.New(c.UserContext())
		}
		c.SetUserContext(requestid.WithRequestID(c.UserContext(), reqID))
		c.Set(requestid.Header, reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.app.Use(NewRateLimitMiddleware(cfg.RateLimit))
	}

	s.app.Use(NewAuthMiddleware(cfg.AuthConfig, s.logger))

	s.app.Use(func(c *fiber.Ctx) error {
		if isProbe(c.Path()) {
			return c.Next()
		}
		s.logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Str("request_id", fmt.Sprintf("%v", c.Locals("request_id"))).
			Msg("console api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes(h *Handlers, m *metrics.Metrics) {
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)
	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	v1 := s.app.Group("/api/v1")
	v1.Get("/alert", h.CurrentAlert)
	v1.Get("/projects", h.ListProjects)
	v1.Post("/projects/page", h.PageProjects)
	v1.Get("/jobs", h.ListJobs)
	v1.Get("/project", h.GetProject)
	v1.Post("/project/:id/load", h.LoadProject)
	v1.Post("/project/toggle", h.Toggle)
	v1.Post("/project/toggle-all", h.ToggleAll)
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:8090"
	}
	s.logger.Info().Str("addr", addr).Msg("Console API server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("Console API server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		detail := "An internal error occurred"
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			detail = e.Message
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		return problemResponse(c, code, "internal_error", http.StatusText(code), detail)
	}
}
