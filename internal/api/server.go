package api

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/listarr/internal/api/handlers"
	"github.com/amaumene/listarr/internal/api/middleware"
	"github.com/amaumene/listarr/internal/config"
	"github.com/amaumene/listarr/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Handlers groups the route handlers mounted by the server
type Handlers struct {
	Health   *handlers.HealthHandler
	Status   *handlers.StatusHandler
	Lists    *handlers.ListHandler
	Settings *handlers.SettingsHandler
}

// Server represents the HTTP server
type Server struct {
	app    *fiber.App
	addr   string
	logger zerolog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, h Handlers, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "http").Logger()

	app := fiber.New(fiber.Config{
		AppName:               "listarr",
		DisableStartupMessage: true,
		ErrorHandler:          handlers.ErrorHandler,
		ReadTimeout:           15 * time.Second,
		IdleTimeout:           60 * time.Second,
	})
	app.Use(recover.New())
	app.Use(middleware.Logging(logger))

	s := &Server{
		app:    app,
		addr:   ":" + cfg.ServerPort,
		logger: logger,
	}
	s.setupRoutes(h, gatherer)
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(h Handlers, gatherer prometheus.Gatherer) {
	s.app.Get("/health", h.Health.Get)
	s.app.Get("/status", h.Status.Get)
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(gatherer)))

	api := s.app.Group("/api")

	users := api.Group("/users/:userID")
	users.Post("/lists/process", h.Lists.ProcessAll)
	users.Post("/lists/:listID/process", h.Lists.Process)
	users.Get("/lists/:listID/executions", h.Lists.Executions)
	users.Put("/lists/:listID/max-items", h.Lists.ChangeMaxItems)
	users.Put("/lists/:listID/schedule", h.Lists.SetSchedule)
	users.Put("/lists/:listID/enabled", h.Lists.SetEnabled)
	users.Get("/dashboard/pending-requests", h.Lists.PendingRequests)

	api.Post("/schedule/reload", h.Status.Reload)
	api.Get("/schedule/jobs", h.Status.Jobs)
	api.Delete("/schedule/jobs/:jobID", h.Status.Unschedule)
	api.Put("/settings/automatic-processing", h.Settings.UpdateAutomaticProcessing)
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info().Str("addr", s.addr).Msg("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}
