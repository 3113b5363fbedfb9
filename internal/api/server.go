package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/echolens-ai/echolens/internal/api/middleware"
	v2 "github.com/echolens-ai/echolens/internal/api/v2"
	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/observability"
)

// Server is the HTTP server for EchoLens.
// It manages the Echo instance, middleware and all HTTP routes.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	logger   logger.Logger

	pipeline   v2.PipelineService
	metrics    *observability.Metrics
	apiOptions []v2.Option

	apiController *v2.Controller

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithMetrics sets the metrics served at /metrics and recorded per request.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithAPIOptions passes options through to the API controller.
func WithAPIOptions(opts ...v2.Option) ServerOption {
	return func(s *Server) {
		s.apiOptions = append(s.apiOptions, opts...)
	}
}

// New creates a new HTTP server driving the given pipeline.
func New(settings *conf.Settings, p v2.PipelineService, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("pipeline is required")
	}

	s := &Server{
		config:    config,
		settings:  settings,
		logger:    GetLogger(),
		pipeline:  p,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Logger = newEchoLogger(s.logger.Module("echo"), config.Debug)
	s.echo.Debug = config.Debug
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.logger.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("debug", config.Debug),
		logger.Bool("metrics", config.MetricsEnabled))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLogger(s.logger, func(c echo.Context) bool {
		return c.Path() == "/metrics"
	}))

	s.echo.Use(mw.NewCORS(mw.SecurityConfig{AllowedOrigins: s.config.AllowedOrigins}))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders())

	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	if s.metrics != nil && s.config.MetricsEnabled {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	opts := append([]v2.Option{v2.WithMetrics(s.metrics)}, s.apiOptions...)
	s.apiController = v2.New(s.echo, s.settings, s.pipeline, opts...)
}

// healthCheck is a liveness probe that does not touch any dependency.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.settings.Version,
		"uptime":         uptime.Round(time.Second).String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Start begins serving HTTP requests in a background goroutine and returns
// immediately. Errors other than a clean shutdown are logged.
func (s *Server) Start() {
	go func() {
		if err := s.ListenAndServe(); err != nil {
			s.logger.Error("server error", logger.Error(err))
		}
	}()
}

// ListenAndServe serves HTTP requests and blocks until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))
	if err := s.echo.Start(s.config.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Serve serves HTTP requests on an existing listener and blocks until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.echo.Listener = l
	return s.ListenAndServe()
}

// Shutdown gracefully stops the server. Open level streams are closed first
// so they do not hold the shutdown open.
func (s *Server) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	if s.apiController != nil {
		s.apiController.Shutdown()
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// APIController returns the REST controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
