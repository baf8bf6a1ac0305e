// ABOUTME: Web UI server with embedded templates
// ABOUTME: Provides a read-only integrations dashboard and JSON endpoints at localhost:8080
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/harperreed/textback/api"
	"github.com/harperreed/textback/models"
)

//go:embed templates/*
var templatesFS embed.FS

// IntegrationSource is the live integrations list.
type IntegrationSource interface {
	Refresh(ctx context.Context) error
	Integrations() []models.CalendarIntegration
}

// Cache is the local record of integrations and connection attempts.
type Cache interface {
	CachedIntegrations(ctx context.Context) ([]models.CalendarIntegration, time.Time, error)
	ListAttempts(ctx context.Context, limit int) ([]models.SetupAttempt, error)
}

type Server struct {
	echo     *echo.Echo
	registry IntegrationSource
	cache    Cache
	logger   *log.Logger
}

type templateRenderer struct {
	templates *template.Template
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// IntegrationsResponse is the body of GET /api/integrations.
type IntegrationsResponse struct {
	Integrations []models.CalendarIntegration `json:"integrations"`
	Stale        bool                         `json:"stale"`
	Error        string                       `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(registry IntegrationSource, cache Cache, logger *log.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04")
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &templateRenderer{templates: tmpl}

	s := &Server{
		echo:     e,
		registry: registry,
		cache:    cache,
		logger:   logger.WithPrefix("web"),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.requestLogger)

	e.GET("/", s.handleDashboard)
	e.GET("/api/integrations", s.handleIntegrations)
	e.GET("/api/attempts", s.handleAttempts)

	return s, nil
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("starting web server", "url", fmt.Sprintf("http://localhost%s", addr))
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug("request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration", time.Since(start),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID))
		return nil
	}
}

func (s *Server) handleDashboard(c echo.Context) error {
	ctx := c.Request().Context()

	integrations, cachedAt, err := s.cache.CachedIntegrations(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	attempts, err := s.cache.ListAttempts(ctx, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	data := map[string]interface{}{
		"Integrations": integrations,
		"CachedAt":     cachedAt,
		"Attempts":     attempts,
	}
	return c.Render(http.StatusOK, "dashboard.html", data)
}

// handleIntegrations refreshes from the backend, falling back to the last
// known list when the backend is unreachable.
func (s *Server) handleIntegrations(c echo.Context) error {
	if err := s.registry.Refresh(c.Request().Context()); err != nil {
		s.logger.Warn("refresh failed", "err", err)
		integrations := s.registry.Integrations()
		if len(integrations) == 0 {
			return c.JSON(http.StatusBadGateway, errorResponse{Error: api.Message(err)})
		}
		return c.JSON(http.StatusOK, IntegrationsResponse{
			Integrations: integrations,
			Stale:        true,
			Error:        api.Message(err),
		})
	}

	return c.JSON(http.StatusOK, IntegrationsResponse{
		Integrations: nonNil(s.registry.Integrations()),
	})
}

func (s *Server) handleAttempts(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		}
		limit = n
	}

	attempts, err := s.cache.ListAttempts(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	if attempts == nil {
		attempts = []models.SetupAttempt{}
	}
	return c.JSON(http.StatusOK, attempts)
}

func nonNil(list []models.CalendarIntegration) []models.CalendarIntegration {
	if list == nil {
		return []models.CalendarIntegration{}
	}
	return list
}
