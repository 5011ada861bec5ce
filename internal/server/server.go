// Package server provides the HTTP control surface for claude-code-server.
//
// The control surface accepts task submissions, starts workflows on detached
// goroutines (a submission never waits on its workflow), and serves status
// reads straight from the task store. All mutating and listing routes pass
// through the auth gate first; health and the login flow do not.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/JonasWIP/claude-code-server/internal/auth"
	"github.com/JonasWIP/claude-code-server/internal/config"
	"github.com/JonasWIP/claude-code-server/internal/runner"
	"github.com/JonasWIP/claude-code-server/internal/task"
)

// jsonIndent is the indentation for pretty-printed responses.
const jsonIndent = "  "

// WorkflowStarter executes one task workflow to its terminal state.
// The production implementation is *workflow.Engine.
type WorkflowStarter interface {
	Execute(ctx context.Context, taskID string) error
}

// Server provides the HTTP endpoints.
type Server struct {
	echo   *echo.Echo
	store  *task.Store
	engine WorkflowStarter
	gate   *auth.Gate
	run    runner.Runner
	cfg    *config.Config
	logger zerolog.Logger
}

// NewServer creates an HTTP server wired to the given collaborators.
func NewServer(store *task.Store, engine WorkflowStarter, gate *auth.Gate, run runner.Runner, cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	logger = logger.With().Str("component", "http").Logger()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info().
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("http request")

			return err
		}
	})

	s := &Server{
		echo:   e,
		store:  store,
		engine: engine,
		gate:   gate,
		run:    run,
		cfg:    cfg,
		logger: logger,
	}

	s.registerRoutes()
	return s
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Unauthenticated: health and the login flow (login by definition
	// precedes authorization).
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/auth/login", s.handleLogin)
	s.echo.GET("/auth/check", s.handleAuthCheck)
	s.echo.POST("/auth/logout", s.handleLogout)

	// Admin-gated task and repository routes.
	s.echo.GET("/repos", s.handleListRepos, s.requireAdmin)
	s.echo.POST("/task", s.handleCreateTask, s.requireAdmin)
	s.echo.GET("/task/:id", s.handleGetTask, s.requireAdmin)
	s.echo.GET("/tasks", s.handleListTasks, s.requireAdmin)
}

// requireAdmin rejects requests whose bearer token does not resolve to an
// administrator. "No/invalid credential" (401) is kept distinct from "valid
// credential, insufficient privilege" (403).
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		decision := s.gate.Verify(c.Request().Context(), bearerToken(c))
		if !decision.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid token")
		}
		if !decision.IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin privilege required")
		}
		return next(c)
	}
}

// bearerToken extracts the bearer token from the Authorization header.
// Returns "" when absent or malformed.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info().
		Str("addr", addr).
		Bool("auth_enabled", s.gate.Enabled()).
		Msg("starting http server")
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down http server")
	return s.echo.Shutdown(ctx)
}
