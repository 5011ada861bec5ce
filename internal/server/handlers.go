package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/JonasWIP/claude-code-server/internal/constants"
	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
	"github.com/JonasWIP/claude-code-server/internal/task"
)

// healthResponse is the payload for GET /health.
type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Timestamp   string `json:"timestamp"`
	ActiveTasks int    `json:"activeTasks"`
	AuthEnabled bool   `json:"authEnabled"`
}

// loginRequest is the payload for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// createTaskRequest is the payload for POST /task.
type createTaskRequest struct {
	Repo                string `json:"repo"`
	Task                string `json:"task"`
	Branch              string `json:"branch"`
	CreateBranch        bool   `json:"createBranch"`
	TestCommand         string `json:"testCommand"`
	CommitMessage       string `json:"commitMessage"`
	CommitOnTestFailure bool   `json:"commitOnTestFailure"`
}

// createTaskResponse is the 202 payload for a submitted task.
type createTaskResponse struct {
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	StatusURL string `json:"statusUrl"`
}

// handleHealth reports liveness. Never gated.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, healthResponse{
		Status:      "ok",
		Version:     constants.Version,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		ActiveTasks: s.store.ActiveCount(),
		AuthEnabled: s.gate.Enabled(),
	}, jsonIndent)
}

// handleLogin exchanges email/password for a session. Only admins receive a
// session; a valid non-admin login is rejected as forbidden.
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	session, err := s.gate.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ccerrors.ErrNotAdmin):
			return echo.NewHTTPError(http.StatusForbidden, "admin privilege required")
		case errors.Is(err, ccerrors.ErrInvalidToken):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		default:
			s.logger.Error().Err(err).Msg("login failed")
			return echo.NewHTTPError(http.StatusBadGateway, "identity provider unavailable")
		}
	}

	return c.JSONPretty(http.StatusOK, session, jsonIndent)
}

// handleAuthCheck reports whether the presented token is a valid admin token.
// It answers 200 either way; the verdict is in the body.
func (s *Server) handleAuthCheck(c echo.Context) error {
	decision := s.gate.Verify(c.Request().Context(), bearerToken(c))

	resp := map[string]any{
		"authenticated": decision.Valid,
		"isAdmin":       decision.IsAdmin,
	}
	if decision.User != nil {
		resp["user"] = decision.User
	}
	return c.JSONPretty(http.StatusOK, resp, jsonIndent)
}

// handleLogout revokes the presented token. Always answers 200.
func (s *Server) handleLogout(c echo.Context) error {
	s.gate.Logout(c.Request().Context(), bearerToken(c))
	return c.JSONPretty(http.StatusOK, map[string]bool{"success": true}, jsonIndent)
}

// handleListRepos runs the configured listing command and relays its JSON
// output under a "repos" key. The command's stdout is the contract; anything
// non-JSON is a 502.
func (s *Server) handleListRepos(c echo.Context) error {
	res, err := s.run.Run(c.Request().Context(), s.cfg.Repos.ListCommand, "", nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("repository listing command failed")
		return echo.NewHTTPError(http.StatusBadGateway, "repository listing failed")
	}

	var repos json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(res.Stdout)), &repos); err != nil {
		s.logger.Error().Err(err).Msg("repository listing produced invalid json")
		return echo.NewHTTPError(http.StatusBadGateway, "repository listing produced invalid output")
	}

	return c.JSONPretty(http.StatusOK, map[string]json.RawMessage{"repos": repos}, jsonIndent)
}

// handleCreateTask validates a submission, registers the task, and starts
// its workflow on a detached goroutine. The response never waits on the
// workflow.
func (s *Server) handleCreateTask(c echo.Context) error {
	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Repo == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "repo is required")
	}
	if req.Task == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task is required")
	}

	t := s.store.Create(task.Config{
		Repo:                req.Repo,
		Task:                req.Task,
		Branch:              req.Branch,
		CreateBranch:        req.CreateBranch,
		TestCommand:         req.TestCommand,
		CommitMessage:       req.CommitMessage,
		CommitOnTestFailure: req.CommitOnTestFailure,
	})

	s.logger.Info().Str("task_id", t.ID).Str("repo", req.Repo).Msg("task accepted")

	// The workflow outlives the request; it must not inherit the request
	// context or a client disconnect would cancel it.
	go func(id string) {
		if err := s.engine.Execute(context.Background(), id); err != nil {
			s.logger.Error().Err(err).Str("task_id", id).Msg("workflow finished with error")
		}
	}(t.ID)

	return c.JSONPretty(http.StatusAccepted, createTaskResponse{
		TaskID:    t.ID,
		Status:    string(t.Status),
		Message:   "task accepted for processing",
		StatusURL: "/task/" + t.ID,
	}, jsonIndent)
}

// handleGetTask returns the full task record, logs included.
func (s *Server) handleGetTask(c echo.Context) error {
	t, err := s.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, ccerrors.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "task lookup failed")
	}
	return c.JSONPretty(http.StatusOK, t, jsonIndent)
}

// handleListTasks returns summaries of all tasks, newest first.
func (s *Server) handleListTasks(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, s.store.List(), jsonIndent)
}
