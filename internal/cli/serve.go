package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonasWIP/claude-code-server/internal/agent"
	"github.com/JonasWIP/claude-code-server/internal/auth"
	"github.com/JonasWIP/claude-code-server/internal/config"
	"github.com/JonasWIP/claude-code-server/internal/constants"
	"github.com/JonasWIP/claude-code-server/internal/flock"
	"github.com/JonasWIP/claude-code-server/internal/git"
	"github.com/JonasWIP/claude-code-server/internal/repolock"
	"github.com/JonasWIP/claude-code-server/internal/runner"
	"github.com/JonasWIP/claude-code-server/internal/server"
	"github.com/JonasWIP/claude-code-server/internal/signal"
	"github.com/JonasWIP/claude-code-server/internal/task"
	"github.com/JonasWIP/claude-code-server/internal/workflow"
)

// shutdownTimeout bounds graceful HTTP shutdown. In-flight workflows are not
// awaited; their tasks survive only as log files, which is the documented
// durability contract.
const shutdownTimeout = 10 * time.Second

// dependencies is the wired object graph shared by serve and run.
type dependencies struct {
	cfg    *config.Config
	store  *task.Store
	engine *workflow.Engine

	// release drops the exclusive workspace lock. Call on shutdown.
	release func()
}

// buildDependencies loads configuration, claims the workspace, and wires the
// task store and workflow engine. The workspace lock is exclusive: working
// copies are reset destructively per task, so a second process sharing the
// workspace fails here instead of corrupting checkouts.
func buildDependencies(logger zerolog.Logger) (*dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Workspace.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}

	release, err := flock.Acquire(filepath.Join(cfg.Workspace.Dir, ".lock"))
	if err != nil {
		return nil, err
	}

	store, err := task.NewStore(filepath.Join(cfg.Workspace.Dir, constants.LogDirName), logger)
	if err != nil {
		release()
		return nil, err
	}

	run := runner.NewShell()
	engine := workflow.NewEngine(
		store,
		git.NewOps(run, logger),
		agent.NewRunner(cfg.Agent.Command, cfg.Agent.WorkDir, run, logger),
		run,
		repolock.NewRegistry(),
		cfg,
		logger,
	)

	return &dependencies{cfg: cfg, store: store, engine: engine, release: release}, nil
}

// AddServeCommand adds the serve command to the root command.
func AddServeCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server that accepts task submissions.

The server listens on the configured host and port (CCS_SERVER_HOST,
CCS_SERVER_PORT) and shuts down gracefully on SIGINT or SIGTERM.`,
		RunE: runServe,
	}
	root.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := GetLogger()
	defer CloseLogFile()

	deps, err := buildDependencies(logger)
	if err != nil {
		return err
	}
	defer deps.release()

	gate := auth.NewGate(deps.cfg.Auth, logger)
	srv := server.NewServer(deps.store, deps.engine, gate, runner.NewShell(), deps.cfg, logger)

	handler := signal.NewHandler(cmd.Context())
	defer handler.Stop()

	g, gctx := errgroup.WithContext(handler.Context())

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
