// Package workflow implements the task workflow engine for claude-code-server.
//
// The engine drives one task through a deterministic sequence of external
// process invocations: clone/update, branch checkout, coding agent, optional
// tests, commit, push. Every step transition is recorded in the task store
// (and its durable log file) before the corresponding process runs, and every
// terminal outcome is classified as success, test failure, quota exhaustion,
// or hard failure.
//
// Import rules:
//   - CAN import: internal/agent, internal/config, internal/constants,
//     internal/ctxutil, internal/errors, internal/git, internal/prompts,
//     internal/repolock, internal/runner, internal/task, std lib
//   - MUST NOT import: internal/server, internal/cli
package workflow

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/JonasWIP/claude-code-server/internal/agent"
	"github.com/JonasWIP/claude-code-server/internal/config"
	"github.com/JonasWIP/claude-code-server/internal/constants"
	"github.com/JonasWIP/claude-code-server/internal/ctxutil"
	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
	"github.com/JonasWIP/claude-code-server/internal/git"
	"github.com/JonasWIP/claude-code-server/internal/prompts"
	"github.com/JonasWIP/claude-code-server/internal/repolock"
	"github.com/JonasWIP/claude-code-server/internal/runner"
	"github.com/JonasWIP/claude-code-server/internal/task"
)

// Engine executes task workflows against the store.
// One Engine serves all tasks; per-task state lives in the store.
type Engine struct {
	store  *task.Store
	git    *git.Ops
	agent  *agent.Runner
	run    runner.Runner
	locks  *repolock.Registry
	cfg    *config.Config
	logger zerolog.Logger
}

// NewEngine creates a workflow engine with the given collaborators.
func NewEngine(store *task.Store, gitOps *git.Ops, agentRunner *agent.Runner, run runner.Runner, locks *repolock.Registry, cfg *config.Config, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		git:    gitOps,
		agent:  agentRunner,
		run:    run,
		locks:  locks,
		cfg:    cfg,
		logger: logger.With().Str("component", "workflow").Logger(),
	}
}

// Execute drives the task with the given ID from queued to a terminal state.
// The returned error mirrors the terminal classification (nil on success,
// ErrQuotaExhausted / ErrTestsFailed / ErrPushFailed and friends otherwise)
// so the one-shot CLI runner can map it to an exit code; the HTTP surface
// ignores it because the store already holds the outcome.
//
// Tasks sharing a derived repository directory are serialized: the
// per-repository lock is held for the whole workflow so the destructive
// reset in the first step cannot race another task's in-progress edits.
func (e *Engine) Execute(ctx context.Context, taskID string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	t, err := e.store.Get(taskID)
	if err != nil {
		return err
	}
	cfg := t.Config

	branch := cfg.Branch
	if branch == "" {
		branch = constants.DefaultBranch
	}
	repoName := git.RepoDirName(cfg.Repo)

	logger := e.logger.With().Str("task_id", taskID).Str("repo", repoName).Logger()
	logger.Info().Str("branch", branch).Msg("starting workflow")

	release := e.locks.Lock(repoName)
	defer release()

	dir, err := e.stepCloneOrUpdate(ctx, taskID, cfg, branch)
	if err != nil {
		return err
	}

	if err := e.stepCheckout(ctx, taskID, dir, branch, cfg.CreateBranch); err != nil {
		return err
	}

	if err := e.stepRunAgent(ctx, taskID, dir, cfg, repoName, branch); err != nil {
		return err
	}

	changed, err := e.git.HasChanges(ctx, dir)
	if err != nil {
		return e.fail(taskID, "Failed to inspect working tree", err)
	}
	if !changed {
		logger.Info().Msg("no changes made by the agent")
		_ = e.store.AppendLog(taskID, "No changes to commit, skipping tests, commit, and push")
		return e.complete(taskID, task.Result{
			Success: true,
			Message: "No changes were made by the agent",
			Commit:  nil,
			Branch:  branch,
			Repo:    repoName,
		})
	}

	if cfg.TestCommand != "" {
		if err := e.stepRunTests(ctx, taskID, dir, cfg); err != nil {
			return err
		}
	}

	commit, err := e.stepCommit(ctx, taskID, dir, cfg)
	if err != nil {
		return err
	}

	if err := e.stepPush(ctx, taskID, dir, branch, commit); err != nil {
		return err
	}

	logger.Info().Str("commit", commit).Msg("workflow completed")
	return e.complete(taskID, task.Result{
		Success: true,
		Message: "Task completed successfully",
		Commit:  &commit,
		Branch:  branch,
		Repo:    repoName,
	})
}

// stepCloneOrUpdate runs the clone/update step and returns the working copy path.
func (e *Engine) stepCloneOrUpdate(ctx context.Context, taskID string, cfg task.Config, branch string) (string, error) {
	if err := e.store.SetStep(taskID, constants.TaskStatusCloning, "Cloning repository "+cfg.Repo); err != nil {
		return "", err
	}
	dir, err := e.git.CloneOrUpdate(ctx, cfg.Repo, branch, e.cfg.Workspace.Dir)
	if err != nil {
		return "", e.fail(taskID, "Failed to clone or update repository", err)
	}
	return dir, nil
}

// stepCheckout resolves the requested branch.
func (e *Engine) stepCheckout(ctx context.Context, taskID, dir, branch string, create bool) error {
	if err := e.store.SetStep(taskID, constants.TaskStatusCheckout, "Checking out branch "+branch); err != nil {
		return err
	}
	if err := e.git.Checkout(ctx, dir, branch, create); err != nil {
		return e.fail(taskID, "Failed to check out branch "+branch, err)
	}
	return nil
}

// stepRunAgent invokes the coding agent and records its output.
// Quota exhaustion detected in the output is a distinguished outcome.
func (e *Engine) stepRunAgent(ctx context.Context, taskID, dir string, cfg task.Config, repoName, branch string) error {
	if err := e.store.SetStep(taskID, constants.TaskStatusDeveloping, "Running coding agent"); err != nil {
		return err
	}

	prompt := prompts.MustRender(prompts.AgentTask, prompts.AgentTaskData{
		Task:   cfg.Task,
		Repo:   repoName,
		Branch: branch,
	})

	output, err := e.agent.Run(ctx, dir, prompt)
	_ = e.store.SetAgentOutput(taskID, output)

	if err != nil {
		if stderrors.Is(err, ccerrors.ErrQuotaExhausted) {
			return e.fail(taskID, "Agent quota exhausted - add billing credit and retry", err)
		}
		return e.fail(taskID, "Coding agent failed", err)
	}

	_ = e.store.AppendLog(taskID, "Coding agent finished")
	return nil
}

// stepRunTests runs the configured test command. A failing test aborts the
// task unless the config opts into committing on test failure, in which case
// the failure is recorded and the workflow proceeds.
func (e *Engine) stepRunTests(ctx context.Context, taskID, dir string, cfg task.Config) error {
	if err := e.store.SetStep(taskID, constants.TaskStatusTesting, "Running tests: "+cfg.TestCommand); err != nil {
		return err
	}

	res, err := e.run.Run(ctx, cfg.TestCommand, dir, nil)
	if res != nil {
		_ = e.store.SetTestOutput(taskID, combinedOutput(res))
	}

	if err != nil {
		if !cfg.CommitOnTestFailure {
			testErr := fmt.Errorf("%w: %w", ccerrors.ErrTestsFailed, err)
			return e.fail(taskID, "Tests failed", testErr)
		}
		_ = e.store.AppendLog(taskID, "Tests failed; continuing because commitOnTestFailure is set")
		return nil
	}

	_ = e.store.AppendLog(taskID, "Tests passed")
	return nil
}

// stepCommit stages everything and commits, returning the short hash.
func (e *Engine) stepCommit(ctx context.Context, taskID, dir string, cfg task.Config) (string, error) {
	if err := e.store.SetStep(taskID, constants.TaskStatusCommitting, "Committing changes"); err != nil {
		return "", err
	}

	message := cfg.CommitMessage
	if message == "" {
		message = fmt.Sprintf("%s\n\n%s", cfg.Task, constants.CommitAttribution)
	}

	commit, err := e.git.CommitAll(ctx, dir, message)
	if err != nil {
		return "", e.fail(taskID, "Failed to commit changes", err)
	}
	_ = e.store.AppendLog(taskID, "Created commit "+commit)
	return commit, nil
}

// stepPush pushes the branch. The failure message names the local commit so
// an operator can complete the push manually.
func (e *Engine) stepPush(ctx context.Context, taskID, dir, branch, commit string) error {
	if err := e.store.SetStep(taskID, constants.TaskStatusPushing, "Pushing branch "+branch); err != nil {
		return err
	}
	if err := e.git.Push(ctx, dir, branch); err != nil {
		msg := fmt.Sprintf("Push failed; commit %s exists locally but was not pushed", commit)
		return e.fail(taskID, msg, err)
	}
	return nil
}

// complete records the successful terminal payload.
func (e *Engine) complete(taskID string, result task.Result) error {
	if err := e.store.Complete(taskID, result); err != nil {
		e.logger.Error().Err(err).Str("task_id", taskID).Msg("failed to record completion")
		return err
	}
	return nil
}

// fail records the failed terminal payload, attaching captured process output
// when available, and returns the original error for exit-code mapping.
func (e *Engine) fail(taskID, message string, err error) error {
	result := task.Result{Message: message}

	var execErr *runner.ExecError
	if stderrors.As(err, &execErr) && execErr.Result != nil {
		result.Stdout = execErr.Result.Stdout
		result.Stderr = execErr.Result.Stderr
	}

	if storeErr := e.store.Fail(taskID, message+": "+err.Error(), result); storeErr != nil {
		e.logger.Error().Err(storeErr).Str("task_id", taskID).Msg("failed to record failure")
	}
	return err
}

// ExitCode maps a workflow terminal error to the CLI exit code contract:
// 0 success, 2 quota exhaustion, 1 everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return constants.ExitOK
	case stderrors.Is(err, ccerrors.ErrQuotaExhausted):
		return constants.ExitQuotaExhausted
	default:
		return constants.ExitFailure
	}
}

func combinedOutput(res *runner.Result) string {
	if res.Stderr == "" {
		return res.Stdout
	}
	if res.Stdout == "" {
		return res.Stderr
	}
	return res.Stdout + "\n" + res.Stderr
}
