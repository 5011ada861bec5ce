// Package task provides task state management for claude-code-server.
//
// A Task is one request to apply an agent-driven change to a repository and
// carry it through to a pushed commit or a reported failure. Tasks live in an
// in-memory Store for the process lifetime; the only durable artifact is the
// per-task log file.
//
// Import rules:
//   - CAN import: internal/clock, internal/constants, internal/errors, std lib
//   - MUST NOT import: internal/workflow, internal/server, internal/git
package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonasWIP/claude-code-server/internal/constants"
)

// Config is the immutable snapshot of a task request.
// It is validated once at the HTTP boundary and never mutated afterwards.
type Config struct {
	// Repo is the repository URL to clone or update.
	Repo string `json:"repo"`

	// Task is the natural-language description passed to the coding agent.
	Task string `json:"task"`

	// Branch is the branch to check out. Empty means the configured default.
	Branch string `json:"branch,omitempty"`

	// CreateBranch requests creating the branch rather than switching to it.
	CreateBranch bool `json:"createBranch,omitempty"`

	// TestCommand, when set, runs after the agent and gates the commit.
	TestCommand string `json:"testCommand,omitempty"`

	// CommitMessage overrides the generated commit message.
	CommitMessage string `json:"commitMessage,omitempty"`

	// CommitOnTestFailure commits and pushes even when TestCommand fails.
	// The test failure is still recorded; this is a policy toggle, not a
	// silent swallow.
	CommitOnTestFailure bool `json:"commitOnTestFailure,omitempty"`
}

// Result is the terminal payload of a task, set exactly once.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// Commit is the short hash of the created commit. It is null when the
	// task completed with no working-tree changes.
	Commit *string `json:"commit"`

	Branch string `json:"branch,omitempty"`
	Repo   string `json:"repo,omitempty"`

	// Stdout and Stderr carry captured output on failure paths.
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// Task is the unit of work tracked by the store.
type Task struct {
	// ID is assigned at submission and never reused.
	ID string `json:"id"`

	// Config is the immutable request snapshot.
	Config Config `json:"config"`

	// Status is the current coarse state.
	Status constants.TaskStatus `json:"status"`

	// Step is a human-readable description of the current/last action.
	Step string `json:"step"`

	// Logs is the append-only sequence of timestamped log lines.
	Logs []string `json:"logs"`

	// ClaudeOutput is the last captured agent output, written once per task.
	ClaudeOutput string `json:"claudeOutput,omitempty"`

	// TestOutput is the last captured test command output, written once per task.
	TestOutput string `json:"testOutput,omitempty"`

	// Result is the terminal payload; nil while the task is in flight.
	Result *Result `json:"result,omitempty"`

	// Error is the terminal error text, set only on failure paths.
	Error string `json:"error,omitempty"`

	// CreatedAt is the immutable creation timestamp.
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the projection served by the task listing endpoint.
// It deliberately omits logs and captured outputs.
type Summary struct {
	ID        string               `json:"id"`
	Status    constants.TaskStatus `json:"status"`
	Step      string               `json:"step"`
	Repo      string               `json:"repo"`
	Task      string               `json:"task"`
	CreatedAt time.Time            `json:"createdAt"`
}

// GenerateTaskID returns a new unique task identifier.
func GenerateTaskID() string {
	return "task-" + uuid.NewString()
}

// clone returns a deep copy so readers never observe in-flight mutation.
func (t *Task) clone() *Task {
	cp := *t
	cp.Logs = make([]string, len(t.Logs))
	copy(cp.Logs, t.Logs)
	if t.Result != nil {
		res := *t.Result
		if t.Result.Commit != nil {
			commit := *t.Result.Commit
			res.Commit = &commit
		}
		cp.Result = &res
	}
	return &cp
}

// summary returns the listing projection of the task.
func (t *Task) summary() Summary {
	return Summary{
		ID:        t.ID,
		Status:    t.Status,
		Step:      t.Step,
		Repo:      t.Config.Repo,
		Task:      t.Config.Task,
		CreatedAt: t.CreatedAt,
	}
}
