// Package task provides task state management for claude-code-server.
// This file implements the in-memory task record store, the single source of
// truth consulted by status queries while workflows run in the background.
package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JonasWIP/claude-code-server/internal/clock"
	"github.com/JonasWIP/claude-code-server/internal/constants"
	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Store is an explicitly owned, process-scoped task record store.
// All mutations happen through store methods under the write lock; reads
// return deep-copy snapshots so no torn state is ever observable. Terminal
// tasks become read-only and are retained for the process lifetime.
//
// Every status change and log line is also appended to a durable per-task
// log file under logDir, so a crash mid-task leaves a forensic trail even
// though in-memory state is lost.
type Store struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	logDir string
	clk    clock.Clock
	logger zerolog.Logger
}

// NewStore creates a Store writing per-task log files under logDir.
// The directory is created if absent.
func NewStore(logDir string, logger zerolog.Logger) (*Store, error) {
	return NewStoreWithClock(logDir, clock.RealClock{}, logger)
}

// NewStoreWithClock creates a Store with a custom clock, for deterministic
// timestamps in tests.
func NewStoreWithClock(logDir string, clk clock.Clock, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(logDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Store{
		tasks:  make(map[string]*Task),
		logDir: logDir,
		clk:    clk,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Create registers a new task for the given config and returns a snapshot.
// The task starts in status queued with an empty log.
func (s *Store) Create(cfg Config) *Task {
	t := &Task{
		ID:        GenerateTaskID(),
		Config:    cfg,
		Status:    constants.TaskStatusQueued,
		Step:      "Task queued",
		Logs:      []string{},
		CreatedAt: s.clk.Now().UTC(),
	}

	s.mu.Lock()
	s.tasks[t.ID] = t
	s.appendLogLocked(t, "Task queued: "+cfg.Task)
	s.mu.Unlock()

	s.logger.Info().Str("task_id", t.ID).Str("repo", cfg.Repo).Msg("task created")
	return t.clone()
}

// Get returns a snapshot of the task, or ErrTaskNotFound.
func (s *Store) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ccerrors.ErrTaskNotFound, id)
	}
	return t.clone(), nil
}

// List returns summaries of all tasks, newest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]Summary, 0, len(s.tasks))
	for _, t := range s.tasks {
		summaries = append(summaries, t.summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// ActiveCount returns the number of tasks not yet in a terminal state.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, t := range s.tasks {
		if !IsTerminalStatus(t.Status) {
			count++
		}
	}
	return count
}

// SetStep transitions the task to status and updates its step description,
// appending a log line. The transition is validated against the state machine.
func (s *Store) SetStep(id string, status constants.TaskStatus, step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ccerrors.ErrTaskNotFound, id)
	}
	if !IsValidTransition(t.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ccerrors.ErrInvalidTransition, t.Status, status)
	}

	t.Status = status
	t.Step = step
	s.appendLogLocked(t, step)
	return nil
}

// AppendLog appends a timestamped log line without changing status.
func (s *Store) AppendLog(id, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ccerrors.ErrTaskNotFound, id)
	}
	s.appendLogLocked(t, line)
	return nil
}

// SetAgentOutput records the captured coding-agent output.
func (s *Store) SetAgentOutput(id, output string) error {
	return s.mutate(id, func(t *Task) {
		t.ClaudeOutput = output
	})
}

// SetTestOutput records the captured test command output.
func (s *Store) SetTestOutput(id, output string) error {
	return s.mutate(id, func(t *Task) {
		t.TestOutput = output
	})
}

// Complete moves the task to its successful terminal state and freezes it.
func (s *Store) Complete(id string, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ccerrors.ErrTaskNotFound, id)
	}
	if IsTerminalStatus(t.Status) {
		return fmt.Errorf("%w: task already terminal in %s", ccerrors.ErrInvalidTransition, t.Status)
	}

	t.Status = constants.TaskStatusCompleted
	t.Step = "Completed"
	t.Result = &result
	s.appendLogLocked(t, "Task completed: "+result.Message)

	s.logger.Info().Str("task_id", id).Msg("task completed")
	return nil
}

// Fail moves the task to its failed terminal state, recording the error text
// and a failure result. Valid from every non-terminal state.
func (s *Store) Fail(id, message string, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ccerrors.ErrTaskNotFound, id)
	}
	if IsTerminalStatus(t.Status) {
		return fmt.Errorf("%w: task already terminal in %s", ccerrors.ErrInvalidTransition, t.Status)
	}

	result.Success = false
	t.Status = constants.TaskStatusFailed
	t.Error = message
	t.Result = &result
	s.appendLogLocked(t, "Task failed: "+message)

	s.logger.Warn().Str("task_id", id).Str("error", message).Msg("task failed")
	return nil
}

// mutate applies fn to the task under the write lock.
func (s *Store) mutate(id string, fn func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ccerrors.ErrTaskNotFound, id)
	}
	fn(t)
	return nil
}

// appendLogLocked appends a timestamped line to the in-memory log and the
// per-task log file. Callers must hold the write lock.
//
// File append failures are logged and swallowed: the durable log is a
// best-effort forensic trail, not a correctness dependency.
func (s *Store) appendLogLocked(t *Task, line string) {
	stamped := fmt.Sprintf("[%s] %s", s.clk.Now().UTC().Format(time.RFC3339), line)
	t.Logs = append(t.Logs, stamped)

	path := filepath.Join(s.logDir, t.ID+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm) //nolint:gosec // Path is store-controlled
	if err != nil {
		s.logger.Warn().Err(err).Str("task_id", t.ID).Msg("failed to open task log file")
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(stamped + "\n"); err != nil {
		s.logger.Warn().Err(err).Str("task_id", t.ID).Msg("failed to append to task log file")
	}
}
