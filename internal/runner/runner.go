// Package runner provides external command execution for claude-code-server.
//
// Every externally observable action the server takes (git plumbing, the
// coding agent, the repository listing) goes through this package. Commands
// run in a shell with an environment overlay and have both output streams
// captured in full. There are no retries and no default timeout; callers that
// need bounded execution must cancel the context themselves.
package runner

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
)

// Result holds the captured outcome of a command invocation.
type Result struct {
	// Stdout is the full captured standard output.
	Stdout string

	// Stderr is the full captured standard error.
	Stderr string

	// ExitCode is the process exit status. -1 means the process never started.
	ExitCode int
}

// ExecError is returned when a command exits non-zero or fails to start.
// It carries the full Result so callers can surface the captured output.
type ExecError struct {
	Command string
	Result  *Result
	err     error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.Result.ExitCode == -1 {
		return fmt.Sprintf("command %q could not be started: %v", e.Command, e.err)
	}
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.Result.ExitCode)
}

// Unwrap returns the sentinel category for errors.Is checks.
func (e *ExecError) Unwrap() error {
	return e.err
}

// Runner executes external commands. The production implementation is Shell;
// tests provide fakes that script outputs per command.
type Runner interface {
	// Run executes command in dir with env merged over the ambient
	// environment (overlay wins on key collision). It returns a Result on
	// success (exit code 0). A non-zero exit or spawn failure returns a
	// *ExecError; the Result is still populated with whatever was captured.
	Run(ctx context.Context, command, dir string, env map[string]string) (*Result, error)

	// RunStdin is Run with the given input piped to the command's stdin.
	RunStdin(ctx context.Context, command, dir, stdin string, env map[string]string) (*Result, error)
}

// Shell runs commands through "sh -c".
type Shell struct{}

// NewShell creates the production Runner.
func NewShell() *Shell {
	return &Shell{}
}

// Run executes command in dir with the environment overlay applied.
func (s *Shell) Run(ctx context.Context, command, dir string, env map[string]string) (*Result, error) {
	return s.RunStdin(ctx, command, dir, "", env)
}

// RunStdin executes command with stdin piped in.
func (s *Shell) RunStdin(ctx context.Context, command, dir, stdin string, env map[string]string) (*Result, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command) //#nosec G204 -- commands are assembled from validated config and task fields
	cmd.Dir = dir
	cmd.Env = mergeEnv(os.Environ(), env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	err := cmd.Run()

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}

	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExecError{Command: command, Result: res, err: ccerrors.ErrCommandFailed}
	}

	// The process never started (shell missing, permission denied, bad dir).
	res.ExitCode = -1
	return res, &ExecError{Command: command, Result: res, err: fmt.Errorf("%w: %w", ccerrors.ErrCommandSpawn, err)}
}

// mergeEnv merges overlay over base. Overlay wins on key collision.
func mergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, shadowed := overlay[key]; !shadowed {
			merged = append(merged, kv)
		}
	}
	for k, v := range overlay {
		merged = append(merged, k+"="+v)
	}
	return merged
}
