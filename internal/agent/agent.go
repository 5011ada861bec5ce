// Package agent provides coding-agent invocation for claude-code-server.
//
// The agent is an external command that accepts a task prompt on stdin and
// emits text. Only its exit code and textual output are contract-relevant;
// this package captures the combined output and classifies quota conditions
// by content inspection, because the agent may exit zero or non-zero
// depending on how the underlying provider reports them.
package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
	"github.com/JonasWIP/claude-code-server/internal/runner"
)

// quotaVocabulary is the case-insensitive billing/rate-limit vocabulary
// scanned for in agent output. A match short-circuits the task into the
// distinguished quota-exhausted outcome regardless of exit code.
//
//nolint:gochecknoglobals // Read-only lookup table
var quotaVocabulary = []string{
	"credit",
	"quota",
	"billing",
	"exceeded",
	"insufficient",
	"rate limit",
}

// Runner invokes the external coding agent.
type Runner struct {
	command string
	workDir string
	run     runner.Runner
	logger  zerolog.Logger
}

// NewRunner creates an agent Runner. command is the shell command to invoke;
// workDir is an optional subdirectory of the working copy in which it runs.
func NewRunner(command, workDir string, run runner.Runner, logger zerolog.Logger) *Runner {
	return &Runner{
		command: command,
		workDir: workDir,
		run:     run,
		logger:  logger.With().Str("component", "agent").Logger(),
	}
}

// Run invokes the agent in the working copy at repoDir with prompt piped on
// stdin. The combined captured output is always returned, including on error,
// so callers can persist it for forensics.
//
// Error precedence: quota exhaustion detected in the output wins over a
// non-zero exit, because it is operator-actionable rather than a code defect.
func (r *Runner) Run(ctx context.Context, repoDir, prompt string) (string, error) {
	dir := repoDir
	if r.workDir != "" {
		dir = filepath.Join(repoDir, r.workDir)
	}

	r.logger.Info().Str("dir", dir).Int("prompt_len", len(prompt)).Msg("invoking coding agent")

	res, err := r.run.RunStdin(ctx, r.command, dir, prompt, nil)
	if res == nil {
		res = &runner.Result{}
	}
	output := combinedOutput(res)

	if quotaErr := ClassifyOutput(output); quotaErr != nil {
		r.logger.Warn().Msg("agent output matched quota vocabulary")
		return output, quotaErr
	}

	if err != nil {
		if ctx.Err() != nil {
			return output, ctx.Err()
		}
		return output, fmt.Errorf("%w: %w", ccerrors.ErrAgentInvocation, err)
	}

	return output, nil
}

// ClassifyOutput scans output for quota vocabulary, case-insensitively.
// It returns ErrQuotaExhausted on a match and nil otherwise.
func ClassifyOutput(output string) error {
	lowered := strings.ToLower(output)
	for _, word := range quotaVocabulary {
		if strings.Contains(lowered, word) {
			return ccerrors.Wrapf(ccerrors.ErrQuotaExhausted, "agent output contains %q", word)
		}
	}
	return nil
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
