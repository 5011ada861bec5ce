package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
	"github.com/JonasWIP/claude-code-server/internal/runner"
)

// fakeRunner returns a scripted result for every invocation and records
// the directory and stdin it was called with.
type fakeRunner struct {
	stdout   string
	stderr   string
	exitCode int
	dir      string
	stdin    string
}

func (f *fakeRunner) Run(ctx context.Context, command, dir string, env map[string]string) (*runner.Result, error) {
	return f.RunStdin(ctx, command, dir, "", env)
}

func (f *fakeRunner) RunStdin(_ context.Context, _, dir, stdin string, _ map[string]string) (*runner.Result, error) {
	f.dir = dir
	f.stdin = stdin
	res := &runner.Result{Stdout: f.stdout, Stderr: f.stderr, ExitCode: f.exitCode}
	if f.exitCode != 0 {
		return res, fmt.Errorf("command exited with code %d: %w", f.exitCode, ccerrors.ErrCommandFailed)
	}
	return res, nil
}

func TestClassifyOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		output string
		quota  bool
	}{
		{"clean output", "Done. Edited 3 files.", false},
		{"credit lowercase", "you are out of credit", true},
		{"quota mixed case", "API Quota has been reached", true},
		{"billing", "There is a BILLING problem with your account", true},
		{"exceeded", "usage limit Exceeded", true},
		{"insufficient", "Insufficient balance", true},
		{"rate limit with space", "You hit a rate limit, retry later", true},
		{"rate-limit hyphenated does not match", "rate-limited", false},
		{"empty output", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ClassifyOutput(tt.output)
			if tt.quota {
				assert.ErrorIs(t, err, ccerrors.ErrQuotaExhausted)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunner_Run_PipesPromptAndCapturesOutput(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{stdout: "edited main.go", stderr: "warning: slow"}
	r := NewRunner("claude -p", "", fake, zerolog.Nop())

	out, err := r.Run(context.Background(), "/repos/r", "add README")

	require.NoError(t, err)
	assert.Equal(t, "add README", fake.stdin)
	assert.Equal(t, "/repos/r", fake.dir)
	assert.Equal(t, "edited main.go\nwarning: slow", out)
}

func TestRunner_Run_WorkDirSubdirectory(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{stdout: "ok"}
	r := NewRunner("claude -p", "backend", fake, zerolog.Nop())

	_, err := r.Run(context.Background(), "/repos/r", "fix tests")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/repos/r", "backend"), fake.dir)
}

func TestRunner_Run_QuotaWinsOverExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		exitCode int
	}{
		{"quota with zero exit", 0},
		{"quota with non-zero exit", 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeRunner{stdout: "Your account has insufficient credits", exitCode: tt.exitCode}
			r := NewRunner("claude -p", "", fake, zerolog.Nop())

			out, err := r.Run(context.Background(), "/repos/r", "task")

			require.Error(t, err)
			assert.ErrorIs(t, err, ccerrors.ErrQuotaExhausted)
			assert.Contains(t, out, "insufficient credits")
		})
	}
}

func TestRunner_Run_NonZeroExitWithoutQuota(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{stderr: "panic: something broke", exitCode: 1}
	r := NewRunner("claude -p", "", fake, zerolog.Nop())

	out, err := r.Run(context.Background(), "/repos/r", "task")

	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrAgentInvocation)
	assert.NotErrorIs(t, err, ccerrors.ErrQuotaExhausted)
	assert.Contains(t, out, "panic: something broke")
}
