package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
)

func TestShell_Run_CapturesStdoutAndStderr(t *testing.T) {
	t.Parallel()

	sh := NewShell()
	res, err := sh.Run(context.Background(), `printf out; printf err >&2`, t.TempDir(), nil)

	require.NoError(t, err)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

func TestShell_Run_EnvOverlayWins(t *testing.T) {
	t.Setenv("CCS_RUNNER_TEST", "ambient")

	sh := NewShell()
	res, err := sh.Run(context.Background(), `printf '%s' "$CCS_RUNNER_TEST"`, t.TempDir(),
		map[string]string{"CCS_RUNNER_TEST": "overlay"})

	require.NoError(t, err)
	assert.Equal(t, "overlay", res.Stdout)
}

func TestShell_Run_AmbientEnvPreserved(t *testing.T) {
	t.Setenv("CCS_RUNNER_AMBIENT", "kept")

	sh := NewShell()
	res, err := sh.Run(context.Background(), `printf '%s' "$CCS_RUNNER_AMBIENT"`, t.TempDir(),
		map[string]string{"OTHER": "x"})

	require.NoError(t, err)
	assert.Equal(t, "kept", res.Stdout)
}

func TestShell_Run_NonZeroExit(t *testing.T) {
	t.Parallel()

	sh := NewShell()
	res, err := sh.Run(context.Background(), `printf partial; exit 3`, t.TempDir(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrCommandFailed)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.Result.ExitCode)
	assert.Equal(t, "partial", execErr.Result.Stdout)

	// The failure result is also returned directly.
	assert.Equal(t, 3, res.ExitCode)
}

func TestShell_Run_MissingBinaryExitCode(t *testing.T) {
	t.Parallel()

	sh := NewShell()
	_, err := sh.Run(context.Background(), "definitely-not-a-real-binary-ccs", t.TempDir(), nil)

	// sh itself starts fine; the missing binary surfaces as exit 127.
	require.Error(t, err)
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 127, execErr.Result.ExitCode)
}

func TestShell_RunStdin_PipesInput(t *testing.T) {
	t.Parallel()

	sh := NewShell()
	res, err := sh.RunStdin(context.Background(), "cat", t.TempDir(), "task: add README", nil)

	require.NoError(t, err)
	assert.Equal(t, "task: add README", res.Stdout)
}

func TestShell_Run_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sh := NewShell()
	_, err := sh.Run(ctx, "sleep 10", t.TempDir(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMergeEnv(t *testing.T) {
	t.Parallel()

	merged := mergeEnv([]string{"A=1", "B=2"}, map[string]string{"B": "3", "C": "4"})

	assert.Contains(t, merged, "A=1")
	assert.Contains(t, merged, "B=3")
	assert.Contains(t, merged, "C=4")
	assert.NotContains(t, merged, "B=2")
}
