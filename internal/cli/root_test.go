package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and captures its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{Version: "1.2.3", Commit: "abc", Date: "2026-01-01"})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootShowsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "claude-code-server")
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "run")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3")
	assert.Contains(t, out, "abc")
}

func TestVerboseQuietMutuallyExclusive(t *testing.T) {
	_, err := execute(t, "version", "--verbose", "--quiet")
	require.Error(t, err)
}

func TestRunRequiresRepoAndTask(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestFormatVersion(t *testing.T) {
	got := formatVersion(BuildInfo{Version: "2.0.0", Commit: "deadbeef", Date: "2026-06-01"})
	assert.Equal(t, "2.0.0 (commit: deadbeef, built: 2026-06-01)", got)

	// Empty fields fall back to defaults.
	got = formatVersion(BuildInfo{})
	assert.Contains(t, got, "commit: none")
	assert.Contains(t, got, "built: unknown")
}

func TestGetLoggerBeforeInit(t *testing.T) {
	// Must not panic; a zero-value logger simply discards output.
	logger := GetLogger()
	logger.Info().Msg("no-op")
}
