package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
	"github.com/JonasWIP/claude-code-server/internal/runner"
)

// fakeRunner scripts responses by command prefix and records every invocation.
type fakeRunner struct {
	commands  []string
	responses map[string]fakeResponse
}

type fakeResponse struct {
	stdout string
	stderr string
	fail   bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string]fakeResponse)}
}

func (f *fakeRunner) respond(prefix, stdout string) {
	f.responses[prefix] = fakeResponse{stdout: stdout}
}

func (f *fakeRunner) failOn(prefix, stderr string) {
	f.responses[prefix] = fakeResponse{stderr: stderr, fail: true}
}

func (f *fakeRunner) Run(_ context.Context, command, _ string, _ map[string]string) (*runner.Result, error) {
	f.commands = append(f.commands, command)
	for prefix, resp := range f.responses {
		if strings.HasPrefix(command, prefix) {
			res := &runner.Result{Stdout: resp.stdout, Stderr: resp.stderr}
			if resp.fail {
				res.ExitCode = 1
				return res, fmt.Errorf("command %q exited with code 1: %w", command, ccerrors.ErrCommandFailed)
			}
			return res, nil
		}
	}
	return &runner.Result{}, nil
}

func (f *fakeRunner) RunStdin(ctx context.Context, command, dir, _ string, env map[string]string) (*runner.Result, error) {
	return f.Run(ctx, command, dir, env)
}

func (f *fakeRunner) ran(prefix string) bool {
	for _, cmd := range f.commands {
		if strings.HasPrefix(cmd, prefix) {
			return true
		}
	}
	return false
}

func TestRepoDirName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"https with .git", "https://example.com/u/Repo.git", "repo"},
		{"https without .git", "https://example.com/u/repo", "repo"},
		{"trailing slash", "https://example.com/u/repo/", "repo"},
		{"ssh style", "git@github.com:user/My-Repo.git", "my-repo"},
		{"uppercase folded", "https://example.com/u/R.GIT", "r.git"},
		{"bare name", "repo", "repo"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RepoDirName(tt.url))
		})
	}
}

func TestCloneOrUpdate_FreshClone(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fake := newFakeRunner()
	ops := NewOps(fake, zerolog.Nop())

	dir, err := ops.CloneOrUpdate(context.Background(), "https://example.com/u/r.git", "main", root)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "r"), dir)
	assert.True(t, fake.ran("git clone"))
	assert.False(t, fake.ran("git fetch"))
}

func TestCloneOrUpdate_ExistingRepoResets(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "r", ".git"), 0o750))

	fake := newFakeRunner()
	ops := NewOps(fake, zerolog.Nop())

	dir, err := ops.CloneOrUpdate(context.Background(), "https://example.com/u/r.git", "main", root)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "r"), dir)
	assert.True(t, fake.ran("git fetch --all"))
	assert.True(t, fake.ran("git reset --hard origin/'main'"))
	assert.False(t, fake.ran("git clone"))
}

func TestCloneOrUpdate_CloneFailureIncludesStderr(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	fake.failOn("git clone", "fatal: repository not found")
	ops := NewOps(fake, zerolog.Nop())

	_, err := ops.CloneOrUpdate(context.Background(), "https://example.com/u/r.git", "main", t.TempDir())

	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrGitOperation)
	assert.Contains(t, err.Error(), "repository not found")
}

func TestCheckout_CreateFallsBackToSwitch(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	fake.failOn("git checkout -b", "fatal: a branch named 'feat' already exists")
	ops := NewOps(fake, zerolog.Nop())

	err := ops.Checkout(context.Background(), t.TempDir(), "feat", true)

	require.NoError(t, err)
	assert.True(t, fake.ran("git checkout -b 'feat'"))
	assert.True(t, fake.ran("git checkout 'feat'"))
}

func TestCheckout_SwitchFallsBackToRemoteTracking(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	fake.failOn("git checkout 'feat'", "error: pathspec 'feat' did not match")
	ops := NewOps(fake, zerolog.Nop())

	err := ops.Checkout(context.Background(), t.TempDir(), "feat", false)

	require.NoError(t, err)
	assert.True(t, fake.ran("git checkout -b 'feat' origin/'feat'"))
}

func TestHasChanges(t *testing.T) {
	t.Parallel()

	t.Run("dirty tree", func(t *testing.T) {
		t.Parallel()
		fake := newFakeRunner()
		fake.respond("git status --porcelain", " M main.go\n?? new.go\n")
		ops := NewOps(fake, zerolog.Nop())

		changed, err := ops.HasChanges(context.Background(), t.TempDir())
		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("clean tree", func(t *testing.T) {
		t.Parallel()
		fake := newFakeRunner()
		fake.respond("git status --porcelain", "\n")
		ops := NewOps(fake, zerolog.Nop())

		changed, err := ops.HasChanges(context.Background(), t.TempDir())
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestCommitAll_ReturnsShortHash(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	fake.respond("git rev-parse --short HEAD", "abc1234\n")
	ops := NewOps(fake, zerolog.Nop())

	hash, err := ops.CommitAll(context.Background(), t.TempDir(), "add README")

	require.NoError(t, err)
	assert.Equal(t, "abc1234", hash)
	assert.True(t, fake.ran("git add -A"))
	assert.True(t, fake.ran("git commit -m 'add README'"))
}

func TestCommitAll_QuotesMessage(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	fake.respond("git rev-parse", "abc1234")
	ops := NewOps(fake, zerolog.Nop())

	_, err := ops.CommitAll(context.Background(), t.TempDir(), "don't break 'quotes'")

	require.NoError(t, err)
	assert.True(t, fake.ran(`git commit -m 'don'\''t break '\''quotes'\'''`))
}

func TestPush_WrapsPushFailed(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	fake.failOn("git push", "error: failed to push some refs")
	ops := NewOps(fake, zerolog.Nop())

	err := ops.Push(context.Background(), t.TempDir(), "main")

	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrPushFailed)
	assert.ErrorIs(t, err, ccerrors.ErrGitOperation)
}

func TestPush_Success(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	ops := NewOps(fake, zerolog.Nop())

	require.NoError(t, ops.Push(context.Background(), t.TempDir(), "main"))
	assert.True(t, fake.ran("git push -u origin 'main'"))
}
