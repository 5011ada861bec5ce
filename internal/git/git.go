// Package git provides Git operations for claude-code-server.
//
// Git is driven entirely through external commands via the runner package;
// only exit status and output text are interpreted. The workflow engine is
// the sole consumer.
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
	"github.com/JonasWIP/claude-code-server/internal/runner"
)

// Ops executes git operations for repository working copies.
// All operations run in the given working directory and use context for cancellation.
type Ops struct {
	run    runner.Runner
	logger zerolog.Logger
}

// NewOps creates a new Ops using the given runner.
func NewOps(run runner.Runner, logger zerolog.Logger) *Ops {
	return &Ops{
		run:    run,
		logger: logger.With().Str("component", "git").Logger(),
	}
}

// RepoDirName derives the working-copy directory name from a repository URL:
// the URL basename without its .git extension, case-folded. Two tasks naming
// the same derived directory share a working copy.
func RepoDirName(repoURL string) string {
	name := strings.TrimSuffix(repoURL, "/")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	return strings.ToLower(name)
}

// CloneOrUpdate ensures a clean working copy of repoURL at branch under
// workspaceRoot and returns its path.
//
// If the derived directory already holds a repository, all remote refs are
// fetched and the checkout is hard-reset to the remote tip of branch. Local
// divergence is discarded to guarantee a clean base for the agent. Otherwise
// the repository is freshly cloned.
func (o *Ops) CloneOrUpdate(ctx context.Context, repoURL, branch, workspaceRoot string) (string, error) {
	dir := filepath.Join(workspaceRoot, RepoDirName(repoURL))

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		o.logger.Info().Str("dir", dir).Str("branch", branch).Msg("updating existing working copy")

		if _, err := o.git(ctx, dir, "fetch --all"); err != nil {
			return "", err
		}
		if _, err := o.git(ctx, dir, "reset --hard origin/"+quote(branch)); err != nil {
			return "", err
		}
		return dir, nil
	}

	o.logger.Info().Str("repo", repoURL).Str("dir", dir).Msg("cloning repository")

	if err := os.MkdirAll(workspaceRoot, 0o750); err != nil {
		return "", fmt.Errorf("%w: create workspace root: %w", ccerrors.ErrGitOperation, err)
	}
	if _, err := o.git(ctx, workspaceRoot, "clone "+quote(repoURL)+" "+quote(filepath.Base(dir))); err != nil {
		return "", err
	}
	return dir, nil
}

// Checkout resolves branch in dir. When create is true it attempts to create
// and switch to a new branch, falling back to a plain switch if the branch
// already exists. Otherwise it switches to the existing branch, falling back
// to creating it from the remote tracking branch if absent locally.
func (o *Ops) Checkout(ctx context.Context, dir, branch string, create bool) error {
	if create {
		if _, err := o.git(ctx, dir, "checkout -b "+quote(branch)); err == nil {
			return nil
		}
		_, err := o.git(ctx, dir, "checkout "+quote(branch))
		return err
	}

	if _, err := o.git(ctx, dir, "checkout "+quote(branch)); err == nil {
		return nil
	}
	_, err := o.git(ctx, dir, "checkout -b "+quote(branch)+" origin/"+quote(branch))
	return err
}

// HasChanges reports whether the working tree has any pending changes:
// staged, unstaged, or untracked.
func (o *Ops) HasChanges(ctx context.Context, dir string) (bool, error) {
	out, err := o.git(ctx, dir, "status --porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// CommitAll stages all changes, commits with message, and returns the short
// commit hash.
func (o *Ops) CommitAll(ctx context.Context, dir, message string) (string, error) {
	if _, err := o.git(ctx, dir, "add -A"); err != nil {
		return "", err
	}
	if _, err := o.git(ctx, dir, "commit -m "+quote(message)); err != nil {
		return "", err
	}
	return o.ShortHash(ctx, dir)
}

// ShortHash returns the abbreviated hash of HEAD.
func (o *Ops) ShortHash(ctx context.Context, dir string) (string, error) {
	return o.git(ctx, dir, "rev-parse --short HEAD")
}

// Push pushes branch to origin with upstream tracking set.
// Failures are wrapped with ErrPushFailed so the caller can tell the operator
// the commit exists locally but not remotely.
func (o *Ops) Push(ctx context.Context, dir, branch string) error {
	if _, err := o.git(ctx, dir, "push -u origin "+quote(branch)); err != nil {
		return fmt.Errorf("%w: %w", ccerrors.ErrPushFailed, err)
	}
	return nil
}

// git runs a git subcommand in dir and returns trimmed stdout.
// Errors are wrapped with ErrGitOperation and include stderr for debugging.
func (o *Ops) git(ctx context.Context, dir, args string) (string, error) {
	res, err := o.run.Run(ctx, "git "+args, dir, nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if res != nil && strings.TrimSpace(res.Stderr) != "" {
			return "", fmt.Errorf("git %s failed: %s: %w: %w", firstWord(args), strings.TrimSpace(res.Stderr), ccerrors.ErrGitOperation, err)
		}
		return "", fmt.Errorf("git %s failed: %w: %w", firstWord(args), ccerrors.ErrGitOperation, err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// quote single-quotes s for safe embedding in a shell command line.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
