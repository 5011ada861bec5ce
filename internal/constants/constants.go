// Package constants provides shared constants for claude-code-server.
//
// This package MUST NOT import any other internal packages.
package constants

// Version is the server version reported by /health and the version command.
// Overridden at build time via -ldflags.
var Version = "1.0.0" //nolint:gochecknoglobals // Set via ldflags at build time

// Exit codes surfaced by the one-shot task runner.
// Quota exhaustion gets its own code so operators can alert differently:
// it is fixed by adding billing credit, not by touching code.
const (
	// ExitOK indicates the workflow reached a successful terminal state.
	ExitOK = 0

	// ExitFailure indicates a generic workflow failure.
	ExitFailure = 1

	// ExitQuotaExhausted indicates the coding agent reported a billing or
	// rate-limit condition.
	ExitQuotaExhausted = 2
)

// Default configuration values.
const (
	// DefaultPort is the HTTP listen port when none is configured.
	DefaultPort = 3000

	// DefaultHost is the HTTP listen host when none is configured.
	DefaultHost = "0.0.0.0"

	// DefaultWorkspaceDir is the root directory for repository working copies.
	DefaultWorkspaceDir = "workspace"

	// DefaultAgentCommand is the coding agent invocation. The task prompt is
	// piped to it on stdin.
	DefaultAgentCommand = "claude -p --dangerously-skip-permissions"

	// DefaultRepoListCommand produces the JSON repository listing served by
	// GET /repos.
	DefaultRepoListCommand = "gh repo list --json name,url --limit 100"

	// DefaultBranch is used when a task does not name a branch.
	DefaultBranch = "main"

	// LogDirName is the subdirectory of the workspace holding per-task log files.
	LogDirName = "logs"

	// EnvPrefix is the environment variable prefix for configuration.
	EnvPrefix = "CCS"
)

// CommitAttribution is appended to generated commit messages so commits made
// by the agent are identifiable in history.
const CommitAttribution = "Automated-by: claude-code-server"

// Process log settings. Per-task logs live under the workspace; the process
// log is a rotating file under the user's home directory.
const (
	// HomeDirName is the per-user state directory under $HOME.
	HomeDirName = ".claude-code-server"

	// ProcessLogFileName is the rotating process log file name.
	ProcessLogFileName = "server.log"

	// LogMaxSizeMB is the size at which the process log rotates.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated process logs to keep.
	LogMaxBackups = 3

	// LogMaxAgeDays is the retention for rotated process logs.
	LogMaxAgeDays = 28

	// LogCompress enables gzip compression of rotated process logs.
	LogCompress = true
)
