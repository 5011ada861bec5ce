// Package main provides the entry point for claude-code-server.
package main

import (
	"context"
	"os"

	"github.com/JonasWIP/claude-code-server/internal/cli"
)

// Build-time variables set via ldflags.
var (
	version = "" //nolint:gochecknoglobals // Set via ldflags
	commit  = "" //nolint:gochecknoglobals // Set via ldflags
	date    = "" //nolint:gochecknoglobals // Set via ldflags
)

func main() {
	ctx := context.Background()

	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	cli.CloseLogFile()
	os.Exit(cli.ExitCodeForError(err))
}
