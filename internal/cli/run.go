package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonasWIP/claude-code-server/internal/signal"
	"github.com/JonasWIP/claude-code-server/internal/task"
)

// runFlags holds the flags for the run command.
type runFlags struct {
	repo                string
	taskDesc            string
	branch              string
	createBranch        bool
	testCommand         string
	commitMessage       string
	commitOnTestFailure bool
}

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command) {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single task and exit",
		Long: `Execute one task workflow without starting the HTTP server.

The process exit code reports the outcome:
  0  the workflow completed (including the no-changes case)
  1  the workflow failed
  2  the coding agent reported quota or billing exhaustion

The final task record is printed to stdout as JSON.`,
		Example: `  claude-code-server run --repo https://github.com/org/repo.git --task "fix the login bug"
  claude-code-server run --repo git@github.com:org/repo.git --task "add retries" \
    --branch feature/retries --create-branch --test-command "go test ./..."`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTask(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.repo, "repo", "", "repository URL to clone or update (required)")
	cmd.Flags().StringVar(&flags.taskDesc, "task", "", "task description passed to the coding agent (required)")
	cmd.Flags().StringVar(&flags.branch, "branch", "", "branch to check out (default: configured default branch)")
	cmd.Flags().BoolVar(&flags.createBranch, "create-branch", false, "create the branch instead of switching to it")
	cmd.Flags().StringVar(&flags.testCommand, "test-command", "", "test command run after the agent")
	cmd.Flags().StringVar(&flags.commitMessage, "commit-message", "", "override the generated commit message")
	cmd.Flags().BoolVar(&flags.commitOnTestFailure, "commit-on-test-failure", false, "commit and push even when the test command fails")

	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("task")

	root.AddCommand(cmd)
}

func runTask(cmd *cobra.Command, flags *runFlags) error {
	logger := GetLogger()
	defer CloseLogFile()

	deps, err := buildDependencies(logger)
	if err != nil {
		return err
	}
	defer deps.release()

	t := deps.store.Create(task.Config{
		Repo:                flags.repo,
		Task:                flags.taskDesc,
		Branch:              flags.branch,
		CreateBranch:        flags.createBranch,
		TestCommand:         flags.testCommand,
		CommitMessage:       flags.commitMessage,
		CommitOnTestFailure: flags.commitOnTestFailure,
	})

	// Ctrl+C cancels the in-flight step.
	handler := signal.NewHandler(cmd.Context())
	defer handler.Stop()

	workflowErr := deps.engine.Execute(handler.Context(), t.ID)

	// The task record is the result; print it regardless of outcome so
	// callers always get the logs and failure detail.
	if final, getErr := deps.store.Get(t.ID); getErr == nil {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if encErr := encoder.Encode(final); encErr != nil {
			return fmt.Errorf("encode task result: %w", encErr)
		}
	}

	return workflowErr
}
