package constants

// TaskStatus represents the state of a task in the workflow state machine.
// Status values use camelCase-free lowercase for JSON serialization compatibility.
type TaskStatus string

// Task status constants define the valid states a task can be in.
// These follow the workflow state machine:
//
//	Queued → Cloning → Checkout → Developing → Testing → Committing → Pushing → Completed
//
// Testing, Committing, and Pushing are skipped when the working tree has no
// changes after the agent runs. Failed is reachable from every non-terminal
// state. Completed and Failed are terminal.
const (
	// TaskStatusQueued indicates a task was accepted but its workflow has not started.
	TaskStatusQueued TaskStatus = "queued"

	// TaskStatusCloning indicates the repository is being cloned or updated.
	TaskStatusCloning TaskStatus = "cloning"

	// TaskStatusCheckout indicates the requested branch is being resolved.
	TaskStatusCheckout TaskStatus = "checkout"

	// TaskStatusDeveloping indicates the coding agent is running.
	TaskStatusDeveloping TaskStatus = "developing"

	// TaskStatusTesting indicates the optional test command is running.
	TaskStatusTesting TaskStatus = "testing"

	// TaskStatusCommitting indicates changes are being staged and committed.
	TaskStatusCommitting TaskStatus = "committing"

	// TaskStatusPushing indicates the branch is being pushed to the remote.
	TaskStatusPushing TaskStatus = "pushing"

	// TaskStatusCompleted indicates the workflow finished successfully.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed indicates the workflow stopped with an error.
	TaskStatusFailed TaskStatus = "failed"
)

// String returns the string representation of the TaskStatus.
// This implements fmt.Stringer for convenient logging and debugging.
func (s TaskStatus) String() string {
	return string(s)
}
