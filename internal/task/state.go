// Package task provides task state management for claude-code-server.
//
// This file implements the workflow state machine, which enforces valid
// status transitions so no task ever regresses to an earlier state.
package task

import (
	"github.com/JonasWIP/claude-code-server/internal/constants"
)

// ValidTransitions defines all allowed status transitions in the task lifecycle.
// Format: from_status -> []to_statuses
//
// The state machine follows this flow:
//
//	Queued → Cloning
//	Cloning → Checkout
//	Checkout → Developing
//	Developing → Testing, Committing, Completed (no changes)
//	Testing → Committing
//	Committing → Pushing
//	Pushing → Completed
//
// Failed is reachable from every non-terminal state. The Developing →
// Completed edge is the single non-linear success branch: a clean working
// tree after the agent skips testing, committing, and pushing entirely.
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = map[constants.TaskStatus][]constants.TaskStatus{
	constants.TaskStatusQueued:  {constants.TaskStatusCloning, constants.TaskStatusFailed},
	constants.TaskStatusCloning: {constants.TaskStatusCheckout, constants.TaskStatusFailed},
	constants.TaskStatusCheckout: {
		constants.TaskStatusDeveloping,
		constants.TaskStatusFailed,
	},
	constants.TaskStatusDeveloping: {
		constants.TaskStatusTesting,
		constants.TaskStatusCommitting,
		constants.TaskStatusCompleted, // No working-tree changes
		constants.TaskStatusFailed,
	},
	constants.TaskStatusTesting:    {constants.TaskStatusCommitting, constants.TaskStatusFailed},
	constants.TaskStatusCommitting: {constants.TaskStatusPushing, constants.TaskStatusFailed},
	constants.TaskStatusPushing:    {constants.TaskStatusCompleted, constants.TaskStatusFailed},
}

// terminalStatuses defines states where no further transitions are allowed.
// Terminal states are those NOT present as keys in ValidTransitions.
//
//nolint:gochecknoglobals // Read-only lookup table for terminal state checks
var terminalStatuses = map[constants.TaskStatus]bool{
	constants.TaskStatusCompleted: true,
	constants.TaskStatusFailed:    true,
}

// IsValidTransition checks if a transition from one status to another is allowed.
// Returns false for transitions from terminal states or to the same state.
func IsValidTransition(from, to constants.TaskStatus) bool {
	if from == to {
		return false
	}

	validTargets, exists := ValidTransitions[from]
	if !exists {
		return false // Terminal state or unknown state
	}
	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus returns true for states where no further transitions are
// allowed. Terminal states: Completed, Failed.
func IsTerminalStatus(status constants.TaskStatus) bool {
	return terminalStatuses[status]
}
