// Package errors provides centralized error handling for claude-code-server.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrGitOperation indicates that a git command (clone, fetch, checkout,
	// commit, push, etc.) failed during execution.
	ErrGitOperation = errors.New("git operation failed")

	// ErrAgentInvocation indicates that the coding agent command failed to
	// execute or returned a non-zero exit code.
	ErrAgentInvocation = errors.New("agent invocation failed")

	// ErrQuotaExhausted indicates the coding agent's output matched billing or
	// rate-limit vocabulary. This is operator-actionable (add billing credit)
	// rather than a code defect, so it is kept distinct from ErrAgentInvocation.
	ErrQuotaExhausted = errors.New("agent quota exhausted")

	// ErrTestsFailed indicates the configured test command exited non-zero and
	// the task did not opt into committing on test failure. This is a
	// deliberate policy abort, not a tooling crash.
	ErrTestsFailed = errors.New("tests failed")

	// ErrPushFailed indicates the commit exists locally but could not be
	// pushed to the remote. Kept distinct so operators know the commit is
	// recoverable by completing the push manually.
	ErrPushFailed = errors.New("push failed")

	// ErrCommandFailed indicates an external command exited non-zero.
	ErrCommandFailed = errors.New("command failed")

	// ErrCommandSpawn indicates an external command could not be started at all.
	ErrCommandSpawn = errors.New("command could not be started")

	// ErrTaskNotFound indicates the requested task does not exist in the store.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskExists indicates an attempt to create a task with an ID already in use.
	ErrTaskExists = errors.New("task already exists")

	// ErrInvalidTransition indicates an attempted task status change that the
	// state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingField indicates a required request field was absent.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidToken indicates the bearer token is absent or could not be
	// resolved to a user identity.
	ErrInvalidToken = errors.New("invalid or missing token")

	// ErrNotAdmin indicates a valid identity that lacks the administrator claim.
	ErrNotAdmin = errors.New("admin privilege required")

	// ErrAuthProvider indicates the identity provider could not be reached or
	// returned an unexpected response.
	ErrAuthProvider = errors.New("identity provider error")

	// ErrConfigInvalid indicates an invalid configuration value.
	ErrConfigInvalid = errors.New("invalid configuration")
)
