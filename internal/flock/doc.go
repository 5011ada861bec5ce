// Package flock provides cross-platform advisory file locking.
//
// The server holds an exclusive lock file at the workspace root for its
// whole lifetime. Working copies are reset destructively at the start of
// every task, so two processes sharing a workspace would corrupt each
// other's checkouts; the lock turns that misconfiguration into a clean
// startup error.
//
// Acquire is the high-level entry point:
//
//	release, err := flock.Acquire(filepath.Join(workspaceDir, ".lock"))
//	if err != nil {
//	    // another process owns the workspace
//	}
//	defer release()
package flock
