// Package ctxutil provides context utility functions.
package ctxutil

import "context"

// Canceled reports whether the context is done, returning its error
// (Canceled or DeadlineExceeded) if so and nil otherwise. The workflow
// engine calls this at entry so a task whose context died before the
// workflow started never touches the repository.
//
// ctx.Err() already returns nil while Done is open, so no select is needed.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}
