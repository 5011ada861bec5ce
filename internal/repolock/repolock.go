// Package repolock provides per-repository mutual exclusion.
//
// Two tasks naming the same derived repository directory share a working
// copy; without exclusion, the destructive reset at the start of one
// workflow can race with another workflow's in-progress edits. The registry
// serializes whole workflows per derived repository name. Locks are held in
// process because task state itself is process-scoped.
package repolock

import "sync"

// Registry hands out one mutex per repository name.
// The zero value is not usable; call NewRegistry.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for name, blocking until available, and returns
// the release function.
//
//	release := registry.Lock(git.RepoDirName(cfg.Repo))
//	defer release()
func (r *Registry) Lock(name string) func() {
	r.mu.Lock()
	m, ok := r.locks[name]
	if !ok {
		m = &sync.Mutex{}
		r.locks[name] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
