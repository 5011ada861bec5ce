package flock

import (
	"fmt"
	"os"
)

// lockFilePerm restricts the lock file to the owning user.
const lockFilePerm = 0o600

// Acquire takes an exclusive non-blocking lock on the file at path, creating
// it if absent. It returns a release function that drops the lock and closes
// the file. If another process holds the lock, Acquire fails immediately.
func Acquire(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, lockFilePerm) // #nosec G304 -- caller controls the lock path
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := Exclusive(f.Fd()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock %s held by another process: %w", path, err)
	}

	return func() {
		_ = Unlock(f.Fd())
		_ = f.Close()
	}, nil
}
