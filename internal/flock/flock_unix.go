//go:build unix

package flock

import "syscall"

// Exclusive acquires an exclusive non-blocking lock on the file descriptor.
// Fails immediately when another process holds the lock.
func Exclusive(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX|syscall.LOCK_NB)
}

// Unlock releases the lock on the file descriptor.
func Unlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
