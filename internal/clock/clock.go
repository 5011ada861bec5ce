// Package clock abstracts time for components that stamp task records.
// The task store takes a Clock so tests can pin log timestamps instead of
// pattern-matching around time.Now().
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

var _ Clock = RealClock{}
