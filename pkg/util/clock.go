package util

import "time"

// Timer is the subset of *time.Timer the debounce logic relies on.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time so timer driven code can be tested deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemClock is backed by the time package.
type SystemClock struct{}

// NewSystemClock returns the real clock.
func NewSystemClock() Clock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
