package connection

import "time"

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. Returns false if it already ran or was stopped.
	Stop() bool
}

// Scheduler arms retry timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// realScheduler schedules with time.AfterFunc.
type realScheduler struct{}

// AfterFunc calls f in its own goroutine after d.
func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
