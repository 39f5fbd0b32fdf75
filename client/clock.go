package client

import "time"

// Clock supplies the session's notion of "now" so tests can pin the
// current day instead of depending on wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules f to run once after d. The production factory
// wraps time.AfterFunc; tests substitute one that fires on demand.
type TimerFactory func(d time.Duration, f func()) Timer

// StdTimerFactory schedules timers on the runtime timer heap.
func StdTimerFactory(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
