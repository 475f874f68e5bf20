package scheduler

import "time"

type (
	// Clock provides the current time for job scheduling
	Clock func() time.Time

	// Timer is a resettable timer the run loop waits on
	Timer interface {
		Channel() <-chan time.Time
		Reset(delay time.Duration) bool
		Stop() bool
	}

	// TimerConstructor builds a run-loop timer with the given delay
	TimerConstructor func(delay time.Duration) Timer

	systemTimer time.Timer
)

// NewTimer builds the default system-backed timer
func NewTimer(delay time.Duration) Timer {
	return (*systemTimer)(time.NewTimer(delay))
}

func (t *systemTimer) Channel() <-chan time.Time {
	return t.C
}

func (t *systemTimer) Reset(delay time.Duration) bool {
	return (*time.Timer)(t).Reset(delay)
}

func (t *systemTimer) Stop() bool {
	return (*time.Timer)(t).Stop()
}
