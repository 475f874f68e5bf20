package scheduler_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mvoevodskiy/botcms/internal/scheduler"
)

type (
	testTimerConstructor struct {
		created chan *fakeTimer
	}

	fakeTimer struct {
		ch      chan time.Time
		resets  chan time.Duration
		stops   chan struct{}
		stopped atomic.Bool
	}
)

const schedulerWaitTimeout = time.Second

func TestScheduleJob(t *testing.T) {
	withFakeScheduler(t, func(
		ctx context.Context, s *scheduler.Scheduler,
		timer *fakeTimer, now time.Time,
	) {
		done := make(chan struct{}, 1)

		s.Schedule(ctx, []string{"jobs", "run"},
			now.Add(40*time.Millisecond),
			func(context.Context) error {
				done <- struct{}{}
				return nil
			},
		)
		assert.Equal(t, 40*time.Millisecond, timer.WaitReset(t))
		timer.Fire(now)

		select {
		case <-done:
		case <-time.After(schedulerWaitTimeout):
			t.Fatal("scheduled job did not run")
		}
	})
}

func TestScheduleJobReplacesSamePath(t *testing.T) {
	withFakeScheduler(t, func(
		ctx context.Context, s *scheduler.Scheduler,
		timer *fakeTimer, now time.Time,
	) {
		var firstRuns atomic.Int32
		var secondRuns atomic.Int32
		secondDone := make(chan struct{}, 1)
		path := []string{"jobs", "replace"}

		s.Schedule(ctx, path, now.Add(300*time.Millisecond),
			func(context.Context) error {
				firstRuns.Add(1)
				return nil
			},
		)
		assert.Equal(t, 300*time.Millisecond, timer.WaitReset(t))

		s.Schedule(ctx, path, now.Add(40*time.Millisecond),
			func(context.Context) error {
				secondRuns.Add(1)
				secondDone <- struct{}{}
				return nil
			},
		)
		assert.Equal(t, 40*time.Millisecond, timer.WaitReset(t))
		timer.Fire(now)

		select {
		case <-secondDone:
		case <-time.After(schedulerWaitTimeout):
			t.Fatal("replacement job did not run")
		}
		assert.Equal(t, int32(0), firstRuns.Load())
		assert.Equal(t, int32(1), secondRuns.Load())
	})
}

func TestScheduleEveryReschedules(t *testing.T) {
	withFakeScheduler(t, func(
		ctx context.Context, s *scheduler.Scheduler,
		timer *fakeTimer, now time.Time,
	) {
		runs := make(chan struct{}, 4)

		s.ScheduleEvery(ctx, []string{"jobs", "tick"},
			40*time.Millisecond,
			func(context.Context) error {
				runs <- struct{}{}
				return nil
			},
		)
		assert.Equal(t, 40*time.Millisecond, timer.WaitReset(t))
		timer.Fire(now)

		select {
		case <-runs:
		case <-time.After(schedulerWaitTimeout):
			t.Fatal("recurring job did not run")
		}

		// the job reinserts itself one interval past its last run time
		assert.Equal(t, 80*time.Millisecond, timer.WaitReset(t))
		timer.Fire(now)

		select {
		case <-runs:
		case <-time.After(schedulerWaitTimeout):
			t.Fatal("recurring job did not run again")
		}
	})
}

func TestCancelJob(t *testing.T) {
	withFakeScheduler(t, func(
		ctx context.Context, s *scheduler.Scheduler,
		timer *fakeTimer, now time.Time,
	) {
		var ran atomic.Bool
		done := make(chan struct{}, 1)

		path := []string{"jobs", "cancel", "one"}
		s.Schedule(ctx, path, now.Add(100*time.Millisecond),
			func(context.Context) error {
				ran.Store(true)
				done <- struct{}{}
				return nil
			},
		)
		assert.Equal(t, 100*time.Millisecond, timer.WaitReset(t))
		s.Cancel(ctx, path)
		timer.WaitStop(t)
		timer.Fire(now)

		select {
		case <-done:
			t.Fatal("cancelled job ran")
		case <-time.After(100 * time.Millisecond):
		}
		assert.False(t, ran.Load())
	})
}

func TestCancelPrefixedJobs(t *testing.T) {
	withFakeScheduler(t, func(
		ctx context.Context, s *scheduler.Scheduler,
		timer *fakeTimer, now time.Time,
	) {
		var cancelledRuns atomic.Int32
		var activeRuns atomic.Int32
		activeDone := make(chan struct{}, 1)

		noise := func(context.Context) error {
			cancelledRuns.Add(1)
			return nil
		}
		s.Schedule(ctx, []string{"jobs", "prefix", "cancelled", "a"},
			now.Add(100*time.Millisecond), noise)
		s.Schedule(ctx, []string{"jobs", "prefix", "cancelled", "b"},
			now.Add(100*time.Millisecond), noise)
		s.Schedule(ctx, []string{"jobs", "prefix", "active", "c"},
			now.Add(100*time.Millisecond),
			func(context.Context) error {
				activeRuns.Add(1)
				activeDone <- struct{}{}
				return nil
			},
		)
		assert.Equal(t, 100*time.Millisecond, timer.WaitReset(t))
		assert.Equal(t, 100*time.Millisecond, timer.WaitReset(t))
		assert.Equal(t, 100*time.Millisecond, timer.WaitReset(t))
		timer.DrainResets()

		s.CancelPrefix(ctx, []string{"jobs", "prefix", "cancelled"})
		assert.Equal(t, 100*time.Millisecond, timer.WaitReset(t))
		timer.Fire(now)

		select {
		case <-activeDone:
		case <-time.After(schedulerWaitTimeout):
			t.Fatal("active job did not run")
		}
		assert.Equal(t, int32(0), cancelledRuns.Load())
		assert.Equal(t, int32(1), activeRuns.Load())
	})
}

func (c *testTimerConstructor) NewTimer(
	delay time.Duration,
) scheduler.Timer {
	timer := newFakeTimer()
	select {
	case c.created <- timer:
	default:
	}
	return timer
}

func (c *testTimerConstructor) WaitTimer(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case timer := <-c.created:
		return timer
	case <-time.After(schedulerWaitTimeout):
		t.Fatal("scheduler timer was not created")
		return nil
	}
}

func (t *fakeTimer) Channel() <-chan time.Time {
	return t.ch
}

func (t *fakeTimer) Reset(delay time.Duration) bool {
	t.stopped.Store(false)
	drainTimeChan(t.ch)
	t.resets <- delay
	return true
}

func (t *fakeTimer) Stop() bool {
	alreadyStopped := t.stopped.Load()
	t.stopped.Store(true)
	drainTimeChan(t.ch)
	t.stops <- struct{}{}
	return !alreadyStopped
}

func (t *fakeTimer) Fire(at time.Time) {
	if t.stopped.Load() {
		return
	}
	select {
	case t.ch <- at:
	default:
	}
}

func (t *fakeTimer) WaitReset(test *testing.T) time.Duration {
	test.Helper()
	select {
	case delay := <-t.resets:
		return delay
	case <-time.After(schedulerWaitTimeout):
		test.Fatal("scheduler timer reset not observed")
		return 0
	}
}

func (t *fakeTimer) WaitStop(test *testing.T) {
	test.Helper()
	select {
	case <-t.stops:
	case <-time.After(schedulerWaitTimeout):
		test.Fatal("scheduler timer stop not observed")
	}
}

func (t *fakeTimer) DrainResets() {
	for {
		select {
		case <-t.resets:
		default:
			return
		}
	}
}

func (t *fakeTimer) DrainStops() {
	for {
		select {
		case <-t.stops:
		default:
			return
		}
	}
}

func withFakeScheduler(
	t *testing.T,
	fn func(context.Context, *scheduler.Scheduler, *fakeTimer, time.Time),
) {
	t.Helper()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tc := newTestTimerConstructor()
	s := scheduler.New(
		slog.New(slog.DiscardHandler),
		func() time.Time { return now },
		tc.NewTimer,
	)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go s.Run(ctx)

	timer := tc.WaitTimer(t)
	timer.DrainResets()
	timer.DrainStops()
	fn(ctx, s, timer, now)
}

func newTestTimerConstructor() *testTimerConstructor {
	return &testTimerConstructor{
		created: make(chan *fakeTimer, 1),
	}
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{
		ch:     make(chan time.Time, 1),
		resets: make(chan time.Duration, 16),
		stops:  make(chan struct{}, 16),
	}
}

func drainTimeChan(ch <-chan time.Time) {
	select {
	case <-ch:
	default:
	}
}
