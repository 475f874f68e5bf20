// Package scheduler runs interval and one-shot jobs for the engine:
// script-declared cron entries and any delayed work a capability method
// registers. Jobs are keyed by path so a reload replaces rather than
// duplicates them.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mvoevodskiy/botcms/pkg/log"
)

type (
	// Scheduler owns the job heap and serializes all mutations through
	// its run loop
	Scheduler struct {
		logger    *slog.Logger
		now       Clock
		makeTimer TimerConstructor
		jobs      chan jobReq
	}

	// JobFunc is invoked when a job's run time arrives. It is an alias
	// so callers can pass plain function literals across package
	// boundaries
	JobFunc = func(ctx context.Context) error

	jobReqOp uint8

	jobReq struct {
		op     jobReqOp
		job    *Job
		key    jobPath
		prefix jobPath
	}
)

const (
	jobReqSchedule jobReqOp = iota
	jobReqCancel
	jobReqCancelPrefix
)

// New creates a scheduler using the provided clock and timer constructor
func New(logger *slog.Logger, now Clock, makeTimer TimerConstructor) *Scheduler {
	return &Scheduler{
		logger:    logger,
		now:       now,
		makeTimer: makeTimer,
		jobs:      make(chan jobReq, 100),
	}
}

// Schedule enqueues a one-shot job to run at the requested time
func (s *Scheduler) Schedule(
	ctx context.Context, path []string, at time.Time, fn JobFunc,
) {
	s.submit(ctx, jobReq{
		op:  jobReqSchedule,
		job: &Job{Func: fn, At: at, Path: path},
	})
}

// ScheduleEvery enqueues a recurring job. The first run happens one
// interval from now and the job reschedules itself after each run
func (s *Scheduler) ScheduleEvery(
	ctx context.Context, path []string, every time.Duration, fn JobFunc,
) {
	if every <= 0 {
		return
	}
	s.submit(ctx, jobReq{
		op: jobReqSchedule,
		job: &Job{
			Func:  fn,
			At:    s.now().Add(every),
			Every: every,
			Path:  path,
		},
	})
}

// Cancel removes the job registered for the exact path
func (s *Scheduler) Cancel(ctx context.Context, path []string) {
	s.submit(ctx, jobReq{op: jobReqCancel, key: path})
}

// CancelPrefix removes all jobs under the provided path prefix
func (s *Scheduler) CancelPrefix(ctx context.Context, prefix []string) {
	s.submit(ctx, jobReq{op: jobReqCancelPrefix, prefix: prefix})
}

// Run processes scheduler requests until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	timer := s.makeTimer(0)
	var timerCh <-chan time.Time
	jobs := newJobHeap()

	resetTimer := func() {
		var next time.Time
		if j := jobs.peek(); j != nil {
			next = j.At
		}
		if next.IsZero() {
			timer.Stop()
			timerCh = nil
			return
		}
		timer.Reset(next.Sub(s.now()))
		timerCh = timer.Channel()
	}

	resetTimer()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case req := <-s.jobs:
			switch req.op {
			case jobReqSchedule:
				jobs.insert(req.job)
			case jobReqCancel:
				jobs.cancel(req.key)
			case jobReqCancelPrefix:
				jobs.cancelPrefix(req.prefix)
			}
			resetTimer()
		case <-timerCh:
			job := jobs.popJob()
			if job == nil {
				resetTimer()
				continue
			}
			if err := job.Func(ctx); err != nil {
				s.logger.Error("scheduled job failed", log.Error(err))
			}
			if job.Every > 0 {
				job.At = job.At.Add(job.Every)
				jobs.insert(job)
			}
			resetTimer()
		}
	}
}

func (s *Scheduler) submit(ctx context.Context, req jobReq) {
	select {
	case s.jobs <- req:
	case <-ctx.Done():
	}
}
