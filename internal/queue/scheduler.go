package queue

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultPollInterval = 2 * time.Second

// Scheduler owns a worker pool that polls Claim on a ticker and on a
// buffered wakeup channel signaled by Notify, avoiding a tight busy-poll
// loop while still reacting to Enqueue promptly (spec.md §4.8).
type Scheduler struct {
	q        *Queue
	handler  Handler
	workers  int
	poll     time.Duration
	wakeup   chan struct{}
	log      *zap.Logger
}

// NewScheduler builds a Scheduler with W = min(NumCPU, 10) workers by
// default when workers <= 0.
func NewScheduler(q *Queue, handler Handler, workers int, log *zap.Logger) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 10 {
			workers = 10
		}
		if workers < 1 {
			workers = 1
		}
	}
	return &Scheduler{
		q:       q,
		handler: handler,
		workers: workers,
		poll:    defaultPollInterval,
		wakeup:  make(chan struct{}, 1),
		log:     log,
	}
}

// Notify wakes a worker early instead of waiting for the next poll tick.
func (s *Scheduler) Notify() {
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

// Run starts the worker pool and blocks until ctx is cancelled, then waits
// for in-flight workers to return.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			s.workerLoop(ctx)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) workerLoop(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.drain(ctx)
		case <-s.wakeup:
			s.drain(ctx)
		}
	}
}

// drain claims and processes jobs until none remain eligible or ctx ends.
func (s *Scheduler) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, ok, err := s.q.Claim(ctx)
		if err != nil {
			if s.log != nil {
				s.log.Error("job claim failed", zap.Error(err))
			}
			return
		}
		if !ok {
			return
		}

		cancelled := s.q.CancelFunc(job.JobID)
		result, herr := s.handler(ctx, job, cancelled)
		s.q.Release(job.JobID)
		if herr != nil {
			if err := s.q.Fail(ctx, job, herr); err != nil && s.log != nil {
				s.log.Error("job fail-transition failed", zap.Error(err))
			}
			continue
		}
		payload, merr := marshalResult(result)
		if merr != nil {
			if s.log != nil {
				s.log.Error("job result marshal failed", zap.Error(merr))
			}
			continue
		}
		if err := s.q.Complete(ctx, job.JobID, payload); err != nil && s.log != nil {
			s.log.Error("job complete-transition failed", zap.Error(err))
		}
	}
}
