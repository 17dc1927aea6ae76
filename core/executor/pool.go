// Package executor runs independent jobs on a bounded worker pool.
// Job failures are recorded, never fatal; only context cancellation stops
// a run early.
package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job processes a single item.
type Job func(ctx context.Context) error

// Stats tracks execution statistics.
type Stats struct {
	Total           int64
	Completed       int64
	Failed          int64
	Skipped         int64
	StartTime       time.Time
	EndTime         time.Time
	AverageDuration time.Duration
}

// Failure records one job error.
type Failure struct {
	Index    int
	Cause    error
	Duration time.Duration
}

// Progress is a live snapshot passed to the progress callback.
type Progress struct {
	Total     int64
	Completed int64
	Failed    int64
	Percent   float64
	ETA       time.Duration
}

// ProgressFunc is called after every finished job. Calls are serialized.
type ProgressFunc func(Progress)

// Pool executes jobs with at most Workers in flight. With one worker jobs
// run in submission order.
type Pool struct {
	workers  int
	progress ProgressFunc

	total     atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64

	mu        sync.Mutex
	failures  []Failure
	durations time.Duration
	start     time.Time
	end       time.Time
}

// NewPool creates a pool. workers <= 0 means one worker.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int {
	return p.workers
}

// OnProgress sets the progress callback.
func (p *Pool) OnProgress(fn ProgressFunc) {
	p.progress = fn
}

// Run executes every job and waits. Jobs not started before ctx is
// cancelled are counted as skipped and ctx.Err() is returned.
func (p *Pool) Run(ctx context.Context, jobs []Job) error {
	p.total.Store(int64(len(jobs)))
	p.completed.Store(0)
	p.failed.Store(0)
	p.skipped.Store(0)
	p.mu.Lock()
	p.start = time.Now()
	p.failures = nil
	p.durations = 0
	p.mu.Unlock()

	g := new(errgroup.Group)
	g.SetLimit(p.workers)

	for i, job := range jobs {
		if ctx.Err() != nil {
			p.skipped.Add(int64(len(jobs) - i))
			break
		}
		i, job := i, job
		g.Go(func() error {
			if ctx.Err() != nil {
				p.skipped.Add(1)
				return nil
			}
			p.runOne(ctx, i, job)
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	p.end = time.Now()
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Pool) runOne(ctx context.Context, index int, job Job) {
	start := time.Now()
	err := job(ctx)
	d := time.Since(start)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.durations += d
	if err != nil {
		p.failed.Add(1)
		p.failures = append(p.failures, Failure{Index: index, Cause: err, Duration: d})
	} else {
		p.completed.Add(1)
	}
	if p.progress != nil {
		p.progress(p.snapshot())
	}
}

// snapshot requires p.mu.
func (p *Pool) snapshot() Progress {
	pr := Progress{
		Total:     p.total.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
	done := pr.Completed + pr.Failed
	if pr.Total > 0 {
		pr.Percent = float64(done) / float64(pr.Total) * 100
	}
	if done > 0 {
		elapsed := time.Since(p.start)
		pr.ETA = elapsed / time.Duration(done) * time.Duration(pr.Total-done)
	}
	return pr
}

// Stats returns execution statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Total:     p.total.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Skipped:   p.skipped.Load(),
		StartTime: p.start,
		EndTime:   p.end,
	}
	if n := s.Completed + s.Failed; n > 0 {
		s.AverageDuration = p.durations / time.Duration(n)
	}
	return s
}

// Failures returns all recorded job errors.
func (p *Pool) Failures() []Failure {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Failure(nil), p.failures...)
}
