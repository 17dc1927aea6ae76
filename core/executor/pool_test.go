package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSingleWorkerPreservesOrder(t *testing.T) {
	p := NewPool(1)

	var mu sync.Mutex
	var order []int
	jobs := make([]Job, 20)
	for i := range jobs {
		i := i
		jobs[i] = func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}
	}

	require.NoError(t, p.Run(context.Background(), jobs))
	for i, v := range order {
		assert.Equal(t, i, v)
	}
	assert.Len(t, order, 20)
}

func TestConcurrencyIsBounded(t *testing.T) {
	p := NewPool(3)

	var inFlight, peak atomic.Int64
	jobs := make([]Job, 30)
	for i := range jobs {
		jobs[i] = func(context.Context) error {
			n := inFlight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		}
	}

	require.NoError(t, p.Run(context.Background(), jobs))
	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.Equal(t, int64(30), p.Stats().Completed)
}

func TestFailuresDoNotStopTheRun(t *testing.T) {
	p := NewPool(2)
	boom := errors.New("boom")

	jobs := []Job{
		func(context.Context) error { return nil },
		func(context.Context) error { return boom },
		func(context.Context) error { return nil },
	}

	var calls int
	p.OnProgress(func(pr Progress) {
		calls++
		assert.Equal(t, int64(3), pr.Total)
	})

	require.NoError(t, p.Run(context.Background(), jobs))

	s := p.Stats()
	assert.Equal(t, int64(2), s.Completed)
	assert.Equal(t, int64(1), s.Failed)
	assert.Equal(t, 3, calls)

	failures := p.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].Index)
	assert.ErrorIs(t, failures[0].Cause, boom)
}

func TestCancelledContextSkipsRemainingJobs(t *testing.T) {
	p := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ran atomic.Int64
	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = func(context.Context) error {
			if ran.Add(1) == 2 {
				cancel()
			}
			return nil
		}
	}

	err := p.Run(ctx, jobs)
	assert.ErrorIs(t, err, context.Canceled)

	s := p.Stats()
	assert.Equal(t, int64(2), ran.Load())
	assert.Equal(t, int64(8), s.Skipped)
}

func TestRunResetsBetweenPasses(t *testing.T) {
	p := NewPool(2)
	jobs := []Job{func(context.Context) error { return errors.New("x") }}

	require.NoError(t, p.Run(context.Background(), jobs))
	require.NoError(t, p.Run(context.Background(), jobs))

	assert.Equal(t, int64(1), p.Stats().Failed)
	assert.Len(t, p.Failures(), 1)
}
