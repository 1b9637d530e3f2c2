package web

// limiter.go bounds how many match runs are processed at once.
//
// Parsing workbooks and joining tables is memory-heavy, so runs beyond the
// limit wait up to maxWait for a slot and then fail with ErrTooManyRuns.
// WaitForDrain lets shutdown finish the runs already in progress. A RunSlot
// keeps its slot until handed-off work returns, so a request that times out
// does not free capacity while its run is still computing.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyRuns is returned when every run slot stays occupied for the
// whole wait. Clients should retry after a short delay.
var ErrTooManyRuns = errors.New("too many runs in progress, please try again later")

const (
	defaultMaxConcurrentRuns = 4
	defaultMaxWait           = 30 * time.Second
)

// RunLimiter controls concurrent run processing.
type RunLimiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64
}

// NewRunLimiter allows at most maxConcurrent simultaneous runs.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	return &RunLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire waits for a run slot. The caller must call Release when the run
// completes.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		// Distinguish the caller giving up from the wait expiring.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRuns
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *RunLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *RunLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// RunSlot is a slot taken from a RunLimiter. Work started with Go holds the
// slot until it returns, even when the caller releases first.
type RunSlot struct {
	limiter *RunLimiter
	holds   atomic.Int32
}

// Slot waits for a run slot like Acquire.
func (l *RunLimiter) Slot(ctx context.Context) (*RunSlot, error) {
	if err := l.Acquire(ctx); err != nil {
		return nil, err
	}
	s := &RunSlot{limiter: l}
	s.holds.Store(1)
	return s, nil
}

// Go runs fn in a new goroutine that holds the slot until fn returns.
func (s *RunSlot) Go(fn func()) {
	s.holds.Add(1)
	go func() {
		defer s.Release()
		fn()
	}()
}

// Release drops one hold. The limiter slot is returned with the last one.
func (s *RunSlot) Release() {
	if s.holds.Add(-1) == 0 {
		s.limiter.Release()
	}
}

// ActiveCount returns the number of runs in progress.
func (l *RunLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// LimiterStatus is a snapshot of the limiter for health checks.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

func (l *RunLimiter) Status() LimiterStatus {
	active := l.ActiveCount()
	return LimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}

// WaitForDrain blocks until every run has finished or ctx is done.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, int64(l.max)); err != nil {
		return err
	}
	l.sem.Release(int64(l.max))
	return nil
}
