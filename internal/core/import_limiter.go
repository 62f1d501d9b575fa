package core

// import_limiter.go caps how many imports run at once.
//
// Imports hold a database transaction for the whole batch, so the limiter
// keeps a burst of uploads from exhausting the pool. Waiters give up after
// maxWait with ErrTooManyImports. WaitForDrain lets shutdown finish
// in-flight imports.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxConcurrentImports = 5
	DefaultImportMaxWait        = 30 * time.Second
)

// ImportLimiter is a weighted semaphore with a bounded wait.
type ImportLimiter struct {
	sem     *semaphore.Weighted
	max     int64
	maxWait time.Duration
	active  atomic.Int64
	drained chan struct{}
}

// NewImportLimiter allows at most maxConcurrent imports. Non-positive
// arguments fall back to the defaults.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultImportMaxWait
	}
	return &ImportLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		maxWait: maxWait,
		drained: make(chan struct{}, 1),
	}
}

// Acquire blocks until a slot frees up. It returns ErrTooManyImports when
// maxWait elapses first, or ctx.Err() if ctx ends. Call Release when done.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTooManyImports
		}
		return err
	}
	l.active.Add(1)
	return nil
}

// Release frees a slot taken by Acquire.
func (l *ImportLimiter) Release() {
	if l.active.Add(-1) == 0 {
		select {
		case l.drained <- struct{}{}:
		default:
		}
	}
	l.sem.Release(1)
}

// ActiveCount returns the number of imports holding a slot.
func (l *ImportLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *ImportLimiter) MaxConcurrent() int {
	return int(l.max)
}

// WaitForDrain blocks until no import holds a slot or ctx ends.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	for l.active.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.drained:
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}

// ImportLimiterStatus is a snapshot for health output.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

func (l *ImportLimiter) Status() ImportLimiterStatus {
	active := l.ActiveCount()
	return ImportLimiterStatus{
		Active:        active,
		Available:     int(l.max) - active,
		MaxConcurrent: int(l.max),
	}
}
