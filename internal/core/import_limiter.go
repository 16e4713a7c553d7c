package core

// import_limiter.go bounds how many imports are parsed and committed at the
// same time. Waiters give up after maxWait with ErrTooManyImports.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyImports is returned when every import slot stays busy for the
// whole wait window. Clients should retry after a short delay.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

// DefaultMaxConcurrentImports is the default limit for parallel imports.
const DefaultMaxConcurrentImports = 2

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ImportLimiter is a weighted semaphore with a bounded wait.
type ImportLimiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64
}

// NewImportLimiter allows at most maxConcurrent simultaneous imports.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ImportLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. The caller MUST call Release after a nil return.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		// Distinguish the caller going away from the wait window expiring.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot only if one is free right now.
func (l *ImportLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *ImportLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of imports holding a slot.
func (l *ImportLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the configured limit.
func (l *ImportLimiter) MaxConcurrent() int {
	return l.max
}

// Available returns the number of free slots.
func (l *ImportLimiter) Available() int {
	return l.max - l.ActiveCount()
}

// WaitForDrain blocks until no import holds a slot or ctx ends. Used during
// graceful shutdown.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, int64(l.max)); err != nil {
		return err
	}
	l.sem.Release(int64(l.max))
	return nil
}

// ImportLimiterStatus is a snapshot of the limiter for health output.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	active := l.ActiveCount()
	return ImportLimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}
