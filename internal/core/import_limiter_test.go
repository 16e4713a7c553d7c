package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportLimiter_Defaults(t *testing.T) {
	l := NewImportLimiter(0, 0)
	assert.Equal(t, DefaultMaxConcurrentImports, l.MaxConcurrent())
	assert.Equal(t, DefaultMaxWaitTime, l.maxWait)
	assert.Equal(t, ImportLimiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}, l.Status())
}

func TestImportLimiter_AcquireRelease(t *testing.T) {
	l := NewImportLimiter(2, time.Second)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, ImportLimiterStatus{Active: 2, Available: 0, MaxConcurrent: 2}, l.Status())
	assert.False(t, l.TryAcquire(), "no slot should be free")

	l.Release()
	assert.Equal(t, 1, l.ActiveCount())
	assert.True(t, l.TryAcquire())
	assert.Equal(t, 0, l.Available())

	l.Release()
	l.Release()
	assert.Equal(t, ImportLimiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}, l.Status())
}

func TestImportLimiter_WaitWindowExpires(t *testing.T) {
	l := NewImportLimiter(1, 20*time.Millisecond)
	require.True(t, l.TryAcquire())
	defer l.Release()

	err := l.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrTooManyImports)
	assert.Equal(t, 1, l.ActiveCount(), "a rejected waiter must not hold a slot")
}

func TestImportLimiter_CallerCancelIsNotTooMany(t *testing.T) {
	l := NewImportLimiter(1, time.Minute)
	require.True(t, l.TryAcquire())
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrTooManyImports)

	canceled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	err = l.Acquire(canceled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportLimiter_WaiterGetsReleasedSlot(t *testing.T) {
	l := NewImportLimiter(1, time.Second)
	require.True(t, l.TryAcquire())

	done := make(chan error, 1)
	go func() { done <- l.Acquire(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	l.Release()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter never got the released slot")
	}
	assert.Equal(t, 1, l.ActiveCount())
	l.Release()
}

func TestImportLimiter_WaitForDrain(t *testing.T) {
	l := NewImportLimiter(2, time.Second)
	require.NoError(t, l.WaitForDrain(context.Background()), "idle limiter drains at once")

	require.True(t, l.TryAcquire())
	require.True(t, l.TryAcquire())

	drained := make(chan error, 1)
	go func() { drained <- l.WaitForDrain(context.Background()) }()

	l.Release()
	select {
	case <-drained:
		t.Fatal("drained while an import still held a slot")
	case <-time.After(20 * time.Millisecond):
	}

	l.Release()
	select {
	case err := <-drained:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("drain did not finish after the last release")
	}

	// Drain hands every slot back.
	assert.Equal(t, 2, l.Available())
	assert.True(t, l.TryAcquire())
	l.Release()
}

func TestImportLimiter_WaitForDrainTimeout(t *testing.T) {
	l := NewImportLimiter(1, time.Second)
	require.True(t, l.TryAcquire())
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, l.WaitForDrain(ctx), context.DeadlineExceeded)
	assert.Equal(t, 1, l.ActiveCount())
}
