package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls   atomic.Int32
	records atomic.Pointer[[]catalog.Record]
	err     error
}

func (l *countingLoader) set(recs []catalog.Record) { l.records.Store(&recs) }

func (l *countingLoader) load(context.Context) ([]catalog.Record, error) {
	l.calls.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	return *l.records.Load(), nil
}

func TestHolder_CachesUntilInvalidated(t *testing.T) {
	l := &countingLoader{}
	l.set(records("A"))
	h := NewHolder(l.load, Options{}, 0)
	ctx := context.Background()

	ix, err := h.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())

	_, err = h.Index(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, l.calls.Load())
	assert.False(t, h.BuiltAt().IsZero())

	l.set(records("A", "B"))
	h.Invalidate()
	assert.True(t, h.BuiltAt().IsZero())

	ix, err = h.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Len())
	assert.EqualValues(t, 2, l.calls.Load())
}

func TestHolder_Rebuild(t *testing.T) {
	l := &countingLoader{}
	l.set(records("A"))
	h := NewHolder(l.load, Options{}, 0)

	_, err := h.Index(context.Background())
	require.NoError(t, err)

	l.set(records("A", "B", "C"))
	ix, err := h.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())
	assert.EqualValues(t, 2, l.calls.Load())
}

func TestHolder_ExpiresAfterMaxAge(t *testing.T) {
	l := &countingLoader{}
	l.set(records("A"))
	h := NewHolder(l.load, Options{}, time.Minute)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	_, err := h.Index(context.Background())
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = h.Index(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, l.calls.Load())

	now = now.Add(time.Minute)
	_, err = h.Index(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, l.calls.Load())
}

func TestHolder_LoadErrorIsNotCached(t *testing.T) {
	l := &countingLoader{err: errors.New("db down")}
	h := NewHolder(l.load, Options{}, 0)

	_, err := h.Index(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")

	l.err = nil
	l.set(records("A"))
	ix, err := h.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())
}

func TestHolder_ChangeDuringLoadIsNotCached(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	load := func(context.Context) ([]catalog.Record, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return records("old"), nil
		}
		return records("new", "newer"), nil
	}
	h := NewHolder(load, Options{}, 0)

	done := make(chan *Index)
	go func() {
		ix, err := h.Index(context.Background())
		assert.NoError(t, err)
		done <- ix
	}()

	<-entered
	h.Invalidate()
	close(release)

	// The in-flight caller still sees a whole snapshot.
	old := <-done
	assert.Equal(t, []string{"old"}, names(old.Search("", 0, nil)))

	ix, err := h.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "newer"}, names(ix.Search("", 0, nil)))
	assert.EqualValues(t, 2, calls.Load())
}

func TestHolder_CancelledCallerDoesNotFailLoad(t *testing.T) {
	l := &countingLoader{}
	l.set(records("A"))
	h := NewHolder(func(ctx context.Context) ([]catalog.Record, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return l.load(ctx)
	}, Options{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ix, err := h.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())
}
