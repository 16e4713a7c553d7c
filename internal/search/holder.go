package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"golang.org/x/sync/singleflight"
)

// Loader returns the current catalog snapshot in catalog order.
type Loader func(ctx context.Context) ([]catalog.Record, error)

// Holder owns the index for the live catalog. Each caller gets a whole
// snapshot: either the one built before a catalog change or one built after
// it, never a mix. Concurrent rebuilds of the same generation are coalesced.
type Holder struct {
	load   Loader
	opts   Options
	maxAge time.Duration
	now    func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	gen     uint64
	current *snapshot
}

type snapshot struct {
	index   *Index
	gen     uint64
	builtAt time.Time
}

// NewHolder creates a holder. A positive maxAge forces a rebuild of
// snapshots older than that on the next access.
func NewHolder(load Loader, opts Options, maxAge time.Duration) *Holder {
	return &Holder{
		load:   load,
		opts:   opts,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Index returns the current snapshot, building it if missing, stale or
// invalidated.
func (h *Holder) Index(ctx context.Context) (*Index, error) {
	h.mu.RLock()
	snap, gen := h.current, h.gen
	h.mu.RUnlock()

	if snap != nil && snap.gen == gen && !h.expired(snap) {
		return snap.index, nil
	}
	return h.build(ctx, gen)
}

// Invalidate drops the current snapshot. Call it after the catalog changes.
func (h *Holder) Invalidate() {
	h.mu.Lock()
	h.gen++
	h.current = nil
	h.mu.Unlock()
}

// Rebuild invalidates and immediately builds a fresh snapshot.
func (h *Holder) Rebuild(ctx context.Context) (*Index, error) {
	h.mu.Lock()
	h.gen++
	h.current = nil
	gen := h.gen
	h.mu.Unlock()

	return h.build(ctx, gen)
}

// BuiltAt returns when the cached snapshot was built, or the zero time.
func (h *Holder) BuiltAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return time.Time{}
	}
	return h.current.builtAt
}

func (h *Holder) expired(snap *snapshot) bool {
	return h.maxAge > 0 && h.now().Sub(snap.builtAt) >= h.maxAge
}

func (h *Holder) build(ctx context.Context, gen uint64) (*Index, error) {
	// The load is shared by every waiter, so one caller going away must not
	// fail the others.
	loadCtx := context.WithoutCancel(ctx)

	v, err, _ := h.group.Do(fmt.Sprintf("gen-%d", gen), func() (any, error) {
		start := h.now()
		records, err := h.load(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("load catalog snapshot: %w", err)
		}
		ix := New(records, h.opts)

		h.mu.Lock()
		// Only cache if no catalog change happened while loading.
		if h.gen == gen {
			h.current = &snapshot{index: ix, gen: gen, builtAt: h.now()}
		}
		h.mu.Unlock()

		slog.Debug("search index built",
			"records", ix.Len(),
			"generation", gen,
			"duration_ms", h.now().Sub(start).Milliseconds(),
		)
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}
