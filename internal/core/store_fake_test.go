package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/JonMunkholm/compatdb/internal/storage"
)

// memStore is an in-memory storage.Store with transactional rollback and
// failure injection.
type memStore struct {
	mu      sync.Mutex
	records []catalog.Record
	nextID  int64

	failInsertAfter int // > 0 fails InsertAll after this many rows
	findAllCalls    int
}

func newMemStore(records ...catalog.Record) *memStore {
	s := &memStore{nextID: 1}
	for _, r := range records {
		r.ID = s.nextID
		s.nextID++
		s.records = append(s.records, r)
	}
	return s
}

func (s *memStore) snapshot() []catalog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *memStore) FindAll(context.Context) ([]catalog.Record, error) {
	s.mu.Lock()
	s.findAllCalls++
	s.mu.Unlock()
	return s.snapshot(), nil
}

func (s *memStore) FindByID(_ context.Context, id int64) (catalog.Record, error) {
	for _, r := range s.snapshot() {
		if r.ID == id {
			return r, nil
		}
	}
	return catalog.Record{}, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
}

func (s *memStore) Count(context.Context) (int64, error) {
	return int64(len(s.snapshot())), nil
}

func (s *memStore) RandomSample(_ context.Context, n int) ([]catalog.Record, error) {
	all := s.snapshot()
	return all[:min(n, len(all))], nil
}

func (s *memStore) UpdatePresentationContent(_ context.Context, id int64, content string) (catalog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].PresentationContent = content
			return s.records[i], nil
		}
	}
	return catalog.Record{}, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
}

func (s *memStore) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := append([]catalog.Record(nil), s.records...)
	savedID := s.nextID
	if err := fn(&memTx{s: s}); err != nil {
		s.records, s.nextID = saved, savedID
		return err
	}
	return nil
}

func (s *memStore) Ping(context.Context) error         { return nil }
func (s *memStore) EnsureSchema(context.Context) error { return nil }
func (s *memStore) Close()                             {}

// memTx runs with memStore.mu held.
type memTx struct {
	s *memStore
}

func (t *memTx) DeleteAll(context.Context) (int64, error) {
	n := int64(len(t.s.records))
	t.s.records = nil
	return n, nil
}

func (t *memTx) InsertAll(_ context.Context, records []catalog.Record) ([]catalog.Record, error) {
	now := time.Now().UTC()
	out := make([]catalog.Record, 0, len(records))
	for i, r := range records {
		if t.s.failInsertAfter > 0 && i == t.s.failInsertAfter {
			return nil, errors.New("insert: connection reset by peer")
		}
		for _, existing := range t.s.records {
			if existing.ModelName == r.ModelName {
				return nil, fmt.Errorf("insert %q: UNIQUE constraint failed", r.ModelName)
			}
		}
		r.ID = t.s.nextID
		t.s.nextID++
		r.CreatedAt, r.UpdatedAt = now, now
		t.s.records = append(t.s.records, r)
		out = append(out, r)
	}
	return out, nil
}

func writeImport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func authed() context.Context {
	return WithCaller(context.Background(), Caller{ID: "test"})
}
