package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/JonMunkholm/compatdb/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to TEST_DATABASE_URL and empties the catalog table.
// Tests are skipped when it is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, PoolConfig{URL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.EnsureSchema(ctx))

	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		_, err := tx.DeleteAll(ctx)
		return err
	}))
	return s
}

func TestStore_ReplaceAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var inserted []catalog.Record
	err := s.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.DeleteAll(ctx); err != nil {
			return err
		}
		var err error
		inserted, err = tx.InsertAll(ctx, []catalog.Record{
			{ModelName: "iPhone 11", CompatibleModels: []string{"iPhone XR"}, IsCompatible: true},
			{ModelName: "Galaxy A01", IsVIP: true},
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.Equal(t, "iPhone 11", inserted[0].ModelName)
	assert.Equal(t, []string{}, inserted[1].CompatibleModels)

	got, err := s.FindByID(ctx, inserted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"iPhone XR"}, got.CompatibleModels)

	updated, err := s.UpdatePresentationContent(ctx, inserted[1].ID, "<p>vip</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>vip</p>", updated.PresentationContent)

	_, err = s.FindByID(ctx, inserted[1].ID+1000)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ReplaceRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InTx(ctx, func(tx storage.Tx) error {
		_, err := tx.InsertAll(ctx, []catalog.Record{{ModelName: "A"}})
		return err
	}))

	err := s.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.DeleteAll(ctx); err != nil {
			return err
		}
		_, err := tx.InsertAll(ctx, []catalog.Record{{ModelName: "B"}, {ModelName: "B"}})
		return err
	})
	require.Error(t, err)

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "A", all[0].ModelName)
}
