package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/compatdb/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	store, err := Open(ctx, config.DatabaseConfig{Dialect: "sqlite3", URL: path})
	require.NoError(t, err)
	defer store.Close()

	// Schema is in place, so an empty catalog reads cleanly.
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpen_UnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Dialect: "mysql", URL: "x"})
	assert.ErrorContains(t, err, `unknown database dialect "mysql"`)
}
