// Package storage defines the persistence boundary of the compatibility
// catalog. Dialect adapters live in the postgres and sqlite subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/compatdb/internal/catalog"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Dialect selects the storage adapter. It is resolved once from
// configuration at startup.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect validates a configured dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case DialectPostgres, DialectSQLite:
		return d, nil
	case "postgresql", "pg":
		return DialectPostgres, nil
	case "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unknown database dialect %q (want postgres or sqlite)", s)
	}
}

// Store is the catalog persistence collaborator.
type Store interface {
	// FindAll returns every record ordered by id (catalog order).
	FindAll(ctx context.Context) ([]catalog.Record, error)

	// FindByID returns ErrNotFound if the id is absent.
	FindByID(ctx context.Context, id int64) (catalog.Record, error)

	Count(ctx context.Context) (int64, error)

	// RandomSample returns up to n records in a store-side random order.
	RandomSample(ctx context.Context, n int) ([]catalog.Record, error)

	// UpdatePresentationContent patches one record and returns it.
	UpdatePresentationContent(ctx context.Context, id int64, content string) (catalog.Record, error)

	// InTx runs fn in one transaction. Replace transactions are serialized
	// by the store. If fn returns an error everything fn did is rolled back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
	Close()
}

// Tx is the write side of a catalog replace.
type Tx interface {
	// DeleteAll removes every record and returns how many were deleted.
	DeleteAll(ctx context.Context) (int64, error)

	// InsertAll inserts records in order and returns them with ids and
	// timestamps assigned.
	InsertAll(ctx context.Context, records []catalog.Record) ([]catalog.Record, error)
}
