// Package sqlite implements storage.Store on SQLite for single-node
// deployments and tests.
//
// The store holds one connection, so every query is serialized. Searches
// are served from the in-memory index and only touch the database when the
// index is rebuilt, so concurrent searches do not queue here. A rebuild
// waits behind a running catalog replace and vice versa. Deployments that
// need parallel readers should use the postgres dialect.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/JonMunkholm/compatdb/internal/storage"
	_ "github.com/mattn/go-sqlite3"
)

const tableName = "compatibility_records"

const schema = `
CREATE TABLE IF NOT EXISTS compatibility_records (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	model_name           TEXT NOT NULL UNIQUE,
	compatible_models    TEXT NOT NULL DEFAULT '[]',
	is_vip               BOOLEAN NOT NULL DEFAULT 0,
	is_compatible        BOOLEAN NOT NULL DEFAULT 0,
	presentation_content TEXT,
	created_at           TIMESTAMP NOT NULL,
	updated_at           TIMESTAMP NOT NULL
)`

const selectColumns = `id, model_name, compatible_models, is_vip, is_compatible,
	presentation_content, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a SQLite-backed catalog.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at path. Writers take the lock when their
// transaction begins (_txlock=immediate), which serializes catalog replaces.
// A single connection is used so ":memory:" databases are shared; reads and
// writes queue on it in arrival order.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_txlock=immediate&_foreign_keys=on&_busy_timeout=5000"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.db.Close()
}

func (s *Store) FindAll(ctx context.Context) ([]catalog.Record, error) {
	return queryRecords(ctx, s.db, "SELECT "+selectColumns+" FROM "+tableName+" ORDER BY id")
}

func (s *Store) FindByID(ctx context.Context, id int64) (catalog.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM "+tableName+" WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Record{}, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	return rec, err
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *Store) RandomSample(ctx context.Context, n int) ([]catalog.Record, error) {
	return queryRecords(ctx, s.db,
		"SELECT "+selectColumns+" FROM "+tableName+" ORDER BY RANDOM() LIMIT ?", n)
}

func (s *Store) UpdatePresentationContent(ctx context.Context, id int64, content string) (catalog.Record, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE "+tableName+" SET presentation_content = ?, updated_at = ? WHERE id = ?",
		content, s.now().UTC(), id)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("update presentation content: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return catalog.Record{}, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	return s.FindByID(ctx, id)
}

func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&replaceTx{tx: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type replaceTx struct {
	tx  *sql.Tx
	now func() time.Time
}

func (r *replaceTx) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.tx.ExecContext(ctx, "DELETE FROM "+tableName)
	if err != nil {
		return 0, fmt.Errorf("delete catalog: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *replaceTx) InsertAll(ctx context.Context, records []catalog.Record) ([]catalog.Record, error) {
	stmt, err := r.tx.PrepareContext(ctx,
		"INSERT INTO "+tableName+" (model_name, compatible_models, is_vip, is_compatible, presentation_content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := r.now().UTC()
	inserted := make([]catalog.Record, 0, len(records))
	for _, rec := range records {
		models, err := storage.EncodeModels(rec.CompatibleModels)
		if err != nil {
			return nil, err
		}

		res, err := stmt.ExecContext(ctx, rec.ModelName, models, rec.IsVIP, rec.IsCompatible,
			nullString(rec.PresentationContent), now, now)
		if err != nil {
			return nil, fmt.Errorf("insert %q: %w", rec.ModelName, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert %q: %w", rec.ModelName, err)
		}

		rec.ID = id
		rec.CreatedAt = now
		rec.UpdatedAt = now
		if rec.CompatibleModels == nil {
			rec.CompatibleModels = []string{}
		}
		inserted = append(inserted, rec)
	}
	return inserted, nil
}

func queryRecords(ctx context.Context, q queryer, query string, args ...any) ([]catalog.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []catalog.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (catalog.Record, error) {
	var (
		rec     catalog.Record
		models  string
		content sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&rec.ModelName,
		&models,
		&rec.IsVIP,
		&rec.IsCompatible,
		&content,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Record{}, err
		}
		return catalog.Record{}, fmt.Errorf("scan record: %w", err)
	}

	rec.CompatibleModels, err = storage.DecodeModels(models)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	rec.PresentationContent = content.String
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
