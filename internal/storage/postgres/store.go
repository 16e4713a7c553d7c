// Package postgres implements storage.Store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/JonMunkholm/compatdb/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const tableName = "compatibility_records"

const schema = `
CREATE TABLE IF NOT EXISTS compatibility_records (
	id                   BIGSERIAL PRIMARY KEY,
	model_name           TEXT NOT NULL UNIQUE,
	compatible_models    TEXT NOT NULL DEFAULT '[]',
	is_vip               BOOLEAN NOT NULL DEFAULT FALSE,
	is_compatible        BOOLEAN NOT NULL DEFAULT FALSE,
	presentation_content TEXT,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectColumns = `id, model_name, compatible_models, is_vip, is_compatible,
	presentation_content, created_at, updated_at`

var copyColumns = []string{
	"model_name", "compatible_models", "is_vip", "is_compatible", "presentation_content",
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store is a PostgreSQL-backed catalog.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses cfg, connects and verifies the connection.
func Open(ctx context.Context, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns >= 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) FindAll(ctx context.Context) ([]catalog.Record, error) {
	return queryRecords(ctx, s.pool, "SELECT "+selectColumns+" FROM "+tableName+" ORDER BY id")
}

func (s *Store) FindByID(ctx context.Context, id int64) (catalog.Record, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM "+tableName+" WHERE id = $1", id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Record{}, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	return rec, err
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+tableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *Store) RandomSample(ctx context.Context, n int) ([]catalog.Record, error) {
	return queryRecords(ctx, s.pool,
		"SELECT "+selectColumns+" FROM "+tableName+" ORDER BY random() LIMIT $1", n)
}

func (s *Store) UpdatePresentationContent(ctx context.Context, id int64, content string) (catalog.Record, error) {
	row := s.pool.QueryRow(ctx,
		"UPDATE "+tableName+" SET presentation_content = $2, updated_at = now() WHERE id = $1 RETURNING "+selectColumns,
		id, content)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Record{}, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	return rec, err
}

// InTx runs fn inside a transaction. The table is locked in EXCLUSIVE mode
// so concurrent replaces queue behind each other while plain reads still
// see the last committed catalog.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "LOCK TABLE "+tableName+" IN EXCLUSIVE MODE"); err != nil {
		return fmt.Errorf("lock catalog: %w", err)
	}

	if err := fn(&replaceTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type replaceTx struct {
	tx pgx.Tx
}

func (r *replaceTx) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.tx.Exec(ctx, "DELETE FROM "+tableName)
	if err != nil {
		return 0, fmt.Errorf("delete catalog: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertAll loads records with the COPY protocol, then reads them back to
// pick up ids and timestamps. The table was emptied in the same transaction,
// so the read returns exactly the inserted rows.
func (r *replaceTx) InsertAll(ctx context.Context, records []catalog.Record) ([]catalog.Record, error) {
	if len(records) == 0 {
		return []catalog.Record{}, nil
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		models, err := storage.EncodeModels(rec.CompatibleModels)
		if err != nil {
			return nil, err
		}
		rows[i] = []any{
			rec.ModelName,
			models,
			rec.IsVIP,
			rec.IsCompatible,
			toPgText(rec.PresentationContent),
		}
	}

	n, err := r.tx.CopyFrom(ctx, pgx.Identifier{tableName}, copyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return nil, fmt.Errorf("insert catalog: %w", err)
	}
	if int(n) != len(records) {
		return nil, fmt.Errorf("insert catalog: copied %d of %d rows", n, len(records))
	}

	return queryRecords(ctx, r.tx, "SELECT "+selectColumns+" FROM "+tableName+" ORDER BY id")
}

func queryRecords(ctx context.Context, db DBTX, query string, args ...any) ([]catalog.Record, error) {
	rows, err := db.Query(ctx, query, args...)
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

func scanRecord(row pgx.Row) (catalog.Record, error) {
	var (
		rec     catalog.Record
		models  string
		content pgtype.Text
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
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Record{}, err
		}
		return catalog.Record{}, fmt.Errorf("scan record: %w", err)
	}

	rec.CompatibleModels, err = storage.DecodeModels(models)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	if content.Valid {
		rec.PresentationContent = content.String
	}
	return rec, nil
}

// toPgText maps an empty string to NULL.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
