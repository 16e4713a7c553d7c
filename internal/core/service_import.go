package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/JonMunkholm/compatdb/internal/logging"
	"github.com/JonMunkholm/compatdb/internal/storage"
	"github.com/google/uuid"
)

// ImportPreview summarizes what committing a file would store.
type ImportPreview struct {
	Records           []catalog.Record `json:"records"`    // First PreviewSize accepted records
	TotalCount        int              `json:"totalCount"` // Accepted records
	TotalProcessed    int              `json:"totalProcessed"`
	Rejected          int              `json:"rejected"`
	DuplicatesSkipped int              `json:"duplicatesSkipped"`
}

// ImportResult reports a committed catalog replace.
type ImportResult struct {
	ImportID          string           `json:"importId"`
	TotalProcessed    int              `json:"totalProcessed"`
	TotalInserted     int              `json:"totalInserted"`
	DuplicatesSkipped int              `json:"duplicatesSkipped"`
	Rejected          int              `json:"rejected"`
	InsertedPreview   []catalog.Record `json:"insertedPreview"` // First InsertedPreviewSize stored records
	Deleted           int64            `json:"deleted"`         // Records of the previous catalog
	Duration          time.Duration    `json:"-"`
	DurationMs        int64            `json:"durationMs"`
}

// PreviewImport parses the file at path without touching the catalog.
func (s *Service) PreviewImport(ctx context.Context, path string) (*ImportPreview, error) {
	if err := s.imports.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.imports.Release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ImportTimeout)
	defer cancel()

	batch, err := readImport(ctx, path, catalog.Ingest)
	if err != nil {
		return nil, fmt.Errorf("preview import: %w", err)
	}

	logging.FromContext(ctx).Info("import previewed",
		"path", path,
		"accepted", batch.Accepted(),
		"rejected", batch.Rejected,
		"duplicates", batch.DuplicatesSkipped,
	)

	return &ImportPreview{
		Records:           head(batch.Records, PreviewSize),
		TotalCount:        batch.Accepted(),
		TotalProcessed:    batch.TotalProcessed,
		Rejected:          batch.Rejected,
		DuplicatesSkipped: batch.DuplicatesSkipped,
	}, nil
}

// CommitImport replaces the whole catalog with the records parsed from the
// file at path. The delete and the inserts form one transaction: on any
// failure the previous catalog is left untouched and an *IngestionError is
// returned. The caller owns the file.
func (s *Service) CommitImport(ctx context.Context, path string) (*ImportResult, error) {
	caller, err := requireCaller(ctx, "commit import")
	if err != nil {
		return nil, err
	}

	if err := s.imports.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.imports.Release()

	start := time.Now()
	importID := uuid.NewString()
	log := logging.WithFields(ctx,
		"import_id", importID,
		"path", path,
		"caller", caller.ID,
	)
	log.Info("import started")

	parseCtx, cancel := context.WithTimeout(ctx, s.cfg.ImportTimeout)
	defer cancel()

	batch, err := readImport(parseCtx, path, catalog.Validate)
	if err != nil {
		ierr := newIngestionError(batch, err)
		log.Warn("import rejected", "reason", ierr.Reason, "error", err)
		return nil, ierr
	}

	// Parsing honours cancellation; the replace itself runs to completion so
	// a disconnect cannot leave the caller unsure what was stored.
	txCtx, txCancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ImportTimeout)
	defer txCancel()

	var (
		deleted  int64
		inserted []catalog.Record
	)
	err = s.store.InTx(txCtx, func(tx storage.Tx) error {
		var err error
		if deleted, err = tx.DeleteAll(txCtx); err != nil {
			return err
		}
		inserted, err = tx.InsertAll(txCtx, batch.Records)
		return err
	})
	if err != nil {
		ierr := &IngestionError{
			Reason:            "replace catalog",
			TotalProcessed:    batch.TotalProcessed,
			Rejected:          batch.Rejected,
			DuplicatesSkipped: batch.DuplicatesSkipped,
			Err:               err,
		}
		log.Error("import rolled back", "error", err)
		return nil, ierr
	}

	s.index.Invalidate()

	elapsed := time.Since(start)
	result := &ImportResult{
		ImportID:          importID,
		TotalProcessed:    batch.TotalProcessed,
		TotalInserted:     len(inserted),
		DuplicatesSkipped: batch.DuplicatesSkipped,
		Rejected:          batch.Rejected,
		InsertedPreview:   head(inserted, InsertedPreviewSize),
		Deleted:           deleted,
		Duration:          elapsed,
		DurationMs:        elapsed.Milliseconds(),
	}

	log.Info("import committed",
		"processed", result.TotalProcessed,
		"inserted", result.TotalInserted,
		"rejected", result.Rejected,
		"duplicates", result.DuplicatesSkipped,
		"deleted", deleted,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

func readImport(ctx context.Context, path string, run func(context.Context, io.Reader) (*catalog.Batch, error)) (*catalog.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return &catalog.Batch{}, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	return run(ctx, f)
}

func newIngestionError(batch *catalog.Batch, err error) *IngestionError {
	reason := "read import file"
	switch {
	case errors.Is(err, catalog.ErrNoValidRecords):
		reason = "no valid records"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = "cancelled"
	}

	ierr := &IngestionError{Reason: reason, Err: err}
	if batch != nil {
		ierr.TotalProcessed = batch.TotalProcessed
		ierr.Rejected = batch.Rejected
		ierr.DuplicatesSkipped = batch.DuplicatesSkipped
	}
	return ierr
}

func head[T any](s []T, n int) []T {
	out := make([]T, min(n, len(s)))
	copy(out, s)
	return out
}
