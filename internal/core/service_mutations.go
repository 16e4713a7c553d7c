package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/JonMunkholm/compatdb/internal/logging"
)

// MaxPresentationContentBytes bounds stored presentation HTML.
const MaxPresentationContentBytes = 64 << 10

// GetRecord returns the record with the given id.
func (s *Service) GetRecord(ctx context.Context, id int64) (catalog.Record, error) {
	if id <= 0 {
		return catalog.Record{}, invalidInput("record id must be positive, got %d", id)
	}
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// UpdatePresentationContent replaces the presentation HTML of one record.
// Empty or whitespace-only content is rejected with ErrInvalidInput.
func (s *Service) UpdatePresentationContent(ctx context.Context, id int64, content string) (catalog.Record, error) {
	caller, err := requireCaller(ctx, "update presentation content")
	if err != nil {
		return catalog.Record{}, err
	}
	if id <= 0 {
		return catalog.Record{}, invalidInput("record id must be positive, got %d", id)
	}
	if strings.TrimSpace(content) == "" {
		return catalog.Record{}, invalidInput("presentation content is required")
	}
	if len(content) > MaxPresentationContentBytes {
		return catalog.Record{}, invalidInput("presentation content exceeds %d bytes", MaxPresentationContentBytes)
	}

	rec, err := s.store.UpdatePresentationContent(ctx, id, content)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("update presentation content: %w", err)
	}

	// Search hits carry the full record.
	s.index.Invalidate()

	logging.FromContext(ctx).Info("presentation content updated",
		"record_id", id,
		"model", rec.ModelName,
		"caller", caller.ID,
		"bytes", len(content),
	)
	return rec, nil
}
