package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/JonMunkholm/compatdb/internal/search"
)

// SearchRequest is a catalog lookup by approximate model name.
type SearchRequest struct {
	Query    string
	Limit    int  // <= 0 uses the index default
	VIPOnly  bool // only records flagged VIP
	FreeOnly bool // only records not flagged VIP
}

// SearchHit is one ranked record.
type SearchHit struct {
	catalog.Record
	Score float64 `json:"score"`
}

// Search ranks catalog records against req.Query. A blank query returns the
// head of the catalog; a query shorter than the minimum length returns no
// hits.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]SearchHit, error) {
	if req.VIPOnly && req.FreeOnly {
		return nil, invalidInput("vipOnly and freeOnly are mutually exclusive")
	}

	ix, err := s.index.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var filter search.Filter
	switch {
	case req.VIPOnly:
		filter = func(r catalog.Record) bool { return r.IsVIP }
	case req.FreeOnly:
		filter = func(r catalog.Record) bool { return !r.IsVIP }
	}

	results := ix.Search(req.Query, req.Limit, filter)
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{Record: r.Record, Score: r.Score}
	}
	return hits, nil
}

// RebuildIndex discards the current search snapshot and builds a new one
// from storage. It returns the number of indexed records.
func (s *Service) RebuildIndex(ctx context.Context) (int, error) {
	if _, err := requireCaller(ctx, "rebuild index"); err != nil {
		return 0, err
	}
	ix, err := s.index.Rebuild(ctx)
	if err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	return ix.Len(), nil
}
