package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/JonMunkholm/compatdb/internal/catalog"
)

// SampleResult is a random selection from the catalog.
type SampleResult struct {
	Records []catalog.Record `json:"records"`
	Total   int64            `json:"total"` // Size of the whole catalog
}

// Sample returns up to n random records. n <= 0 uses the configured default
// and n is capped at the configured maximum.
func (s *Service) Sample(ctx context.Context, n int) (*SampleResult, error) {
	n = s.sampleSize(n)

	records, err := s.store.RandomSample(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("sample records: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	// Stores pick rows at random but may hand them back in storage order.
	rand.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})

	return &SampleResult{Records: records, Total: total}, nil
}

func (s *Service) sampleSize(n int) int {
	if n <= 0 {
		return s.cfg.DefaultSampleSize
	}
	return min(n, s.cfg.MaxSampleSize)
}

// ParseSampleSize reads a requested sample size. Missing or non-numeric
// input yields 0, which Sample treats as "use the default".
func ParseSampleSize(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
