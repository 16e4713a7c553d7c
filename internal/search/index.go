// Package search ranks catalog records by approximate model-name match.
//
// An [Index] is built from a catalog snapshot and never touches storage; a
// [Holder] owns the current snapshot and rebuilds it when the catalog
// changes.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/compatdb/internal/catalog"
)

// Defaults for Options fields left at zero.
const (
	DefaultThreshold      = 0.2
	DefaultDistance       = 100
	DefaultMinQueryLength = 3
	DefaultLimit          = 5
)

// Options tune matching. Zero values fall back to the defaults above.
type Options struct {
	// Threshold is the highest score still considered a match, on a
	// 0.0 (exact) to 1.0 (anything) scale.
	Threshold float64

	// Distance scales the position penalty: a match starting at rune
	// offset k adds k/Distance to its score. A negative Distance only
	// accepts matches at the start of the name.
	Distance int

	// MinQueryLength is the shortest trimmed query, in runes, that is
	// ranked. Shorter queries return nothing.
	MinQueryLength int

	// DefaultLimit applies when a search passes limit <= 0.
	DefaultLimit int
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Distance == 0 {
		o.Distance = DefaultDistance
	}
	if o.MinQueryLength <= 0 {
		o.MinQueryLength = DefaultMinQueryLength
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	return o
}

// Filter decides whether a record may appear in results.
type Filter func(catalog.Record) bool

// Result is one ranked hit.
type Result struct {
	Record catalog.Record
	Score  float64 // Lower is better; 0 for unranked (empty query) results
	Errors int
	Start  int
}

// Index is an immutable, fuzzy-matchable view of one catalog snapshot.
// It is safe for concurrent use.
type Index struct {
	records []catalog.Record
	keys    [][]rune // case-folded model names, parallel to records
	opts    Options
}

// New builds an index over records, which must be in catalog order.
// The slice is copied; later changes by the caller are not observed.
func New(records []catalog.Record, opts Options) *Index {
	ix := &Index{
		records: make([]catalog.Record, len(records)),
		keys:    make([][]rune, len(records)),
		opts:    opts.withDefaults(),
	}
	copy(ix.records, records)
	for i, rec := range ix.records {
		ix.keys[i] = []rune(fold(rec.ModelName))
	}
	return ix
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Options returns the effective options.
func (ix *Index) Options() Options {
	return ix.opts
}

// Search ranks records against query.
//
//   - a blank query returns the first limit records in catalog order
//   - a trimmed query shorter than MinQueryLength returns nothing
//   - otherwise records scoring at most Threshold are returned best first,
//     ties in catalog order
//
// filter may be nil. Truncation to limit happens after ranking and
// filtering.
func (ix *Index) Search(query string, limit int, filter Filter) []Result {
	if limit <= 0 {
		limit = ix.opts.DefaultLimit
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return ix.head(limit, filter)
	}
	if utf8.RuneCountInString(query) < ix.opts.MinQueryLength {
		return []Result{}
	}

	pattern := []rune(fold(query))
	var mt matcher

	results := []Result{}
	for i, key := range ix.keys {
		rec := ix.records[i]
		if filter != nil && !filter(rec) {
			continue
		}
		m := mt.match(pattern, key, ix.opts.Distance)
		if m.Score > ix.opts.Threshold {
			continue
		}
		results = append(results, Result{Record: rec, Score: m.Score, Errors: m.Errors, Start: m.Start})
	}

	// results is already in catalog order, so a stable sort keeps ties there.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score < results[b].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (ix *Index) head(limit int, filter Filter) []Result {
	results := make([]Result, 0, min(limit, len(ix.records)))
	for _, rec := range ix.records {
		if len(results) == limit {
			break
		}
		if filter != nil && !filter(rec) {
			continue
		}
		results = append(results, Result{Record: rec})
	}
	return results
}

// fold normalizes case and accents for comparison.
func fold(s string) string {
	return catalog.Fold(s)
}
