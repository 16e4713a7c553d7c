package search

import (
	"testing"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func records(names ...string) []catalog.Record {
	out := make([]catalog.Record, len(names))
	for i, name := range names {
		out[i] = catalog.Record{ID: int64(i + 1), ModelName: name}
	}
	return out
}

func names(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.ModelName
	}
	return out
}

func TestBestMatch(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		text     string
		distance int
		errors   int
		start    int
		score    float64
	}{
		{"exact", "abc", "abc", 100, 0, 0, 0},
		{"prefix", "abc", "abcdef", 100, 0, 0, 0},
		{"offset", "abc", "xxabc", 100, 0, 2, 0.02},
		{"substitution", "abc", "axc", 100, 1, 0, 1.0 / 3},
		{"transposition", "iphnoe", "iphone", 100, 1, 0, 1.0 / 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := bestMatch([]rune(tt.pattern), []rune(tt.text), tt.distance)
			assert.Equal(t, tt.errors, m.Errors)
			assert.Equal(t, tt.start, m.Start)
			assert.InDelta(t, tt.score, m.Score, 1e-9)
		})
	}
}

func TestBestMatch_NegativeDistanceRejectsOffsets(t *testing.T) {
	assert.Equal(t, 1.0, bestMatch([]rune("abc"), []rune("xabc"), -1).Score)
	assert.Equal(t, 0.0, bestMatch([]rune("abc"), []rune("abcd"), -1).Score)
}

func TestIndex_ShortQueryReturnsNothing(t *testing.T) {
	ix := New(records("iPhone 11", "iPad Air"), Options{})

	got := ix.Search("ip", 0, nil)
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = ix.Search("  ip  ", 0, nil)
	assert.Empty(t, got)
}

func TestIndex_RanksCloseMatches(t *testing.T) {
	ix := New(records("Galaxy A01", "iPhone 11", "Moto G8"), Options{})

	got := ix.Search("iph", 0, nil)
	assert.Equal(t, []string{"iPhone 11"}, names(got))
	assert.Zero(t, got[0].Score)
}

func TestIndex_CaseInsensitive(t *testing.T) {
	ix := New(records("iphone 11"), Options{})

	got := ix.Search("IPHONE", 0, nil)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Score)
}

func TestIndex_IgnoresAccentsAndNormalForm(t *testing.T) {
	name := norm.NFD.String("Motorola Moto G8 Plús")
	ix := New(records(name, "Galaxy A01"), Options{})

	for _, q := range []string{
		norm.NFC.String("moto g8 plús"),
		"plú",
		"MOTO G8 PLUS",
	} {
		assert.Equal(t, []string{name}, names(ix.Search(q, 0, nil)), q)
	}
}

func TestIndex_EarlierMatchRanksFirst(t *testing.T) {
	ix := New(records("Capa iPhone", "iPhone X"), Options{})

	got := ix.Search("iphone", 0, nil)
	assert.Equal(t, []string{"iPhone X", "Capa iPhone"}, names(got))
	assert.InDelta(t, 0.05, got[1].Score, 1e-9)
}

func TestIndex_TiesKeepCatalogOrder(t *testing.T) {
	ix := New(records("Moto G8 Plus", "Moto G8", "Moto G8 Power"), Options{})

	got := ix.Search("moto g8", 0, nil)
	assert.Equal(t, []string{"Moto G8 Plus", "Moto G8", "Moto G8 Power"}, names(got))
}

func TestIndex_ToleratesTypos(t *testing.T) {
	ix := New(records("iPhone 11", "Galaxy A01"), Options{})

	got := ix.Search("iphnoe", 0, nil)
	assert.Equal(t, []string{"iPhone 11"}, names(got))
}

func TestIndex_LimitAppliedAfterRanking(t *testing.T) {
	ix := New(records("xx iphone", "iphone", "x iphone"), Options{})

	got := ix.Search("iphone", 2, nil)
	assert.Equal(t, []string{"iphone", "x iphone"}, names(got))
}

func TestIndex_BlankQueryReturnsHead(t *testing.T) {
	ix := New(records("A", "B", "C", "D", "E", "F", "G"), Options{})

	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, names(ix.Search("   ", 0, nil)))
	assert.Equal(t, []string{"A", "B"}, names(ix.Search("", 2, nil)))
}

func TestIndex_Filter(t *testing.T) {
	recs := records("iPhone 11", "iPhone 12", "iPhone 13")
	recs[1].IsVIP = true
	ix := New(recs, Options{})

	vip := func(r catalog.Record) bool { return r.IsVIP }
	free := func(r catalog.Record) bool { return !r.IsVIP }

	assert.Equal(t, []string{"iPhone 12"}, names(ix.Search("iphone", 0, vip)))
	assert.Equal(t, []string{"iPhone 11", "iPhone 13"}, names(ix.Search("iphone", 0, free)))
	assert.Equal(t, []string{"iPhone 11", "iPhone 13"}, names(ix.Search("", 0, free)))
}

func TestIndex_CopiesInput(t *testing.T) {
	recs := records("iPhone 11")
	ix := New(recs, Options{})
	recs[0].ModelName = "changed"

	got := ix.Search("", 0, nil)
	assert.Equal(t, []string{"iPhone 11"}, names(got))
}

func TestOptions_Defaults(t *testing.T) {
	opts := New(nil, Options{}).Options()
	assert.Equal(t, DefaultThreshold, opts.Threshold)
	assert.Equal(t, DefaultDistance, opts.Distance)
	assert.Equal(t, DefaultMinQueryLength, opts.MinQueryLength)
	assert.Equal(t, DefaultLimit, opts.DefaultLimit)

	opts = New(nil, Options{Distance: -1, MinQueryLength: 1}).Options()
	assert.Equal(t, -1, opts.Distance)
	assert.Equal(t, 1, opts.MinQueryLength)
}
