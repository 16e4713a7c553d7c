package search

import (
	"fmt"
	"testing"

	"github.com/JonMunkholm/compatdb/internal/catalog"
)

func benchRecords(n int) []catalog.Record {
	brands := []string{"iPhone", "Galaxy A", "Moto G", "Redmi Note", "Xperia Z"}
	records := make([]catalog.Record, n)
	for i := range records {
		records[i] = catalog.Record{
			ID:        int64(i + 1),
			ModelName: fmt.Sprintf("%s %d", brands[i%len(brands)], i),
			IsVIP:     i%7 == 0,
		}
	}
	return records
}

// BenchmarkSearch benchmarks ranking a catalog of typical size.
func BenchmarkSearch(b *testing.B) {
	ix := New(benchRecords(5000), Options{})
	queries := []string{"iphone 12", "galxy a5", "moto", "redmi note 1"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, q := range queries {
			ix.Search(q, 0, nil)
		}
	}
}

// BenchmarkSearch_Filtered benchmarks ranking with a VIP filter applied.
func BenchmarkSearch_Filtered(b *testing.B) {
	ix := New(benchRecords(5000), Options{})
	vip := func(r catalog.Record) bool { return r.IsVIP }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Search("galaxy", 10, vip)
	}
}

// BenchmarkBestMatch benchmarks a single alignment.
func BenchmarkBestMatch(b *testing.B) {
	pattern := []rune("galxy a52")
	text := []rune("samsung galaxy a52 5g")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bestMatch(pattern, text, DefaultDistance)
	}
}

// BenchmarkNew benchmarks index construction from a snapshot.
func BenchmarkNew(b *testing.B) {
	records := benchRecords(5000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		New(records, Options{})
	}
}
