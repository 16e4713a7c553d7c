package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"iter"
)

// ContextCheckInterval is how often (in rows) Ingest checks for cancellation.
var ContextCheckInterval = 100

// Row is one raw line of an import file.
type Row struct {
	Line   int // 1-indexed line where the row starts
	Fields []string
}

// Rows lazily yields the CSV rows of r. The file has no header and rows may
// have any number of fields. A *csv.ParseError is yielded with its row so
// the caller can count it; any other error is a stream failure wrapped in
// *ReadError and ends the sequence.
func Rows(r io.Reader) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		cr.TrimLeadingSpace = true

		lastLine := 0
		for {
			fields, err := cr.Read()
			if err == io.EOF {
				return
			}

			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				lastLine = parseErr.Line
				if !yield(Row{Line: parseErr.StartLine}, malformed("line %d: %v", parseErr.StartLine, parseErr.Err)) {
					return
				}
				continue
			}
			if err != nil {
				yield(Row{}, &ReadError{Line: lastLine, Err: err})
				return
			}

			line, _ := cr.FieldPos(0)
			lastLine = line
			if !yield(Row{Line: line, Fields: fields}, nil) {
				return
			}
		}
	}
}

// Ingest streams r through NormalizeRow and returns the accepted records.
//
// Malformed rows are counted in Batch.Rejected. A repeated model name is
// counted in Batch.DuplicatesSkipped and the first occurrence is kept. Only a
// stream failure (a *ReadError) or context cancellation aborts ingestion; the
// returned batch then holds the counts reached before the failure.
func Ingest(ctx context.Context, r io.Reader) (*Batch, error) {
	stream, err := OpenStream(r)
	if err != nil {
		return &Batch{Records: []Record{}}, err
	}
	defer stream.Close()

	batch := &Batch{Records: []Record{}}
	seen := make(map[string]struct{})

	i := 0
	for row, err := range Rows(stream) {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return batch, ctx.Err()
		}
		i++

		if err != nil {
			if errors.Is(err, ErrMalformedRow) {
				batch.TotalProcessed++
				batch.Rejected++
				continue
			}
			return batch, err
		}

		batch.TotalProcessed++

		rec, err := NormalizeRow(row.Fields)
		if err != nil {
			batch.Rejected++
			continue
		}

		if _, dup := seen[rec.ModelName]; dup {
			batch.DuplicatesSkipped++
			continue
		}
		seen[rec.ModelName] = struct{}{}
		batch.Records = append(batch.Records, rec)
	}

	return batch, nil
}

// Validate runs the full pipeline and fails with ErrNoValidRecords unless at
// least one record with a model name was accepted. It is used to gate an
// import before anything is committed.
func Validate(ctx context.Context, r io.Reader) (*Batch, error) {
	batch, err := Ingest(ctx, r)
	if err != nil {
		return batch, err
	}
	for _, rec := range batch.Records {
		if rec.ModelName != "" {
			return batch, nil
		}
	}
	return batch, ErrNoValidRecords
}
