package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRow marks a row that cannot become a record.
	// It is counted by Ingest and never returned from it.
	ErrMalformedRow = errors.New("malformed row")

	// ErrRead marks a failure to read or decode the import stream.
	ErrRead = errors.New("read error")

	// ErrNoValidRecords is returned by Validate when nothing usable was found.
	ErrNoValidRecords = errors.New("no valid records in file")
)

// ReadError reports a stream-level failure that aborts ingestion.
type ReadError struct {
	Line int // Last line reached before the failure (1-indexed, 0 if unknown)
	Err  error
}

func (e *ReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("read error at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("read error: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRead) match any ReadError.
func (e *ReadError) Is(target error) bool { return target == ErrRead }

// malformed wraps ErrMalformedRow with a reason.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRow, fmt.Sprintf(format, args...))
}
