package core

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/compatdb/internal/storage"
)

var (
	// ErrIngestionFailed is matched by every *IngestionError.
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrNotFound means the requested record does not exist.
	ErrNotFound = storage.ErrNotFound

	// ErrInvalidInput is returned for malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when a mutation is attempted without an
	// authenticated caller in the context.
	ErrUnauthorized = errors.New("unauthorized")
)

// IngestionError reports a failed import together with the counts computed
// before the failure.
type IngestionError struct {
	Reason            string
	TotalProcessed    int
	Rejected          int
	DuplicatesSkipped int
	Err               error // underlying cause, may be nil
}

func (e *IngestionError) Error() string {
	msg := fmt.Sprintf("ingestion failed: %s (processed=%d rejected=%d duplicates=%d)",
		e.Reason, e.TotalProcessed, e.Rejected, e.DuplicatesSkipped)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

func (e *IngestionError) Is(target error) bool {
	return target == ErrIngestionFailed
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
