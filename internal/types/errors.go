package types

import (
	"errors"
	"fmt"
)

// IngestionError is returned when an upstream content source fails.
// It always surfaces to the caller; the pipeline never swallows it.
type IngestionError struct {
	Source     string // e.g. "youtube", "web:reviews"
	Op         string // e.g. "search", "comment_threads"
	StatusCode int    // upstream HTTP status, 0 when the request never completed
	Err        error
}

func (e *IngestionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("ingestion %s %s failed with HTTP %d: %v", e.Source, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ingestion %s %s failed: %v", e.Source, e.Op, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

func IsIngestionError(err error) bool {
	var ie *IngestionError
	return errors.As(err, &ie)
}
