// backend/src/services/errors.go
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrParsingFailed wraps any parser-level failure in the pipeline.
	ErrParsingFailed = errors.New("parsing failed")
	// ErrUploadNotFound is returned when an upload id does not resolve.
	ErrUploadNotFound = errors.New("upload not found")
	// ErrAlreadyProcessing is returned when the same upload id is dispatched
	// for processing while a previous dispatch is still in flight.
	ErrAlreadyProcessing = errors.New("upload is already being processed")
	// ErrQueueFull is returned when the ingestion queue cannot accept more work.
	ErrQueueFull = errors.New("ingestion queue is full")
	// ErrReportTimeout is returned when building the report export exceeds
	// its time budget.
	ErrReportTimeout = errors.New("report generation timed out")
)

// PartialParseError reports a row-count mismatch between what a file claims
// to contain and what was parsed. Declared for the upload surface; no parser
// currently raises it.
type PartialParseError struct {
	Processed int
	Total     int
}

func (e *PartialParseError) Error() string {
	return fmt.Sprintf("partial parse: %d/%d rows", e.Processed, e.Total)
}
