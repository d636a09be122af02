// Package pipelineerror defines the typed errors of the extraction pipeline.
// Failures are contained at the smallest unit (single file, single
// classification call) and reported as structured results; these types are
// for the cases that must surface to the caller.
package pipelineerror

import "fmt"

// UnsupportedFileTypeError means no extractor is registered for the
// detected file type. Fatal for the single operation only.
type UnsupportedFileTypeError struct {
	FilePath string
	FileType string
}

func (e *UnsupportedFileTypeError) Error() string {
	if e.FileType == "" {
		return fmt.Sprintf("unsupported file type for '%s'", e.FilePath)
	}
	return fmt.Sprintf("unsupported file type '%s' for '%s'", e.FileType, e.FilePath)
}

// ExtractionError represents an unrecoverable failure while extracting one
// file. Batch processing records it and moves on to the next file.
type ExtractionError struct {
	FilePath string
	Stage    string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for '%s' at %s: %v", e.FilePath, e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ClassificationError represents a classifier backend failure. It is always
// recovered locally by falling back to keyword matching and never surfaces
// to the pipeline caller; it exists so the fallback path can log the cause.
type ClassificationError struct {
	Description string
	Backend     string
	Err         error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification via %s failed for '%s': %v", e.Backend, e.Description, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a missing entity (data point, conflict group, job).
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

// ValidationError reports invalid input to a store or pipeline operation,
// distinct from rule violations which are data, not errors.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a database failure with the operation that caused it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
