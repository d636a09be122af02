// Package extract defines the extractor contract and the registry that
// dispatches files to the extractor registered for their type.
package extract

import (
	"context"
	"path/filepath"

	"findex/internal/models"
)

// Extractor converts one input file into a RawExtraction: raw text plus zero
// or more candidate transactions with provenance.
//
// Implementations must never panic on malformed input. Internal failures are
// reported in the returned extraction's Status and Errors fields; partial
// results are preferred over total failure. The error return is reserved for
// context cancellation and programmer errors, not for bad input files.
type Extractor interface {
	Extract(ctx context.Context, path string) (models.RawExtraction, error)
}

// Failed builds the RawExtraction recording an unrecoverable failure for one file.
func Failed(path string, fileType models.FileType, method string, err error) models.RawExtraction {
	return models.RawExtraction{
		FileName: filepath.Base(path),
		FileType: fileType,
		Method:   method,
		Status:   models.ExtractionFailed,
		Errors:   []string{err.Error()},
	}
}
