// Package classify maps candidate transactions onto the canonical financial
// category taxonomy. Two implementations exist for the one capability: an
// AI-backed classifier and a deterministic keyword matcher. The fallback
// wrapper selects between them so classification never blocks the pipeline.
package classify

import (
	"context"

	"findex/internal/models"
)

// Classifier maps a raw transaction description (plus an optional document
// type hint) to a canonical category path with a confidence score.
//
// Implementations must be total in the sense that a nil-category,
// zero-confidence result is acceptable but an indefinite block is not.
type Classifier interface {
	Classify(ctx context.Context, tx models.CandidateTransaction, hint models.DocumentType) (models.Classification, error)

	// Name identifies the strategy for logging and debugging.
	Name() string
}
