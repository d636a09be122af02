package classify

import (
	"context"
	"time"

	"findex/internal/logging"
	"findex/internal/models"
)

// FallbackClassifier tries the AI classifier first and falls back to keyword
// matching when the backend is unavailable, times out, or returns something
// unusable. Classification as a whole never fails: the keyword classifier is
// total, returning an empty classification when nothing matches.
type FallbackClassifier struct {
	ai        *AIClassifier
	keyword   *KeywordClassifier
	aiTimeout time.Duration
	logger    logging.Logger
}

// NewFallbackClassifier builds the chain. ai may be nil, in which case every
// call goes straight to the keyword classifier.
func NewFallbackClassifier(ai *AIClassifier, keyword *KeywordClassifier, aiTimeout time.Duration, logger logging.Logger) *FallbackClassifier {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if aiTimeout <= 0 {
		aiTimeout = 10 * time.Second
	}
	return &FallbackClassifier{
		ai:        ai,
		keyword:   keyword,
		aiTimeout: aiTimeout,
		logger:    logger,
	}
}

// Name returns the classifier name.
func (c *FallbackClassifier) Name() string {
	return "fallback"
}

// Classify runs the chain. An AI success is fed back into the keyword
// classifier's vendor mappings so repeated vendors resolve without another
// API call.
func (c *FallbackClassifier) Classify(ctx context.Context, tx models.CandidateTransaction, hint models.DocumentType) (models.Classification, error) {
	if c.ai != nil {
		aiCtx, cancel := context.WithTimeout(ctx, c.aiTimeout)
		cls, err := c.ai.Classify(aiCtx, tx, hint)
		cancel()
		if err == nil {
			if tx.Vendor != "" && cls.CategoryPath != "" {
				c.keyword.Learn(tx.Vendor, cls.CategoryPath)
			}
			return cls, nil
		}
		if ctx.Err() != nil {
			return models.Classification{}, ctx.Err()
		}
		c.logger.WithError(err).Warn("AI classification failed, falling back to keywords")
	}
	return c.keyword.Classify(ctx, tx, hint)
}

// SaveMappings flushes vendor mappings learned during this run.
func (c *FallbackClassifier) SaveMappings() error {
	return c.keyword.SaveMappings()
}
