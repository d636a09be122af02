package classify

import (
	"context"
	"strings"
	"sync"

	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/store"
)

// KeywordClassifier categorizes by substring matching against the taxonomy's
// keyword lists and the learned vendor mappings. It is fully deterministic
// and total: when nothing matches it returns an empty category with zero
// confidence rather than an error.
type KeywordClassifier struct {
	categories []models.CategoryConfig
	ceiling    float64
	logger     logging.Logger

	mu       sync.RWMutex
	vendors  map[string]string // lowercase vendor name -> category path
	catStore *store.CategoryStore
	dirty    bool
}

// NewKeywordClassifier loads the taxonomy and vendor mappings from the
// category store. ceiling caps every confidence this classifier emits;
// substring matching is never certain, so the ceiling stays below 1.0.
func NewKeywordClassifier(catStore *store.CategoryStore, ceiling float64, logger logging.Logger) *KeywordClassifier {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if ceiling <= 0 || ceiling >= 1 {
		ceiling = 0.70
	}

	c := &KeywordClassifier{
		ceiling:  ceiling,
		logger:   logger,
		vendors:  map[string]string{},
		catStore: catStore,
	}

	categories, err := catStore.LoadCategories()
	if err != nil {
		logger.WithError(err).Warn("Failed to load categories, using built-in taxonomy")
		categories = models.DefaultCategories
	}
	c.categories = categories

	vendors, err := catStore.LoadVendorMappings()
	if err != nil {
		logger.WithError(err).Warn("Failed to load vendor mappings")
	} else {
		for name, path := range vendors {
			c.vendors[strings.ToLower(name)] = path
		}
	}

	return c
}

// Name returns the strategy name.
func (c *KeywordClassifier) Name() string {
	return "Keyword"
}

// Classify matches the learned vendor table first, then the taxonomy's
// keyword lists against description and vendor. Longer keywords score
// higher within the ceiling because they are more specific matches.
func (c *KeywordClassifier) Classify(_ context.Context, tx models.CandidateTransaction, hint models.DocumentType) (models.Classification, error) {
	description := strings.ToLower(tx.Description)
	vendor := strings.ToLower(tx.Vendor)

	// Direct vendor mapping: previously learned, so most trustworthy.
	c.mu.RLock()
	if vendor != "" {
		if path, ok := c.vendors[vendor]; ok {
			c.mu.RUnlock()
			return models.Classification{
				CategoryPath: models.CategoryPath(path),
				Confidence:   c.ceiling,
				Method:       models.MethodKeyword,
			}, nil
		}
	}
	c.mu.RUnlock()

	bestLen := 0
	var bestPath models.CategoryPath
	for _, category := range c.categories {
		for _, keyword := range category.Keywords {
			kw := strings.ToLower(keyword)
			if !strings.Contains(description, kw) && !strings.Contains(vendor, kw) {
				continue
			}
			if len(kw) > bestLen {
				bestLen = len(kw)
				bestPath = models.CategoryPath(category.Path)
			}
		}
	}

	if bestPath == "" {
		return models.Classification{Method: models.MethodKeyword}, nil
	}

	// Scale by match specificity: a 4-char keyword hit is weaker evidence
	// than a 15-char one. Document type hints tighten nothing here; the
	// keyword table is global.
	confidence := c.ceiling * (0.6 + 0.4*minFloat(float64(bestLen)/15.0, 1.0))
	if confidence > c.ceiling {
		confidence = c.ceiling
	}

	c.logger.Debug("Keyword classification",
		logging.Field{Key: logging.FieldCategory, Value: string(bestPath)},
		logging.Field{Key: "keyword_len", Value: bestLen})

	return models.Classification{
		CategoryPath: bestPath,
		Confidence:   confidence,
		Method:       models.MethodKeyword,
	}, nil
}

// Learn records a vendor-to-category mapping so future transactions from
// the same vendor classify without the AI backend.
func (c *KeywordClassifier) Learn(vendor string, path models.CategoryPath) {
	vendor = strings.TrimSpace(strings.ToLower(vendor))
	if vendor == "" || !path.IsValid() {
		return
	}
	c.mu.Lock()
	if c.vendors[vendor] != string(path) {
		c.vendors[vendor] = string(path)
		c.dirty = true
	}
	c.mu.Unlock()
}

// SaveMappings persists learned vendor mappings if any changed.
func (c *KeywordClassifier) SaveMappings() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	snapshot := make(map[string]string, len(c.vendors))
	for k, v := range c.vendors {
		snapshot[k] = v
	}
	if err := c.catStore.SaveVendorMappings(snapshot); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// Categories exposes the loaded taxonomy for prompt construction.
func (c *KeywordClassifier) Categories() []models.CategoryConfig {
	return c.categories
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
