package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"findex/internal/logging"
	"findex/internal/models"
)

// AIClassifier maps a transaction onto the category taxonomy by asking a
// generative backend. The taxonomy is rendered into the prompt in sorted
// order so the same transaction always yields the same prompt.
type AIClassifier struct {
	backend    AIBackend
	categories []models.CategoryConfig
	valid      map[models.CategoryPath]bool
	logger     logging.Logger
}

// NewAIClassifier builds a classifier over the given taxonomy.
func NewAIClassifier(backend AIBackend, categories []models.CategoryConfig, logger logging.Logger) *AIClassifier {
	if logger == nil {
		logger = logging.GetLogger()
	}
	sorted := make([]models.CategoryConfig, len(categories))
	copy(sorted, categories)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	valid := make(map[models.CategoryPath]bool, len(sorted))
	for _, c := range sorted {
		valid[models.CategoryPath(c.Path)] = true
	}

	return &AIClassifier{
		backend:    backend,
		categories: sorted,
		valid:      valid,
		logger:     logger,
	}
}

// Name returns the classifier name.
func (c *AIClassifier) Name() string {
	return "ai"
}

type aiClassification struct {
	CategoryPath string  `json:"category_path"`
	Confidence   float64 `json:"confidence"`
}

// Classify asks the backend for a category path and confidence. Any backend
// trouble, unparseable output, or out-of-taxonomy path is returned as an
// error so the caller can fall back.
func (c *AIClassifier) Classify(ctx context.Context, tx models.CandidateTransaction, hint models.DocumentType) (models.Classification, error) {
	prompt := c.buildPrompt(tx, hint)

	raw, err := c.backend.Generate(ctx, prompt)
	if err != nil {
		return models.Classification{}, backendFailure(tx.Description, c.backend.Name(), err)
	}

	var parsed aiClassification
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return models.Classification{}, backendFailure(tx.Description, c.backend.Name(),
			fmt.Errorf("unparseable classification response: %w", err))
	}

	path := models.CategoryPath(strings.TrimSpace(parsed.CategoryPath))
	if !c.valid[path] {
		return models.Classification{}, backendFailure(tx.Description, c.backend.Name(),
			fmt.Errorf("category %q is not in the taxonomy", path))
	}
	conf := parsed.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	c.logger.Debug("AI classification succeeded",
		logging.Field{Key: logging.FieldCategory, Value: string(path)},
		logging.Field{Key: logging.FieldMethod, Value: string(models.MethodAI)})

	return models.Classification{
		CategoryPath: path,
		Confidence:   conf,
		Method:       models.MethodAI,
	}, nil
}

func (c *AIClassifier) buildPrompt(tx models.CandidateTransaction, hint models.DocumentType) string {
	var b strings.Builder
	b.WriteString("You are a financial data classifier for construction project accounting.\n")
	b.WriteString("Assign the transaction below to exactly one category from the taxonomy.\n\n")
	b.WriteString("Taxonomy (path: keywords):\n")
	for _, cat := range c.categories {
		b.WriteString("- ")
		b.WriteString(string(cat.Path))
		if len(cat.Keywords) > 0 {
			b.WriteString(": ")
			b.WriteString(strings.Join(cat.Keywords, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nTransaction:\n")
	fmt.Fprintf(&b, "- description: %s\n", tx.Description)
	if tx.Vendor != "" {
		fmt.Fprintf(&b, "- vendor: %s\n", tx.Vendor)
	}
	if !tx.Amount.Amount.IsZero() {
		fmt.Fprintf(&b, "- amount: %s\n", tx.Amount.String())
	}
	if tx.Date != nil {
		fmt.Fprintf(&b, "- date: %s\n", tx.Date.Format("2006-01-02"))
	}
	if hint != "" {
		fmt.Fprintf(&b, "- document type: %s\n", hint)
	}

	b.WriteString("\nRespond with JSON only, no prose, in this exact shape:\n")
	b.WriteString(`{"category_path": "<one taxonomy path>", "confidence": <0.0 to 1.0>}`)
	b.WriteString("\n")
	return b.String()
}
