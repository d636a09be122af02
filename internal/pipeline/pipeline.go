// Package pipeline drives a document through the full chain: extraction,
// classification, persistence, and the conflict scan. One call per file.
package pipeline

import (
	"context"
	"time"

	"findex/internal/conflict"
	"findex/internal/extract"
	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/store"
)

// Classifier is the classification step the pipeline depends on.
type Classifier interface {
	Classify(ctx context.Context, tx models.CandidateTransaction, hint models.DocumentType) (models.Classification, error)
}

// Pipeline wires the stages together.
type Pipeline struct {
	registry   *extract.Registry
	classifier Classifier
	store      *store.DataPointStore
	detector   *conflict.Detector
	logger     logging.Logger
}

// New builds a pipeline. The classifier is typically the AI-then-keyword
// fallback chain but tests may pass the keyword classifier alone.
func New(registry *extract.Registry, classifier Classifier, st *store.DataPointStore, detector *conflict.Detector, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Pipeline{
		registry:   registry,
		classifier: classifier,
		store:      st,
		detector:   detector,
		logger:     logger,
	}
}

// FileResult summarizes one file's trip through the pipeline.
type FileResult struct {
	FileID     string                  `json:"file_id"`
	FileName   string                  `json:"file_name"`
	Status     models.ExtractionStatus `json:"status"`
	Extracted  int                     `json:"extracted"`
	Stored     int                     `json:"stored"`
	Conflicted int                     `json:"conflicted"`
	Errors     []string                `json:"errors,omitempty"`
	Warnings   []string                `json:"warnings,omitempty"`
}

// ProcessFile runs one file end to end. A file that yields zero candidate
// transactions is still a successful extraction; only hard extractor
// failures surface in the result's status. The insert and conflict scan for
// each point run under the project lock so two concurrent files cannot both
// miss a conflict between their points.
func (p *Pipeline) ProcessFile(ctx context.Context, projectID, path string, hint models.DocumentType) (*FileResult, error) {
	raw, err := p.registry.Dispatch(ctx, path, "")
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveExtraction(ctx, &raw); err != nil {
		return nil, err
	}

	result := &FileResult{
		FileID:    raw.FileID,
		FileName:  raw.FileName,
		Status:    raw.Status,
		Extracted: len(raw.Transactions),
		Errors:    raw.Errors,
		Warnings:  raw.Warnings,
	}
	if raw.Status == models.ExtractionFailed {
		return result, nil
	}

	for _, tx := range raw.Transactions {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		dp, err := p.toDataPoint(ctx, projectID, &raw, tx, hint)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		err = p.store.WithProjectLock(projectID, func() error {
			if err := p.store.Insert(ctx, dp); err != nil {
				return err
			}
			return p.detector.ScanNew(ctx, dp)
		})
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Stored++
		if dp.ConflictGroupID != "" || refreshedConflicted(ctx, p.store, dp.ID) {
			result.Conflicted++
		}
	}

	p.logger.Info("file processed",
		logging.Field{Key: logging.FieldFileID, Value: raw.FileID},
		logging.Field{Key: logging.FieldFile, Value: raw.FileName},
		logging.Field{Key: logging.FieldCount, Value: result.Stored},
		logging.Field{Key: "conflicted", Value: result.Conflicted})
	return result, nil
}

// Classify runs the classifier chain on one candidate without storing
// anything.
func (p *Pipeline) Classify(ctx context.Context, tx models.CandidateTransaction, hint models.DocumentType) (models.Classification, error) {
	return p.classifier.Classify(ctx, tx, hint)
}

// toDataPoint classifies one candidate and shapes it into a durable point.
// The point's confidence is the extractor's confidence scaled by the
// classifier's, so a shaky OCR read of a certain category still ranks below
// a clean spreadsheet cell.
func (p *Pipeline) toDataPoint(ctx context.Context, projectID string, raw *models.RawExtraction, tx models.CandidateTransaction, hint models.DocumentType) (*models.DataPoint, error) {
	cls, err := p.classifier.Classify(ctx, tx, hint)
	if err != nil {
		return nil, err
	}

	confidence := tx.Confidence
	if cls.CategoryPath != "" {
		confidence = tx.Confidence * cls.Confidence
	}

	now := time.Now().UTC()
	return &models.DataPoint{
		ProjectID: projectID,
		Lineage: models.Lineage{
			SourceFileID:   raw.FileID,
			SourceFileName: raw.FileName,
			SourceFileType: raw.FileType,
			Location:       tx.Location,
		},
		Type:          typeForHint(hint),
		Status:        models.StatusExtracted,
		Date:          tx.Date,
		Description:   tx.Description,
		Amount:        tx.Amount,
		Vendor:        tx.Vendor,
		InvoiceNo:     tx.Reference,
		Category:      cls.CategoryPath,
		MappingMethod: cls.Method,
		Confidence:    confidence,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// typeForHint maps the caller's document type hint onto a data point type.
func typeForHint(hint models.DocumentType) models.DataPointType {
	switch hint {
	case models.DocBudget:
		return models.TypeBudgetItem
	case models.DocContract:
		return models.TypeContract
	case models.DocChangeOrder:
		return models.TypeChangeOrder
	case models.DocInvoice, models.DocReceipt:
		return models.TypeCost
	default:
		return models.TypeTransaction
	}
}

// refreshedConflicted re-reads a point to see whether the scan just tagged
// it; the in-memory copy predates the scan.
func refreshedConflicted(ctx context.Context, st *store.DataPointStore, id string) bool {
	dp, err := st.Get(ctx, id)
	if err != nil {
		return false
	}
	return dp.ConflictGroupID != ""
}
