package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findex/internal/classify"
	"findex/internal/conflict"
	"findex/internal/extract"
	"findex/internal/extract/csvextract"
	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, *store.DataPointStore) {
	t.Helper()
	logger := logging.NewMockLogger()

	st, err := store.NewDataPointStore(filepath.Join(t.TempDir(), "findex.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	catStore := store.NewCategoryStore(
		filepath.Join(t.TempDir(), "categories.yaml"),
		filepath.Join(t.TempDir(), "vendors.yaml"),
		logger)
	keyword := classify.NewKeywordClassifier(catStore, 0.70, logger)

	registry := extract.NewRegistry(logger)
	registry.Register(models.FileTypeCSV, csvextract.New(',', logger))

	detector := conflict.NewDetector(st, conflict.DefaultConfig(), logger)
	return New(registry, keyword, st, detector, logger), st
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProcessFile_EndToEnd(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	path := writeFile(t, "march_costs.csv", `Date,Description,Vendor,Invoice,Amount
2024-03-15,Concrete pour foundation,ACME Concrete,INV-2024-001,4500.00
2024-04-02,Structural engineering review,BuildSafe Inspections,INV-2024-002,950.00
`)

	result, err := p.ProcessFile(ctx, "riverside", path, models.DocInvoice)
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionSuccess, result.Status)
	assert.Equal(t, 2, result.Extracted)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, 0, result.Conflicted)
	assert.Empty(t, result.Errors)

	points, err := st.QueryByProject(ctx, "riverside", store.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, points, 2)

	byVendor := make(map[string]*models.DataPoint)
	for _, dp := range points {
		byVendor[dp.Vendor] = dp
	}

	engineering := byVendor["BuildSafe Inspections"]
	require.NotNil(t, engineering)
	assert.Equal(t, models.TypeCost, engineering.Type)
	assert.Equal(t, models.StatusExtracted, engineering.Status)
	assert.Equal(t, models.CategoryPath("income_statement.opex.professional_fees"), engineering.Category)
	assert.Equal(t, models.MethodKeyword, engineering.MappingMethod)
	assert.Equal(t, "INV-2024-002", engineering.InvoiceNo)
	assert.Equal(t, result.FileID, engineering.Lineage.SourceFileID)
	assert.Equal(t, "march_costs.csv", engineering.Lineage.SourceFileName)
	assert.Positive(t, engineering.Lineage.Location.Row)
	// Extractor 0.85 scaled by the classifier's score, never above either.
	assert.Greater(t, engineering.Confidence, 0.0)
	assert.LessOrEqual(t, engineering.Confidence, 0.85)

	rec, err := st.GetExtraction(ctx, result.FileID)
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionSuccess, rec.Status)
}

func TestProcessFile_DuplicateAcrossFiles(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	row := "2024-03-15,Concrete pour foundation,ACME Concrete,4500.00\n"
	first := writeFile(t, "invoice.csv", "Date,Description,Vendor,Amount\n"+row)
	second := writeFile(t, "statement.csv", "Date,Description,Vendor,Amount\n"+row)

	r1, err := p.ProcessFile(ctx, "riverside", first, "")
	require.NoError(t, err)
	assert.Equal(t, 0, r1.Conflicted)

	r2, err := p.ProcessFile(ctx, "riverside", second, "")
	require.NoError(t, err)
	assert.Equal(t, 1, r2.Conflicted, "the second sighting lands in a conflict group")

	groups, err := st.ListConflictGroups(ctx, "riverside", true)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, models.ConflictDuplicate, groups[0].Type)
}

func TestProcessFile_ZeroTransactionsIsStillSuccess(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	path := writeFile(t, "empty.csv", "Date,Description,Amount\n")

	result, err := p.ProcessFile(ctx, "p", path, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionSuccess, result.Status)
	assert.Equal(t, 0, result.Extracted)
	assert.Equal(t, 0, result.Stored)

	points, err := st.QueryByProject(ctx, "p", store.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestProcessFile_ExtractionFailureRecorded(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	result, err := p.ProcessFile(ctx, "p", filepath.Join(t.TempDir(), "missing.csv"), "")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionFailed, result.Status)
	assert.NotEmpty(t, result.Errors)
	assert.Equal(t, 0, result.Stored)

	rec, err := st.GetExtraction(ctx, result.FileID)
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionFailed, rec.Status)
}

func TestProcessFile_UnsupportedFileType(t *testing.T) {
	p, _ := newTestPipeline(t)

	path := writeFile(t, "notes.txt", "not a financial document")
	_, err := p.ProcessFile(context.Background(), "p", path, "")
	assert.Error(t, err)
}

func TestTypeForHint(t *testing.T) {
	cases := map[models.DocumentType]models.DataPointType{
		models.DocBudget:        models.TypeBudgetItem,
		models.DocContract:      models.TypeContract,
		models.DocChangeOrder:   models.TypeChangeOrder,
		models.DocInvoice:       models.TypeCost,
		models.DocReceipt:       models.TypeCost,
		models.DocBankStatement: models.TypeTransaction,
		"":                      models.TypeTransaction,
	}
	for hint, want := range cases {
		assert.Equal(t, want, typeForHint(hint), "hint %q", hint)
	}
}
