package validate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/store"
)

func newTestStore(t *testing.T) *store.DataPointStore {
	t.Helper()
	s, err := store.NewDataPointStore(filepath.Join(t.TempDir(), "findex.db"), logging.NewMockLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testPoint(project string, amount float64) *models.DataPoint {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return &models.DataPoint{
		ProjectID:   project,
		Lineage:     models.Lineage{SourceFileID: "f1", SourceFileName: "costs.xlsx", SourceFileType: models.FileTypeExcel},
		Type:        models.TypeCost,
		Date:        &d,
		Description: "Concrete pour foundation",
		Amount:      models.NewMoneyFromFloat(amount, "USD"),
		Vendor:      "ACME Concrete",
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestValidatePoint_Range(t *testing.T) {
	v := NewValidator(newTestStore(t), logging.NewMockLogger())
	rule := &models.ValidationRule{
		ID:       "no-negatives",
		Kind:     KindRange,
		Field:    "amount",
		Min:      floatPtr(0),
		Severity: models.SeverityError,
		Message:  "amounts must not be negative",
	}

	cases := []struct {
		name     string
		amount   float64
		violates bool
	}{
		{"positive passes", 4500, false},
		{"zero passes", 0, false},
		{"negative fails", -120, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dp := testPoint("p", tc.amount)
			dp.ID = "dp-1"
			got := v.ValidatePoint(dp, []*models.ValidationRule{rule}, nil)
			if tc.violates {
				require.Len(t, got, 1)
				assert.Equal(t, "no-negatives", got[0].RuleID)
				assert.Equal(t, "dp-1", got[0].DataPointID)
				assert.Equal(t, models.SeverityError, got[0].Severity)
				assert.Equal(t, "amounts must not be negative", got[0].Message)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestValidatePoint_RangeMax(t *testing.T) {
	v := NewValidator(newTestStore(t), logging.NewMockLogger())
	rule := &models.ValidationRule{
		ID:       "cap",
		Kind:     KindRange,
		Field:    "amount",
		Max:      floatPtr(100000),
		Severity: models.SeverityWarning,
	}

	assert.Empty(t, v.ValidatePoint(testPoint("p", 99999), []*models.ValidationRule{rule}, nil))
	got := v.ValidatePoint(testPoint("p", 250000), []*models.ValidationRule{rule}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, models.SeverityWarning, got[0].Severity)
	assert.Contains(t, got[0].Message, "range rule failed")
}

func TestValidatePoint_Format(t *testing.T) {
	v := NewValidator(newTestStore(t), logging.NewMockLogger())
	rule := &models.ValidationRule{
		ID:       "invoice-format",
		Kind:     KindFormat,
		Field:    "invoice_no",
		Pattern:  `^INV-\d{4}-\d{3}$`,
		Severity: models.SeverityWarning,
	}

	dp := testPoint("p", 4500)
	dp.InvoiceNo = "INV-2024-001"
	assert.Empty(t, v.ValidatePoint(dp, []*models.ValidationRule{rule}, nil))

	dp.InvoiceNo = "inv 2024/1"
	assert.Len(t, v.ValidatePoint(dp, []*models.ValidationRule{rule}, nil), 1)

	// An absent value is not a format violation.
	dp.InvoiceNo = ""
	assert.Empty(t, v.ValidatePoint(dp, []*models.ValidationRule{rule}, nil))
}

func TestValidatePoint_InvalidPatternSkipped(t *testing.T) {
	v := NewValidator(newTestStore(t), logging.NewMockLogger())
	rule := &models.ValidationRule{ID: "broken", Kind: KindFormat, Field: "vendor", Pattern: `([`}

	assert.Empty(t, v.ValidatePoint(testPoint("p", 10), []*models.ValidationRule{rule}, nil))
}

func TestValidatePoint_CrossReference(t *testing.T) {
	v := NewValidator(newTestStore(t), logging.NewMockLogger())
	rule := &models.ValidationRule{
		ID:       "payment-has-invoice",
		Kind:     KindCrossReference,
		Field:    "invoice_no",
		Severity: models.SeverityWarning,
	}

	payment := testPoint("p", 4500)
	payment.ID = "payment"
	payment.InvoiceNo = "INV-2024-001"

	invoice := testPoint("p", 4500)
	invoice.ID = "invoice"
	invoice.InvoiceNo = "INV-2024-001"

	// The payment's invoice number appears on another point.
	assert.Empty(t, v.ValidatePoint(payment, []*models.ValidationRule{rule}, []*models.DataPoint{payment, invoice}))

	// Orphan reference.
	orphan := testPoint("p", 900)
	orphan.ID = "orphan"
	orphan.InvoiceNo = "INV-2024-099"
	got := v.ValidatePoint(orphan, []*models.ValidationRule{rule}, []*models.DataPoint{payment, invoice, orphan})
	require.Len(t, got, 1)
	assert.Equal(t, "payment-has-invoice", got[0].RuleID)
}

func TestValidatePoint_ScopeFilters(t *testing.T) {
	v := NewValidator(newTestStore(t), logging.NewMockLogger())
	otherType := &models.ValidationRule{
		ID: "budget-only", Kind: KindRange, Field: "amount",
		Type: models.TypeBudgetItem, Min: floatPtr(0),
	}
	otherProject := &models.ValidationRule{
		ID: "harbor-only", Kind: KindRange, Field: "amount",
		ProjectID: "harbor-west", Min: floatPtr(0),
	}

	dp := testPoint("riverside", -500)
	assert.Empty(t, v.ValidatePoint(dp, []*models.ValidationRule{otherType, otherProject}, nil),
		"rules scoped to another type or project do not apply")
}

func TestValidateProject(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(s, logging.NewMockLogger())
	ctx := context.Background()

	require.NoError(t, s.SaveValidationRule(ctx, &models.ValidationRule{
		ID:       "no-negatives",
		Kind:     KindRange,
		Field:    "amount",
		Min:      floatPtr(0),
		Severity: models.SeverityError,
	}))

	good := testPoint("p", 4500)
	bad := testPoint("p", -300)
	chf := testPoint("p", 1200)
	chf.Amount = models.NewMoneyFromFloat(1200, "CHF")
	for _, dp := range []*models.DataPoint{good, bad, chf} {
		require.NoError(t, s.Insert(ctx, dp))
	}

	violations, warnings, err := v.ValidateProject(ctx, "p")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, bad.ID, violations[0].DataPointID)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "2 currencies")
}

func TestApprove(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(s, logging.NewMockLogger())
	ctx := context.Background()

	dp := testPoint("p", 4500)
	require.NoError(t, s.Insert(ctx, dp))
	require.NoError(t, v.Approve(ctx, dp.ID))

	got, err := s.Get(ctx, dp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestApprove_BlockedByErrorViolation(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(s, logging.NewMockLogger())
	ctx := context.Background()

	require.NoError(t, s.SaveValidationRule(ctx, &models.ValidationRule{
		ID:       "no-negatives",
		Kind:     KindRange,
		Field:    "amount",
		Min:      floatPtr(0),
		Severity: models.SeverityError,
		Message:  "amounts must not be negative",
	}))

	dp := testPoint("p", -300)
	require.NoError(t, s.Insert(ctx, dp))

	err := v.Approve(ctx, dp.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocks approval")

	got, getErr := s.Get(ctx, dp.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusExtracted, got.Status)
}

func TestApprove_WarningDoesNotBlock(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(s, logging.NewMockLogger())
	ctx := context.Background()

	require.NoError(t, s.SaveValidationRule(ctx, &models.ValidationRule{
		ID:       "cap",
		Kind:     KindRange,
		Field:    "amount",
		Max:      floatPtr(1000),
		Severity: models.SeverityWarning,
	}))

	dp := testPoint("p", 5000)
	require.NoError(t, s.Insert(ctx, dp))
	require.NoError(t, v.Approve(ctx, dp.ID))
}

func TestApprove_RejectsConflictedAndSuperseded(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(s, logging.NewMockLogger())
	ctx := context.Background()

	conflicted := testPoint("p", 4500)
	require.NoError(t, s.Insert(ctx, conflicted))
	other := testPoint("p", 4500)
	require.NoError(t, s.Insert(ctx, other))

	require.NoError(t, s.InsertConflictGroup(ctx, &models.ConflictGroup{
		ID:        "grp-1",
		ProjectID: "p",
		MemberIDs: []string{conflicted.ID, other.ID},
		Type:      models.ConflictDuplicate,
		Suggested: models.ResolveKeepFirst,
	}))
	require.NoError(t, s.TagConflict(ctx, conflicted.ID, "grp-1", true))
	err := v.Approve(ctx, conflicted.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved conflict")

	old := testPoint("p", 100)
	repl := testPoint("p", 110)
	require.NoError(t, s.Insert(ctx, old))
	require.NoError(t, s.Insert(ctx, repl))
	require.NoError(t, s.Supersede(ctx, old.ID, repl.ID))
	err = v.Approve(ctx, old.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "superseded")
}
