package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findex/internal/logging"
	"findex/internal/models"
)

const validAnalysis = `{
  "document_info": {"type": "invoice", "number": "INV-2024-001", "vendor": "ACME Concrete"},
  "financial_summary": {"total": "4500.00", "currency": "USD"},
  "transactions": [
    {"description": "Concrete pour, foundation slab", "amount": "4500.00", "date": "2024-03-15", "confidence": 0.9}
  ],
  "payment_terms": "Net 30"
}`

func TestDocumentAnalyzer_Analyze(t *testing.T) {
	backend := &stubBackend{responses: []string{validAnalysis}}
	a := NewDocumentAnalyzer(backend, logging.NewMockLogger())

	analysis, err := a.Analyze(context.Background(), "raw invoice text", models.DocInvoice)
	require.NoError(t, err)
	assert.Equal(t, "invoice", analysis.DocumentInfo.Type)
	assert.Equal(t, "INV-2024-001", analysis.DocumentInfo.Number)
	assert.Equal(t, "4500.00", analysis.FinancialSummary.Total)
	require.Len(t, analysis.Transactions, 1)
	assert.Equal(t, "Net 30", analysis.PaymentTerms)
}

func TestDocumentAnalyzer_RejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{
			name:     "missing transactions",
			response: `{"document_info": {"type": "invoice"}}`,
		},
		{
			name:     "unknown document type",
			response: `{"document_info": {"type": "novel"}, "transactions": []}`,
		},
		{
			name:     "transaction without amount",
			response: `{"document_info": {"type": "invoice"}, "transactions": [{"description": "x"}]}`,
		},
		{
			name:     "confidence out of range",
			response: `{"document_info": {"type": "invoice"}, "transactions": [{"description": "x", "amount": "1", "confidence": 2}]}`,
		},
		{
			name:     "not JSON at all",
			response: "I could not read the document.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{responses: []string{tt.response}}
			a := NewDocumentAnalyzer(backend, logging.NewMockLogger())

			_, err := a.Analyze(context.Background(), "text", models.DocUnknown)
			assert.Error(t, err)
		})
	}
}

func TestAnalysisConfidence(t *testing.T) {
	assert.Zero(t, AnalysisConfidence(nil))
	assert.Zero(t, AnalysisConfidence(&DocumentAnalysis{}))

	full := &DocumentAnalysis{
		DocumentInfo:     DocumentInfo{Number: "INV-1", Vendor: "ACME"},
		FinancialSummary: FinancialSummary{Total: "100.00"},
		Transactions: []AnalyzedTransaction{
			{Description: "a", Amount: "50.00", Confidence: 1.0},
			{Description: "b", Amount: "50.00", Confidence: 1.0},
		},
	}
	assert.InDelta(t, 1.0, AnalysisConfidence(full), 0.001)

	partial := &DocumentAnalysis{
		Transactions: []AnalyzedTransaction{{Description: "a", Amount: "1", Confidence: 0.5}},
	}
	assert.InDelta(t, 0.35, AnalysisConfidence(partial), 0.001)
}
