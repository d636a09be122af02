package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"findex/internal/logging"
	"findex/internal/models"
)

// DocumentAnalysis is the structured reading of a whole document that the AI
// backend produces: what kind of document it is, its headline figures, and
// its line items. Fields the model could not find are left empty.
type DocumentAnalysis struct {
	DocumentInfo     DocumentInfo          `json:"document_info"`
	FinancialSummary FinancialSummary      `json:"financial_summary"`
	Transactions     []AnalyzedTransaction `json:"transactions"`
	PaymentTerms     string                `json:"payment_terms,omitempty"`
}

// DocumentInfo identifies the document itself.
type DocumentInfo struct {
	Type      string `json:"type"`
	Number    string `json:"number,omitempty"`
	Date      string `json:"date,omitempty"`
	Vendor    string `json:"vendor,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

// FinancialSummary carries the document-level totals.
type FinancialSummary struct {
	Subtotal string `json:"subtotal,omitempty"`
	Tax      string `json:"tax,omitempty"`
	Total    string `json:"total,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// AnalyzedTransaction is one line item as the model read it.
type AnalyzedTransaction struct {
	Description  string  `json:"description"`
	Amount       string  `json:"amount"`
	Date         string  `json:"date,omitempty"`
	CategoryPath string  `json:"category_path,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// documentSchema pins down the shape the model must return. Responses that
// drift from it are rejected before anything downstream touches them.
const documentSchema = `{
  "type": "object",
  "required": ["document_info", "transactions"],
  "properties": {
    "document_info": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"type": "string", "enum": ["invoice", "receipt", "bank_statement", "budget", "contract", "change_order", "unknown"]},
        "number": {"type": "string"},
        "date": {"type": "string"},
        "vendor": {"type": "string"},
        "recipient": {"type": "string"}
      }
    },
    "financial_summary": {
      "type": "object",
      "properties": {
        "subtotal": {"type": "string"},
        "tax": {"type": "string"},
        "total": {"type": "string"},
        "currency": {"type": "string"}
      }
    },
    "transactions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["description", "amount"],
        "properties": {
          "description": {"type": "string", "minLength": 1},
          "amount": {"type": "string"},
          "date": {"type": "string"},
          "category_path": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    },
    "payment_terms": {"type": "string"}
  }
}`

var compiledDocumentSchema = jsonschema.MustCompileString("document.json", documentSchema)

// DocumentAnalyzer asks the AI backend to read an entire document's raw text
// in one shot, used for unstructured sources where row-by-row extraction has
// little to work with.
type DocumentAnalyzer struct {
	backend AIBackend
	logger  logging.Logger
}

// NewDocumentAnalyzer builds an analyzer over the given backend.
func NewDocumentAnalyzer(backend AIBackend, logger logging.Logger) *DocumentAnalyzer {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &DocumentAnalyzer{backend: backend, logger: logger}
}

// Analyze sends the document text and validates the model's JSON against the
// fixed schema before decoding it.
func (a *DocumentAnalyzer) Analyze(ctx context.Context, rawText string, hint models.DocumentType) (*DocumentAnalysis, error) {
	prompt := buildDocumentPrompt(rawText, hint)

	raw, err := a.backend.Generate(ctx, prompt)
	if err != nil {
		return nil, backendFailure("document analysis", a.backend.Name(), err)
	}
	body := stripCodeFence(raw)

	var generic interface{}
	if err := json.Unmarshal([]byte(body), &generic); err != nil {
		return nil, backendFailure("document analysis", a.backend.Name(),
			fmt.Errorf("response is not valid JSON: %w", err))
	}
	if err := compiledDocumentSchema.Validate(generic); err != nil {
		return nil, backendFailure("document analysis", a.backend.Name(),
			fmt.Errorf("response does not match document schema: %w", err))
	}

	var analysis DocumentAnalysis
	if err := json.Unmarshal([]byte(body), &analysis); err != nil {
		return nil, backendFailure("document analysis", a.backend.Name(),
			fmt.Errorf("failed to decode validated response: %w", err))
	}
	return &analysis, nil
}

func buildDocumentPrompt(rawText string, hint models.DocumentType) string {
	header := "Read the financial document below and extract its structure.\n"
	if hint != "" {
		header += fmt.Sprintf("The caller believes this is a %s.\n", hint)
	}
	return header + `Respond with JSON only, matching exactly this shape:
{
  "document_info": {"type": "invoice|receipt|bank_statement|budget|contract|change_order|unknown", "number": "", "date": "YYYY-MM-DD", "vendor": "", "recipient": ""},
  "financial_summary": {"subtotal": "", "tax": "", "total": "", "currency": ""},
  "transactions": [{"description": "", "amount": "", "date": "YYYY-MM-DD", "category_path": "", "confidence": 0.0}],
  "payment_terms": ""
}
Amounts are plain decimal strings without currency symbols. Omit fields you cannot find.

Document text:
` + rawText
}
