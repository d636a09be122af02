// Package excelextract extracts candidate transactions from Excel workbooks.
// Every sheet is scanned row by row; a row becomes a candidate when it pairs
// a description-like cell with a numeric-like cell. The heuristics are
// deliberately tolerant: empty rows, formula-error strings and unparseable
// dates are skipped or nulled, never fatal.
package excelextract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"findex/internal/dateutils"
	"findex/internal/extract"
	"findex/internal/logging"
	"findex/internal/models"
)

// Rows read straight from a workbook carry high confidence relative to
// text-layout extraction from PDFs.
const cellConfidence = 0.9

// Excel formula error strings that must be tolerated inside cells.
var formulaErrors = map[string]bool{
	"#REF!": true, "#N/A": true, "#NAME?": true, "#VALUE!": true,
	"#DIV/0!": true, "#NULL!": true, "#NUM!": true,
}

// Extractor extracts candidate transactions from .xlsx/.xls workbooks.
type Extractor struct {
	logger logging.Logger
}

// New creates an Excel extractor.
func New(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Extractor{logger: logger}
}

// Extract scans every sheet of the workbook. Unreadable sheets are recorded
// as errors while readable ones still contribute, yielding partial status.
func (e *Extractor) Extract(ctx context.Context, path string) (models.RawExtraction, error) {
	if err := ctx.Err(); err != nil {
		return models.RawExtraction{}, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return extract.Failed(path, models.FileTypeExcel, "excelize", err), nil
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.WithError(cerr).Warn("Failed to close workbook",
				logging.Field{Key: logging.FieldFile, Value: path})
		}
	}()

	result := models.RawExtraction{
		FileType: models.FileTypeExcel,
		Method:   "excelize",
	}

	var rawText strings.Builder
	sheets := f.GetSheetList()
	failedSheets := 0

	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			failedSheets++
			result.Errors = append(result.Errors, fmt.Sprintf("sheet '%s': %v", sheet, err))
			continue
		}

		for rowIdx, row := range rows {
			for _, cell := range row {
				if cell != "" {
					rawText.WriteString(cell)
					rawText.WriteString("\t")
				}
			}
			rawText.WriteString("\n")

			if tx, ok := candidateFromRow(sheet, rowIdx, row); ok {
				result.Transactions = append(result.Transactions, tx)
			}
		}
	}

	result.RawText = rawText.String()

	switch {
	case len(sheets) == 0 || failedSheets == len(sheets):
		result.Status = models.ExtractionFailed
		if len(result.Errors) == 0 {
			result.Errors = []string{"workbook contains no readable sheets"}
		}
	case failedSheets > 0:
		result.Status = models.ExtractionPartial
	default:
		result.Status = models.ExtractionSuccess
	}

	return result, nil
}

// candidateFromRow decides whether a row resembles a financial entry and
// builds the candidate if so. The amount is the largest absolute numeric
// value in the row, which survives rows like [desc, amount, 0, amount, date]
// that repeat a total column.
func candidateFromRow(sheet string, rowIdx int, row []string) (models.CandidateTransaction, bool) {
	var (
		description string
		date        *time.Time
		amount      decimal.Decimal
		haveAmount  bool
	)

	for _, raw := range row {
		cell := strings.TrimSpace(raw)
		if cell == "" || formulaErrors[strings.ToUpper(cell)] {
			continue
		}

		if d := dateutils.TryParseDate(cell); d != nil {
			if date == nil {
				date = d
			}
			continue
		}

		if dec, err := models.ParseAmount(cell); err == nil && looksNumeric(cell) {
			if !haveAmount || dec.Abs().GreaterThan(amount.Abs()) {
				amount = dec
			}
			haveAmount = true
			continue
		}

		if description == "" && looksDescriptive(cell) {
			description = cell
		}
	}

	if description == "" || !haveAmount {
		return models.CandidateTransaction{}, false
	}

	return models.CandidateTransaction{
		Description: description,
		Amount:      models.NewMoney(amount, ""),
		Date:        date,
		Location: models.SourceLocation{
			Sheet: sheet,
			Row:   rowIdx + 1,
		},
		Confidence: cellConfidence,
	}, true
}

// looksNumeric accepts cells that are numbers possibly dressed up with
// currency symbols and separators, and rejects free text that happens to
// contain digits.
func looksNumeric(cell string) bool {
	digits := 0
	for _, r := range cell {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' || r == ',' || r == '\'' || r == ' ' || r == '-' || r == '+':
		case r == '$' || r == '€' || r == '£':
		default:
			// Letter-bearing cells are only numeric if the letters are a
			// leading currency code like "CHF 1'200.00".
			if digits == 0 && (r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
				continue
			}
			return false
		}
	}
	return digits > 0
}

// looksDescriptive accepts cells with enough letters to be a description.
func looksDescriptive(cell string) bool {
	letters := 0
	for _, r := range cell {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
			letters++
		}
	}
	return letters >= 3
}
