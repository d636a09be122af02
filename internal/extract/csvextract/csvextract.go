// Package csvextract extracts candidate transactions from CSV files.
// The first row is treated as headers if it is non-numeric; otherwise every
// row is headerless tabular data and column roles are inferred positionally.
package csvextract

import (
	"context"
	"encoding/csv"
	"os"
	"strings"
	"time"

	"findex/internal/dateutils"
	"findex/internal/extract"
	"findex/internal/logging"
	"findex/internal/models"
)

const (
	headerConfidence     = 0.85
	positionalConfidence = 0.70
)

// Extractor extracts candidate transactions from CSV files.
type Extractor struct {
	delimiter rune
	logger    logging.Logger
}

// New creates a CSV extractor using the given field delimiter.
func New(delimiter rune, logger logging.Logger) *Extractor {
	if delimiter == 0 {
		delimiter = ','
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Extractor{delimiter: delimiter, logger: logger}
}

// columnRoles maps semantic roles to column indexes (-1 when absent).
type columnRoles struct {
	description int
	amount      int
	date        int
	vendor      int
	invoice     int
}

// Extract reads the whole file, sniffs for a header row and converts each
// data row into at most one candidate transaction.
func (e *Extractor) Extract(ctx context.Context, path string) (models.RawExtraction, error) {
	if err := ctx.Err(); err != nil {
		return models.RawExtraction{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Failed(path, models.FileTypeCSV, "csv", err), nil
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = e.delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return extract.Failed(path, models.FileTypeCSV, "csv", err), nil
	}

	result := models.RawExtraction{
		FileType: models.FileTypeCSV,
		Method:   "csv",
		RawText:  string(data),
		Status:   models.ExtractionSuccess,
	}
	if len(rows) == 0 {
		return result, nil
	}

	confidence := positionalConfidence
	dataRows := rows
	var roles columnRoles

	if isHeaderRow(rows[0]) {
		roles = rolesFromHeaders(rows[0])
		dataRows = rows[1:]
		confidence = headerConfidence
	} else {
		roles = inferRoles(rows)
	}

	firstDataRow := len(rows) - len(dataRows)
	for i, row := range dataRows {
		tx, ok := candidateFromRow(row, roles, confidence)
		if !ok {
			continue
		}
		tx.Location = models.SourceLocation{Row: firstDataRow + i + 1}
		result.Transactions = append(result.Transactions, tx)
	}

	return result, nil
}

// isHeaderRow reports whether a row looks like column headers: no cell
// parses as a number or a date.
func isHeaderRow(row []string) bool {
	nonEmpty := 0
	for _, raw := range row {
		cell := strings.TrimSpace(raw)
		if cell == "" {
			continue
		}
		nonEmpty++
		if _, err := models.ParseAmount(cell); err == nil {
			return false
		}
		if dateutils.TryParseDate(cell) != nil {
			return false
		}
	}
	return nonEmpty > 0
}

// rolesFromHeaders maps known header names onto column roles.
func rolesFromHeaders(headers []string) columnRoles {
	roles := columnRoles{description: -1, amount: -1, date: -1, vendor: -1, invoice: -1}
	for i, raw := range headers {
		h := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case roles.description < 0 && containsAny(h, "description", "desc", "memo", "item", "detail", "narrative"):
			roles.description = i
		case roles.amount < 0 && containsAny(h, "amount", "total", "cost", "value", "price", "debit", "credit"):
			roles.amount = i
		case roles.date < 0 && strings.Contains(h, "date"):
			roles.date = i
		case roles.vendor < 0 && containsAny(h, "vendor", "supplier", "payee", "merchant", "party"):
			roles.vendor = i
		case roles.invoice < 0 && strings.Contains(h, "invoice"):
			roles.invoice = i
		}
	}
	return roles
}

// inferRoles assigns column roles positionally by profiling the data: the
// column most often numeric becomes the amount, the first mostly-textual
// column the description, the first date-bearing column the date.
func inferRoles(rows [][]string) columnRoles {
	roles := columnRoles{description: -1, amount: -1, date: -1, vendor: -1, invoice: -1}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	numericHits := make([]int, width)
	dateHits := make([]int, width)
	textHits := make([]int, width)
	for _, row := range rows {
		for i, raw := range row {
			cell := strings.TrimSpace(raw)
			if cell == "" {
				continue
			}
			if dateutils.TryParseDate(cell) != nil {
				dateHits[i]++
				continue
			}
			if _, err := models.ParseAmount(cell); err == nil {
				numericHits[i]++
				continue
			}
			textHits[i]++
		}
	}

	for i := 0; i < width; i++ {
		if roles.description < 0 && textHits[i] > numericHits[i] && textHits[i] > 0 {
			roles.description = i
		}
		if roles.date < 0 && dateHits[i] > 0 {
			roles.date = i
		}
		if roles.amount < 0 || (roles.amount >= 0 && numericHits[i] > numericHits[roles.amount]) {
			if numericHits[i] > 0 {
				roles.amount = i
			}
		}
	}

	return roles
}

func candidateFromRow(row []string, roles columnRoles, confidence float64) (models.CandidateTransaction, bool) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	description := cell(roles.description)
	amountStr := cell(roles.amount)
	if description == "" || amountStr == "" {
		return models.CandidateTransaction{}, false
	}

	amount, err := models.ParseAmount(amountStr)
	if err != nil {
		return models.CandidateTransaction{}, false
	}

	var date *time.Time
	if d := cell(roles.date); d != "" {
		date = dateutils.TryParseDate(d)
	}

	return models.CandidateTransaction{
		Description: description,
		Amount:      models.NewMoney(amount, ""),
		Date:        date,
		Vendor:      cell(roles.vendor),
		Reference:   cell(roles.invoice),
		Confidence:  confidence,
	}, true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
