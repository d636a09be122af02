// Package export writes data points and aggregated statements to CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"findex/internal/logging"
	"findex/internal/models"
)

// Exporter writes CSV files with a configurable delimiter.
type Exporter struct {
	delimiter rune
	logger    logging.Logger
}

// NewExporter builds an exporter. A zero delimiter defaults to comma.
func NewExporter(delimiter rune, logger logging.Logger) *Exporter {
	if delimiter == 0 {
		delimiter = ','
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Exporter{delimiter: delimiter, logger: logger}
}

// dataPointRow is the flattened CSV shape of a data point.
type dataPointRow struct {
	ID          string `csv:"id"`
	ProjectID   string `csv:"project_id"`
	Type        string `csv:"type"`
	Status      string `csv:"status"`
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Currency    string `csv:"currency"`
	Vendor      string `csv:"vendor"`
	InvoiceNo   string `csv:"invoice_no"`
	Category    string `csv:"category"`
	Method      string `csv:"mapping_method"`
	Confidence  string `csv:"confidence"`
	SourceFile  string `csv:"source_file"`
	Conflict    string `csv:"conflict_group_id"`
	Superseded  string `csv:"superseded_by"`
}

// WriteDataPoints writes a project's data points to a CSV file, one row per
// point, amounts with two decimal places.
func (e *Exporter) WriteDataPoints(points []*models.DataPoint, csvFile string) error {
	if points == nil {
		return fmt.Errorf("cannot write nil data points to CSV")
	}

	rows := make([]dataPointRow, 0, len(points))
	for _, dp := range points {
		row := dataPointRow{
			ID:          dp.ID,
			ProjectID:   dp.ProjectID,
			Type:        string(dp.Type),
			Status:      string(dp.Status),
			Description: dp.Description,
			Amount:      dp.Amount.Amount.StringFixed(2),
			Currency:    dp.Amount.Currency,
			Vendor:      dp.Vendor,
			InvoiceNo:   dp.InvoiceNo,
			Category:    string(dp.Category),
			Method:      string(dp.MappingMethod),
			Confidence:  fmt.Sprintf("%.2f", dp.Confidence),
			SourceFile:  dp.Lineage.SourceFileName,
			Conflict:    dp.ConflictGroupID,
			Superseded:  dp.SupersededBy,
		}
		if dp.Date != nil {
			row.Date = dp.Date.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return e.writeCSV(rows, csvFile, len(points))
}

// statementRow is one statement line in CSV form.
type statementRow struct {
	Section    string `csv:"section"`
	Category   string `csv:"category"`
	Total      string `csv:"total"`
	Currency   string `csv:"currency"`
	DataPoints string `csv:"data_point_count"`
}

// WriteStatement writes an aggregated statement to CSV, sections and leaves
// in sorted order with a per-section subtotal line.
func (e *Exporter) WriteStatement(stmt *models.AggregatedStatement, csvFile string) error {
	if stmt == nil {
		return fmt.Errorf("cannot write nil statement to CSV")
	}

	var rows []statementRow
	for _, name := range stmt.SortedSectionNames() {
		sec := stmt.Sections[name]
		for _, leaf := range sec.SortedLeaves() {
			rows = append(rows, statementRow{
				Section:    name,
				Category:   string(leaf.Path),
				Total:      leaf.Total.StringFixed(2),
				Currency:   leaf.Currency,
				DataPoints: fmt.Sprintf("%d", len(leaf.DataPointIDs)),
			})
		}
		rows = append(rows, statementRow{
			Section:  name,
			Category: "TOTAL",
			Total:    sec.SectionTotal().StringFixed(2),
			Currency: stmt.Currency,
		})
	}
	if stmt.Unclassified != nil {
		rows = append(rows, statementRow{
			Section:    "unclassified",
			Category:   "unclassified",
			Total:      stmt.Unclassified.Total.StringFixed(2),
			Currency:   stmt.Unclassified.Currency,
			DataPoints: fmt.Sprintf("%d", len(stmt.Unclassified.DataPointIDs)),
		})
	}
	return e.writeCSV(rows, csvFile, len(rows))
}

func (e *Exporter) writeCSV(rows interface{}, csvFile string, count int) error {
	if err := os.MkdirAll(filepath.Dir(csvFile), 0750); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	file, err := os.Create(csvFile)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			e.logger.WithError(err).Warn("Failed to close file")
		}
	}()

	csvWriter := csv.NewWriter(file)
	csvWriter.Comma = e.delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}

	e.logger.Info("CSV file written",
		logging.Field{Key: logging.FieldFile, Value: csvFile},
		logging.Field{Key: logging.FieldCount, Value: count})
	return nil
}
