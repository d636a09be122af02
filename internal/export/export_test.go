package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findex/internal/logging"
	"findex/internal/models"
)

func readRows(t *testing.T, path string, delimiter rune) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	r := csv.NewReader(strings.NewReader(string(data)))
	r.Comma = delimiter
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteDataPoints(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	points := []*models.DataPoint{
		{
			ID:        "dp-1",
			ProjectID: "riverside",
			Lineage: models.Lineage{
				SourceFileName: "march_costs.xlsx",
				SourceFileType: models.FileTypeExcel,
			},
			Type:          models.TypeCost,
			Status:        models.StatusValidated,
			Date:          &date,
			Description:   "Concrete pour foundation",
			Amount:        models.NewMoneyFromFloat(4500, "USD"),
			Vendor:        "ACME Concrete",
			InvoiceNo:     "INV-2024-001",
			Category:      "income_statement.cogs.materials",
			MappingMethod: models.MethodKeyword,
			Confidence:    0.765,
		},
		{
			ID:          "dp-2",
			ProjectID:   "riverside",
			Type:        models.TypeCost,
			Status:      models.StatusExtracted,
			Description: "Undated charge",
			Amount:      models.NewMoneyFromFloat(99.5, "USD"),
		},
	}

	out := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, NewExporter(',', logging.NewMockLogger()).WriteDataPoints(points, out))

	rows := readRows(t, out, ',')
	require.Len(t, rows, 3)
	header := rows[0]
	assert.Equal(t, "id", header[0])
	assert.Contains(t, header, "amount")
	assert.Contains(t, header, "source_file")

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	assert.Equal(t, "dp-1", rows[1][col("id")])
	assert.Equal(t, "4500.00", rows[1][col("amount")])
	assert.Equal(t, "2024-03-15", rows[1][col("date")])
	assert.Equal(t, "0.77", rows[1][col("confidence")])
	assert.Equal(t, "march_costs.xlsx", rows[1][col("source_file")])

	assert.Equal(t, "99.50", rows[2][col("amount")])
	assert.Equal(t, "", rows[2][col("date")], "undated points export an empty date")
}

func TestWriteDataPoints_NilSlice(t *testing.T) {
	e := NewExporter(',', logging.NewMockLogger())
	assert.Error(t, e.WriteDataPoints(nil, filepath.Join(t.TempDir(), "x.csv")))
}

func TestWriteDataPoints_EmptySlice(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, NewExporter(',', logging.NewMockLogger()).WriteDataPoints([]*models.DataPoint{}, out))

	rows := readRows(t, out, ',')
	require.Len(t, rows, 1, "empty projects still get a header row")
}

func TestWriteDataPoints_SemicolonDelimiter(t *testing.T) {
	points := []*models.DataPoint{{
		ID:          "dp-1",
		ProjectID:   "p",
		Description: "Drywall, delivery and install",
		Amount:      models.NewMoneyFromFloat(2300, "CHF"),
	}}

	out := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, NewExporter(';', logging.NewMockLogger()).WriteDataPoints(points, out))

	rows := readRows(t, out, ';')
	require.Len(t, rows, 2)
	assert.Equal(t, "Drywall, delivery and install", rows[1][5])
}

func TestWriteStatement(t *testing.T) {
	stmt := &models.AggregatedStatement{
		ProjectID: "riverside",
		Currency:  "USD",
		Sections: map[string]*models.StatementSection{
			"income_statement": {
				Leaves: map[models.CategoryPath]*models.StatementLeaf{
					"income_statement.opex.professional_fees": {
						Path:         "income_statement.opex.professional_fees",
						Total:        decimal.NewFromInt(950),
						Currency:     "USD",
						DataPointIDs: []string{"dp-3"},
					},
					"income_statement.cogs.materials": {
						Path:         "income_statement.cogs.materials",
						Total:        decimal.NewFromInt(7700),
						Currency:     "USD",
						DataPointIDs: []string{"dp-1", "dp-2"},
					},
				},
			},
		},
		Unclassified: &models.StatementLeaf{
			Path:         "unclassified",
			Total:        decimal.NewFromFloat(120.5),
			Currency:     "USD",
			DataPointIDs: []string{"dp-4"},
		},
	}

	out := filepath.Join(t.TempDir(), "statement.csv")
	require.NoError(t, NewExporter(',', logging.NewMockLogger()).WriteStatement(stmt, out))

	rows := readRows(t, out, ',')
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"section", "category", "total", "currency", "data_point_count"}, rows[0])

	// Leaves sorted by path, then the section subtotal.
	assert.Equal(t, "income_statement.cogs.materials", rows[1][1])
	assert.Equal(t, "7700.00", rows[1][2])
	assert.Equal(t, "2", rows[1][4])
	assert.Equal(t, "income_statement.opex.professional_fees", rows[2][1])
	assert.Equal(t, "TOTAL", rows[3][1])
	assert.Equal(t, "8650.00", rows[3][2])
	assert.Equal(t, "unclassified", rows[4][0])
	assert.Equal(t, "120.50", rows[4][2])
}

func TestWriteStatement_Nil(t *testing.T) {
	e := NewExporter(',', logging.NewMockLogger())
	assert.Error(t, e.WriteStatement(nil, filepath.Join(t.TempDir(), "x.csv")))
}
