// Package analyze handles whole-document AI analysis commands.
package analyze

import (
	"fmt"

	"github.com/spf13/cobra"

	"findex/cmd/root"
	"findex/internal/classify"
	"findex/internal/logging"
	"findex/internal/models"
)

// Cmd represents the analyze command.
var Cmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a whole document with the AI backend",
	Long: `Send a document's extracted text to the AI backend in one shot and
print its structured reading: document type, headline figures and line items,
with an overall confidence score. Requires AI to be enabled.

Example:
  findex analyze -i invoices/acme-2024-001.pdf -t invoice`,
	Run: analyzeFunc,
}

func analyzeFunc(cmd *cobra.Command, args []string) {
	logger := logging.GetLogger()
	if root.SharedFlags.Input == "" {
		logger.Error("--input is required")
		root.Exit(1)
	}

	c := root.GetContainer()
	analyzer := c.GetAnalyzer()
	if analyzer == nil {
		logger.Error("AI is disabled; set FINDEX_AI_ENABLED=true and GEMINI_API_KEY")
		root.Exit(1)
	}

	raw, err := c.GetRegistry().Dispatch(cmd.Context(), root.SharedFlags.Input, "")
	if err != nil {
		logger.WithError(err).Error("Extraction failed")
		root.Exit(1)
	}
	if raw.RawText == "" {
		logger.Error("No text could be extracted from the document")
		root.Exit(1)
	}

	analysis, err := analyzer.Analyze(cmd.Context(), raw.RawText,
		models.DocumentType(root.SharedFlags.DocType))
	if err != nil {
		logger.WithError(err).Error("Document analysis failed")
		root.Exit(1)
	}

	info := analysis.DocumentInfo
	fmt.Printf("type:       %s\n", info.Type)
	if info.Number != "" {
		fmt.Printf("number:     %s\n", info.Number)
	}
	if info.Date != "" {
		fmt.Printf("date:       %s\n", info.Date)
	}
	if info.Vendor != "" {
		fmt.Printf("vendor:     %s\n", info.Vendor)
	}
	sum := analysis.FinancialSummary
	if sum.Total != "" {
		fmt.Printf("total:      %s %s\n", sum.Total, sum.Currency)
	}
	if analysis.PaymentTerms != "" {
		fmt.Printf("terms:      %s\n", analysis.PaymentTerms)
	}
	fmt.Printf("confidence: %.2f\n", classify.AnalysisConfidence(analysis))

	if len(analysis.Transactions) > 0 {
		fmt.Println("\nline items:")
		for _, tx := range analysis.Transactions {
			fmt.Printf("  %-10s %12s  %-45s %s\n",
				tx.Date, tx.Amount, tx.Description, tx.CategoryPath)
		}
	}
}
