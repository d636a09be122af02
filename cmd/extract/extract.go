// Package extract handles single-file extraction commands.
package extract

import (
	"fmt"

	"github.com/spf13/cobra"

	"findex/cmd/root"
	"findex/internal/logging"
	"findex/internal/models"
)

// Cmd represents the extract command.
var Cmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract and classify data points from a single file",
	Long: `Extract candidate transactions from one document, classify them
against the category taxonomy, store the resulting data points and scan the
project for conflicts.

Example:
  findex extract -i invoices/acme-2024-001.pdf -p riverside-tower -t invoice`,
	Run: extractFunc,
}

func extractFunc(cmd *cobra.Command, args []string) {
	logger := logging.GetLogger()
	if root.SharedFlags.Input == "" || root.SharedFlags.Project == "" {
		logger.Error("Both --input and --project are required")
		root.Exit(1)
	}

	c := root.GetContainer()
	result, err := c.GetPipeline().ProcessFile(cmd.Context(),
		root.SharedFlags.Project, root.SharedFlags.Input,
		models.DocumentType(root.SharedFlags.DocType))
	if err != nil {
		logger.WithError(err).Error("Extraction failed")
		root.Exit(1)
	}

	fmt.Printf("file:       %s (%s)\n", result.FileName, result.FileID)
	fmt.Printf("status:     %s\n", result.Status)
	fmt.Printf("extracted:  %d\n", result.Extracted)
	fmt.Printf("stored:     %d\n", result.Stored)
	fmt.Printf("conflicted: %d\n", result.Conflicted)
	for _, w := range result.Warnings {
		fmt.Printf("warning:    %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Printf("error:      %s\n", e)
	}
}
