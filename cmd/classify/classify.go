// Package classify handles ad hoc classification of a single transaction.
package classify

import (
	"fmt"

	"github.com/spf13/cobra"

	"findex/cmd/root"
	"findex/internal/logging"
	"findex/internal/models"
)

// Cmd represents the classify command.
var Cmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a single transaction description",
	Long: `Classify one transaction against the category taxonomy without
storing anything. Useful for checking where a description would land.

Example:
  findex classify --description "Structural engineering review" --vendor "BuildSafe Inspections"`,
	Run: classifyFunc,
}

var (
	description string
	vendor      string
	amount      string
)

func init() {
	Cmd.Flags().StringVarP(&description, "description", "d", "", "Transaction description")
	Cmd.Flags().StringVar(&vendor, "vendor", "", "Vendor name")
	Cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 1500.00")
}

func classifyFunc(cmd *cobra.Command, args []string) {
	logger := logging.GetLogger()
	if description == "" {
		logger.Error("--description is required")
		root.Exit(1)
	}

	tx := models.CandidateTransaction{
		Description: description,
		Vendor:      vendor,
	}
	if amount != "" {
		dec, err := models.ParseAmount(amount)
		if err != nil {
			logger.WithError(err).Error("Invalid amount")
			root.Exit(1)
		}
		tx.Amount = models.Money{Amount: dec, Currency: "USD"}
	}

	c := root.GetContainer()
	cls, err := c.GetPipeline().Classify(cmd.Context(), tx,
		models.DocumentType(root.SharedFlags.DocType))
	if err != nil {
		logger.WithError(err).Error("Classification failed")
		root.Exit(1)
	}

	if cls.CategoryPath == "" {
		fmt.Println("category:   (unclassified)")
	} else {
		fmt.Printf("category:   %s\n", cls.CategoryPath)
	}
	fmt.Printf("method:     %s\n", cls.Method)
	fmt.Printf("confidence: %.2f\n", cls.Confidence)
}
