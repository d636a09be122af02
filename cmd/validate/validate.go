// Package validate handles project validation commands.
package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"findex/cmd/root"
	"findex/internal/logging"
)

// Cmd represents the validate command.
var Cmd = &cobra.Command{
	Use:   "validate",
	Short: "Run validation rules over a project's data points",
	Long: `Evaluate every validation rule against a project's live data
points and report violations. Error-severity violations block approval of
the points they flag.

Example:
  findex validate -p riverside-tower`,
	Run: validateFunc,
}

func validateFunc(cmd *cobra.Command, args []string) {
	logger := logging.GetLogger()
	if root.SharedFlags.Project == "" {
		logger.Error("--project is required")
		root.Exit(1)
	}

	c := root.GetContainer()
	violations, warnings, err := c.GetValidator().ValidateProject(cmd.Context(), root.SharedFlags.Project)
	if err != nil {
		logger.WithError(err).Error("Validation failed")
		root.Exit(1)
	}

	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, v := range violations {
		fmt.Printf("%-7s %s  rule=%s  %s\n", v.Severity, v.DataPointID, v.RuleID, v.Message)
	}
	if len(violations) == 0 {
		fmt.Println("no violations")
	}
}
