// Package aggregate handles statement generation commands.
package aggregate

import (
	"fmt"

	"github.com/spf13/cobra"

	"findex/cmd/root"
	"findex/internal/logging"
)

// Cmd represents the aggregate command.
var Cmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate a project's data points into statement sections",
	Long: `Sum every countable data point of a project into balance sheet,
income statement and cash flow sections. Points in unresolved conflicts and
superseded points are excluded. With --output the statement is also written
to CSV.

Example:
  findex aggregate -p riverside-tower -o statements/riverside.csv`,
	Run: aggregateFunc,
}

func aggregateFunc(cmd *cobra.Command, args []string) {
	logger := logging.GetLogger()
	if root.SharedFlags.Project == "" {
		logger.Error("--project is required")
		root.Exit(1)
	}

	c := root.GetContainer()
	stmt, err := c.GetEngine().Aggregate(cmd.Context(), root.SharedFlags.Project)
	if err != nil {
		logger.WithError(err).Error("Aggregation failed")
		root.Exit(1)
	}

	fmt.Printf("project: %s", stmt.ProjectID)
	if stmt.Currency != "" {
		fmt.Printf(" (%s)", stmt.Currency)
	}
	fmt.Println()
	for _, name := range stmt.SortedSectionNames() {
		sec := stmt.Sections[name]
		fmt.Printf("\n%s\n", name)
		for _, leaf := range sec.SortedLeaves() {
			fmt.Printf("  %-55s %15s  (%d points)\n",
				leaf.Path, leaf.Total.StringFixed(2), len(leaf.DataPointIDs))
		}
		fmt.Printf("  %-55s %15s\n", "TOTAL", sec.SectionTotal().StringFixed(2))
	}
	if stmt.Unclassified != nil {
		fmt.Printf("\nunclassified: %s (%d points)\n",
			stmt.Unclassified.Total.StringFixed(2), len(stmt.Unclassified.DataPointIDs))
	}
	for _, w := range stmt.Warnings {
		fmt.Printf("warning: %s\n", w)
	}

	if root.SharedFlags.Output != "" {
		if err := c.GetExporter().WriteStatement(stmt, root.SharedFlags.Output); err != nil {
			logger.WithError(err).Error("Failed to write statement CSV")
			root.Exit(1)
		}
		fmt.Printf("\nwritten to %s\n", root.SharedFlags.Output)
	}
}
