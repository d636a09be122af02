// Package points handles inspection and correction of stored data points.
package points

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"findex/cmd/root"
	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/store"
)

// Cmd represents the points command.
var Cmd = &cobra.Command{
	Use:   "points",
	Short: "Inspect, correct, approve and export data points",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's data points",
	Run:   listFunc,
}

var correctCmd = &cobra.Command{
	Use:   "correct <data-point-id>",
	Short: "Manually correct fields of a data point",
	Long: `Apply manual corrections to a data point. Each --set takes
field=value; the previous values are kept in the point's edit history.

Example:
  findex points correct 02b41c77 --set amount=4500.00 --set vendor="ACME Concrete" --by "j.moreau" --reason "OCR misread"`,
	Args: cobra.ExactArgs(1),
	Run:  correctFunc,
}

var approveCmd = &cobra.Command{
	Use:   "approve <data-point-id>",
	Short: "Approve a data point",
	Long: `Move a data point to approved status. Points in unresolved
conflicts or failing an error-severity validation rule are refused.`,
	Args: cobra.ExactArgs(1),
	Run:  approveFunc,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a project's data points to CSV",
	Run:   exportFunc,
}

var (
	status     string
	includeAll bool
	sets       []string
	editor     string
	reason     string
)

func init() {
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status")
	listCmd.Flags().BoolVar(&includeAll, "all", false, "Include superseded points")
	correctCmd.Flags().StringArrayVar(&sets, "set", nil, "field=value correction, repeatable")
	correctCmd.Flags().StringVar(&editor, "by", "", "Name of the editor")
	correctCmd.Flags().StringVar(&reason, "reason", "", "Why the correction is needed")
	exportCmd.Flags().BoolVar(&includeAll, "all", false, "Include superseded points")
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(correctCmd)
	Cmd.AddCommand(approveCmd)
	Cmd.AddCommand(exportCmd)
}

func requireProject() {
	if root.SharedFlags.Project == "" {
		logging.GetLogger().Error("--project is required")
		root.Exit(1)
	}
}

func listFunc(cmd *cobra.Command, args []string) {
	requireProject()
	c := root.GetContainer()

	filter := store.QueryFilter{IncludeSuperseded: includeAll}
	if status != "" {
		filter.Status = models.DataPointStatus(status)
	}
	points, err := c.GetDataPointStore().QueryByProject(cmd.Context(), root.SharedFlags.Project, filter)
	if err != nil {
		logging.GetLogger().WithError(err).Error("Query failed")
		root.Exit(1)
	}

	for _, dp := range points {
		date := "          "
		if dp.Date != nil {
			date = dp.Date.Format("2006-01-02")
		}
		marks := ""
		if dp.Superseded() {
			marks = " superseded"
		}
		fmt.Printf("%s  %s  %-18s %12s %s  %-45s %s%s\n",
			dp.ID, date, dp.Status, dp.Amount.Amount.StringFixed(2),
			dp.Amount.Currency, dp.Description, dp.Category, marks)
	}
	fmt.Printf("%d data points\n", len(points))
}

func correctFunc(cmd *cobra.Command, args []string) {
	logger := logging.GetLogger()
	if len(sets) == 0 {
		logger.Error("At least one --set field=value is required")
		root.Exit(1)
	}

	changes := make(map[string]string, len(sets))
	for _, s := range sets {
		field, value, ok := strings.Cut(s, "=")
		if !ok || field == "" {
			logger.Error("Invalid --set, expected field=value",
				logging.Field{Key: "set", Value: s})
			root.Exit(1)
		}
		changes[field] = value
	}

	c := root.GetContainer()
	dp, err := c.GetDataPointStore().Correct(cmd.Context(), args[0], changes, editor, reason)
	if err != nil {
		logger.WithError(err).Error("Correction failed")
		root.Exit(1)
	}
	fmt.Printf("data point %s corrected (%d edits on record)\n", dp.ID, len(dp.Edits))
}

func approveFunc(cmd *cobra.Command, args []string) {
	c := root.GetContainer()
	if err := c.GetValidator().Approve(cmd.Context(), args[0]); err != nil {
		logging.GetLogger().WithError(err).Error("Approval refused")
		root.Exit(1)
	}
	fmt.Printf("data point %s approved\n", args[0])
}

func exportFunc(cmd *cobra.Command, args []string) {
	requireProject()
	logger := logging.GetLogger()
	if root.SharedFlags.Output == "" {
		logger.Error("--output is required")
		root.Exit(1)
	}

	c := root.GetContainer()
	points, err := c.GetDataPointStore().QueryByProject(cmd.Context(),
		root.SharedFlags.Project, store.QueryFilter{IncludeSuperseded: includeAll})
	if err != nil {
		logger.WithError(err).Error("Query failed")
		root.Exit(1)
	}
	if err := c.GetExporter().WriteDataPoints(points, root.SharedFlags.Output); err != nil {
		logger.WithError(err).Error("Export failed")
		root.Exit(1)
	}
	fmt.Printf("%d data points written to %s\n", len(points), root.SharedFlags.Output)
}
