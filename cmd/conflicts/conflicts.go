// Package conflicts handles listing and resolving conflict groups.
package conflicts

import (
	"fmt"

	"github.com/spf13/cobra"

	"findex/cmd/root"
	"findex/internal/logging"
	"findex/internal/models"
)

// Cmd represents the conflicts command.
var Cmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List and resolve conflicting data points",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's conflict groups",
	Long: `List conflict groups for a project. By default only unresolved
groups are shown.

Example:
  findex conflicts list -p riverside-tower`,
	Run: listFunc,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <group-id>",
	Short: "Resolve a conflict group",
	Long: `Resolve one conflict group. keep_first and keep_last pick the
winner by extraction order; manual_review requires --winner. Losing data
points are superseded by the winner and drop out of aggregation.

Example:
  findex conflicts resolve 6f1c9a02 --strategy keep_first --by "j.moreau"`,
	Args: cobra.ExactArgs(1),
	Run:  resolveFunc,
}

var (
	showAll  bool
	strategy string
	winnerID string
	resolver string
)

func init() {
	listCmd.Flags().BoolVar(&showAll, "all", false, "Include resolved groups")
	resolveCmd.Flags().StringVar(&strategy, "strategy", "", "Resolution strategy (keep_first, keep_last, merge, manual_review)")
	resolveCmd.Flags().StringVar(&winnerID, "winner", "", "Winning data point id (required for manual_review and merge)")
	resolveCmd.Flags().StringVar(&resolver, "by", "", "Name of the person resolving")
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(resolveCmd)
}

func listFunc(cmd *cobra.Command, args []string) {
	logger := logging.GetLogger()
	if root.SharedFlags.Project == "" {
		logger.Error("--project is required")
		root.Exit(1)
	}

	c := root.GetContainer()
	groups, err := c.GetDataPointStore().ListConflictGroups(cmd.Context(),
		root.SharedFlags.Project, !showAll)
	if err != nil {
		logger.WithError(err).Error("Failed to list conflict groups")
		root.Exit(1)
	}
	if len(groups) == 0 {
		fmt.Println("no conflict groups")
		return
	}

	for _, g := range groups {
		state := "unresolved"
		if g.Resolved {
			state = fmt.Sprintf("resolved by %s, winner %s", g.ResolvedBy, g.WinnerID)
		}
		fmt.Printf("%s  %-16s %d members  suggested=%s  %s\n",
			g.ID, g.Type, len(g.MemberIDs), g.Suggested, state)
		for _, id := range g.MemberIDs {
			dp, err := c.GetDataPointStore().Get(cmd.Context(), id)
			if err != nil {
				continue
			}
			date := "          "
			if dp.Date != nil {
				date = dp.Date.Format("2006-01-02")
			}
			fmt.Printf("    %s  %s  %12s %s  %q  [%s]\n",
				dp.ID, date, dp.Amount.Amount.StringFixed(2), dp.Amount.Currency,
				dp.Description, dp.Lineage.SourceFileName)
		}
	}
}

func resolveFunc(cmd *cobra.Command, args []string) {
	logger := logging.GetLogger()
	if strategy == "" {
		logger.Error("--strategy is required")
		root.Exit(1)
	}

	c := root.GetContainer()
	err := c.GetResolver().Resolve(cmd.Context(), args[0],
		models.ResolutionStrategy(strategy), winnerID, resolver)
	if err != nil {
		logger.WithError(err).Error("Failed to resolve conflict group")
		root.Exit(1)
	}
	fmt.Printf("conflict group %s resolved\n", args[0])
}
