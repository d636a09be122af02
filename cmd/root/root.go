// Package root contains the root command for the application.
package root

import (
	"os"

	"github.com/spf13/cobra"

	"findex/internal/config"
	"findex/internal/container"
	"findex/internal/logging"
)

// CommonFlags represents the flags that are common to multiple commands.
type CommonFlags struct {
	Input   string
	Output  string
	Project string
	DocType string
}

var (
	// SharedFlags are accessible to all commands.
	SharedFlags = CommonFlags{}

	appContainer *container.Container

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "findex",
		Short: "Extract, classify and aggregate financial data from project documents.",
		Long: `findex ingests spreadsheets, PDFs, scanned images and CSV exports,
normalizes what it finds into classified data points with full source
lineage, detects conflicting entries, and aggregates the surviving points
into financial statement views.`,
		Run: func(cmd *cobra.Command, args []string) {
			logging.GetLogger().Info("Welcome to findex!")
			logging.GetLogger().Info("Use --help to see available commands")
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv()
			cfg, err := config.InitializeConfig()
			if err != nil {
				logging.GetLogger().WithError(err).Fatal("Failed to load configuration")
			}
			appContainer, err = container.NewContainer(cmd.Context(), cfg)
			if err != nil {
				logging.GetLogger().WithError(err).Fatal("Failed to initialize application")
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appContainer == nil {
				return
			}
			if err := appContainer.Close(); err != nil {
				logging.GetLogger().WithError(err).Warn("Shutdown cleanup failed")
			}
		},
	}
)

// GetContainer returns the wired application container. Commands call this
// from their Run functions, after PersistentPreRun has built it.
func GetContainer() *container.Container {
	return appContainer
}

// Init initializes the root command and all flags.
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input file or directory")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Project, "project", "p", "", "Project identifier")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.DocType, "type", "t", "", "Document type hint (invoice, receipt, bank_statement, budget, contract, change_order)")
}

// Exit wraps os.Exit so Run functions can fail after cleanup.
func Exit(code int) {
	if appContainer != nil {
		_ = appContainer.Close()
		appContainer = nil
	}
	os.Exit(code)
}
