// Package batch handles batch processing of document directories.
package batch

import (
	"fmt"

	"github.com/spf13/cobra"

	"findex/cmd/root"
	"findex/internal/fileutils"
	"findex/internal/logging"
	"findex/internal/models"
)

// Cmd represents the batch command.
var Cmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch process every supported file in a directory",
	Long: `Batch process all supported files (xlsx, xls, pdf, csv, png, jpg, tiff)
in a directory. Files are processed concurrently; one file failing never
stops the rest.

Example:
  findex batch -i documents/ -p riverside-tower`,
	Run: batchFunc,
}

var supportedExtensions = []string{
	"xlsx", "xls", "xlsm", "pdf", "csv", "png", "jpg", "jpeg", "tif", "tiff",
}

func batchFunc(cmd *cobra.Command, args []string) {
	logger := logging.GetLogger()
	if root.SharedFlags.Input == "" || root.SharedFlags.Project == "" {
		logger.Error("Both --input and --project are required")
		root.Exit(1)
	}
	if !fileutils.DirectoryExists(root.SharedFlags.Input) {
		logger.Error("Input directory does not exist",
			logging.Field{Key: logging.FieldFile, Value: root.SharedFlags.Input})
		root.Exit(1)
	}

	paths, err := fileutils.ListFiles(root.SharedFlags.Input, supportedExtensions...)
	if err != nil {
		logger.WithError(err).Error("Failed to list input directory")
		root.Exit(1)
	}
	if len(paths) == 0 {
		logger.Warn("No supported files found in input directory")
		return
	}

	c := root.GetContainer()
	jobID, err := c.GetRunner().Run(cmd.Context(),
		root.SharedFlags.Project, paths,
		models.DocumentType(root.SharedFlags.DocType))
	if err != nil {
		logger.WithError(err).Error("Batch run aborted")
		root.Exit(1)
	}

	job, err := c.GetTracker().Get(jobID)
	if err != nil {
		logger.WithError(err).Error("Failed to read job state")
		root.Exit(1)
	}
	fmt.Printf("job:       %s\n", job.ID)
	fmt.Printf("status:    %s\n", job.Status)
	fmt.Printf("processed: %d/%d\n", job.Processed, job.Total)
	fmt.Printf("failed:    %d\n", job.Failed)
	for _, e := range job.Errors {
		fmt.Printf("error:     %s\n", e)
	}
}
