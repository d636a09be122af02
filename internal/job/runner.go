package job

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/pipeline"
)

// Runner executes batch jobs over the pipeline with a bounded worker pool.
type Runner struct {
	pipeline *pipeline.Pipeline
	tracker  *Tracker
	workers  int
	logger   logging.Logger
}

// NewRunner builds a runner. workers caps concurrent files.
func NewRunner(p *pipeline.Pipeline, tracker *Tracker, workers int, logger logging.Logger) *Runner {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Runner{pipeline: p, tracker: tracker, workers: workers, logger: logger}
}

// Run processes every file and blocks until the batch finishes or the
// context is cancelled. One file failing never stops the rest; cancellation
// is cooperative, workers stop picking up files but in-flight files run to
// completion. Returns the job id.
func (r *Runner) Run(ctx context.Context, projectID string, paths []string, hint models.DocumentType) (string, error) {
	jobID := r.tracker.Start(projectID, len(paths))
	r.tracker.setStatus(jobID, models.JobProcessing)
	r.logger.Info("batch started",
		logging.Field{Key: logging.FieldJob, Value: jobID},
		logging.Field{Key: logging.FieldProject, Value: projectID},
		logging.Field{Key: logging.FieldCount, Value: len(paths)})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if gctx.Err() != nil {
				r.tracker.fileDone(jobID, fmt.Errorf("%s: skipped, batch cancelled", path))
				return nil
			}
			result, err := r.pipeline.ProcessFile(gctx, projectID, path, hint)
			switch {
			case err != nil:
				r.tracker.fileDone(jobID, fmt.Errorf("%s: %w", path, err))
			case result.Status == models.ExtractionFailed:
				r.tracker.fileDone(jobID, fmt.Errorf("%s: extraction failed: %v", path, result.Errors))
			default:
				r.tracker.fileDone(jobID, nil)
			}
			return nil
		})
	}

	_ = g.Wait()

	if ctx.Err() != nil {
		r.tracker.setStatus(jobID, models.JobFailed)
		return jobID, ctx.Err()
	}
	r.tracker.setStatus(jobID, models.JobCompleted)

	job, _ := r.tracker.Get(jobID)
	r.logger.Info("batch finished",
		logging.Field{Key: logging.FieldJob, Value: jobID},
		logging.Field{Key: logging.FieldCount, Value: job.Processed},
		logging.Field{Key: "failed", Value: job.Failed})
	return jobID, nil
}
