package pipeline

import (
	"context"
	"log/slog"
	"os"
)

// Worker executes analysis jobs.
type Worker struct {
	runner *Runner
	log    *slog.Logger
}

func NewWorker(runner *Runner, log *slog.Logger) *Worker {
	return &Worker{runner: runner, log: log}
}

// Process runs one job to completion and removes its uploaded files.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	defer func() {
		if dir := job.WorkDir(); dir != "" {
			if err := os.RemoveAll(dir); err != nil {
				log.Warn("remove job files failed", "dir", dir, "error", err)
			}
		}
	}()

	job.SetStatus(StatusRunning, "starting")
	res, err := w.runner.Run(ctx, job.Request())
	if err != nil {
		log.Error("analysis failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "failed")
		return
	}

	job.Complete(res)
	log.Info("analysis complete", "sections", len(res.ExtractedSections))
}
