package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ErrStopped is returned by Submit once the orchestrator has been stopped.
var ErrStopped = errors.New("orchestrator stopped")

// OrchestratorConfig sizes the serve-mode job queue.
type OrchestratorConfig struct {
	Workers         int
	MaxQueueSize    int
	JobTTL          time.Duration
	CleanupInterval time.Duration // How often expired jobs are evicted
}

func (c *OrchestratorConfig) defaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.JobTTL <= 0 {
		c.JobTTL = time.Hour
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
}

// Orchestrator feeds queued analysis jobs to a fixed pool of workers that
// share one Runner.
type Orchestrator struct {
	cfg    OrchestratorConfig
	runner *Runner
	jobs   *JobStore
	log    *slog.Logger

	mu      sync.RWMutex // guards stopped and sends on queue
	stopped bool
	queue   chan *Job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the queue. Call Start to launch workers.
func NewOrchestrator(cfg OrchestratorConfig, runner *Runner, log *slog.Logger) *Orchestrator {
	cfg.defaults()
	return &Orchestrator{
		cfg:    cfg,
		runner: runner,
		jobs:   NewJobStore(cfg.JobTTL),
		log:    log,
		queue:  make(chan *Job, cfg.MaxQueueSize),
	}
}

// Start launches the workers and the job eviction loop. They run until ctx
// is cancelled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	for i := range o.cfg.Workers {
		w := NewWorker(o.runner, o.log.With("worker", i))
		o.wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(ctx, job)
				}
			}
		})
	}

	o.wg.Go(func() {
		ticker := time.NewTicker(o.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := o.jobs.Cleanup(); n > 0 {
					o.log.Debug("evicted finished jobs", "count", n)
				}
			}
		}
	})
}

// Stop cancels running jobs, waits for the workers, and fails whatever was
// still queued. It is safe to call more than once.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	for job := range o.queue {
		job.AddError("server shutting down")
		job.SetStatus(StatusFailed, "cancelled")
		if dir := job.WorkDir(); dir != "" {
			_ = os.RemoveAll(dir)
		}
	}
}

// Submit registers job and queues it. A full queue fails the job
// immediately; it stays visible through GetJob either way.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		o.log.Info("job queued", "job_id", job.ID, "documents", len(job.Request().Documents))
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID, or nil once it is unknown or evicted.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Runner returns the runner jobs execute with.
func (o *Orchestrator) Runner() *Runner {
	return o.runner
}
