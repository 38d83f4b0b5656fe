package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docrank/internal/report"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks one queued analysis run in serve mode.
type Job struct {
	mu sync.Mutex

	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	request Request
	workDir string // Uploaded files; removed once the job finishes
	result  *report.Result
}

// Progress tracks processing progress.
type Progress struct {
	DocumentsTotal   int      `json:"documents_total"`
	DocumentsDone    int      `json:"documents_done"`
	DocumentsSkipped int      `json:"documents_skipped"`
	Errors           []string `json:"errors"`
}

// NewJob creates a queued job for req whose documents live in workDir.
func NewJob(req Request, workDir string) *Job {
	now := time.Now()
	req.InputDir = workDir
	return &Job{
		ID:        NewRunID(),
		Status:    StatusQueued,
		Phase:     "queued",
		Progress:  Progress{DocumentsTotal: len(req.Documents)},
		CreatedAt: now,
		UpdatedAt: now,
		request:   req,
		workDir:   workDir,
	}
}

// JobStore is an in-memory job registry. Finished jobs are evicted once they
// have been idle longer than the TTL; queued and running jobs never are.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{jobs: make(map[string]*Job), ttl: ttl, now: time.Now}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
}

func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Cleanup evicts expired finished jobs and returns how many it removed.
func (s *JobStore) Cleanup() int {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.expired(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func (j *Job) expired(cutoff time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	finished := j.Status == StatusCompleted || j.Status == StatusFailed
	return finished && j.UpdatedAt.Before(cutoff)
}

// update applies f under the job lock and bumps UpdatedAt.
func (j *Job) update(f func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	f()
	j.UpdatedAt = time.Now()
}

func (j *Job) SetStatus(status JobStatus, phase string) {
	j.update(func() {
		j.Status = status
		j.Phase = phase
	})
}

// AddError records a job-level failure message.
func (j *Job) AddError(msg string) {
	j.update(func() { j.Progress.Errors = append(j.Progress.Errors, msg) })
}

// EnterPhase implements Observer.
func (j *Job) EnterPhase(name string) {
	j.update(func() { j.Phase = name })
}

// DocumentDone implements Observer. A skipped document counts as done and
// leaves an error message naming it.
func (j *Job) DocumentDone(name string, err error) {
	j.update(func() {
		j.Progress.DocumentsDone++
		if err != nil {
			j.Progress.DocumentsSkipped++
			j.Progress.Errors = append(j.Progress.Errors, fmt.Sprintf("%s: %s", name, err))
		}
	})
}

// Complete stores the run result and marks the job completed.
func (j *Job) Complete(res *report.Result) {
	j.update(func() {
		j.result = res
		j.Status = StatusCompleted
		j.Phase = "done"
	})
}

// Result returns the run result, or nil until the job completes.
func (j *Job) Result() *report.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Request returns the run request with the job as its observer.
func (j *Job) Request() Request {
	j.mu.Lock()
	defer j.mu.Unlock()
	req := j.request
	req.Observer = j
	return req
}

// WorkDir returns the directory holding the job's uploaded files.
func (j *Job) WorkDir() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.workDir
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string         `json:"job_id"`
	Status    JobStatus      `json:"status"`
	Phase     string         `json:"phase"`
	Persona   string         `json:"persona"`
	Job       string         `json:"job_to_be_done"`
	Documents []string       `json:"documents"`
	Progress  Progress       `json:"progress"`
	Result    *report.Result `json:"result,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	docs := append([]string{}, j.request.Documents...)
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Persona:   j.request.Persona,
		Job:       j.request.Job,
		Documents: docs,
		Progress: Progress{
			DocumentsTotal:   j.Progress.DocumentsTotal,
			DocumentsDone:    j.Progress.DocumentsDone,
			DocumentsSkipped: j.Progress.DocumentsSkipped,
			Errors:           errs,
		},
		Result: j.result,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
