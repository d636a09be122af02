// Package job tracks batch extraction runs and executes them with a bounded
// worker pool.
package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"findex/internal/models"
)

// Job is the observable state of one batch run. Counters only ever grow.
type Job struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"project_id"`
	Status      models.JobStatus `json:"status"`
	Total       int              `json:"total"`
	Processed   int              `json:"processed"`
	Failed      int              `json:"failed"`
	Errors      []string         `json:"errors,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Percent reports completion as 0..100.
func (j *Job) Percent() float64 {
	if j.Total == 0 {
		return 100
	}
	return float64(j.Processed+j.Failed) / float64(j.Total) * 100
}

// Tracker holds job state in memory. Jobs do not survive a process restart;
// the extraction records they produced do.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*Job)}
}

// Start registers a new job and returns its id.
func (t *Tracker) Start(projectID string, total int) string {
	job := &Job{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Status:    models.JobPending,
		Total:     total,
		StartedAt: time.Now().UTC(),
	}
	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()
	return job.ID
}

// Get returns a copy of the job's current state.
func (t *Tracker) Get(id string) (*Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, fmt.Errorf("unknown job %s", id)
	}
	copied := *job
	copied.Errors = append([]string(nil), job.Errors...)
	return &copied, nil
}

func (t *Tracker) setStatus(id string, status models.JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok {
		job.Status = status
		if status == models.JobCompleted || status == models.JobFailed {
			now := time.Now().UTC()
			job.CompletedAt = &now
		}
	}
}

func (t *Tracker) fileDone(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	if err != nil {
		job.Failed++
		job.Errors = append(job.Errors, err.Error())
		return
	}
	job.Processed++
}
