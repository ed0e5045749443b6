// Package progress tracks on-demand queue drain jobs in memory. Jobs are
// keyed by id and evicted after a TTL once they finish, so operators can
// poll the outcome of an async drain without unbounded growth.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/mailroom/internal/errors"
)

// JobStatus represents the lifecycle state of a drain job.
type JobStatus string

const (
	// JobStatusRunning means the drain cycle is still executing.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted means the drain cycle finished without error.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed means the drain cycle aborted with an error.
	JobStatusFailed JobStatus = "failed"
)

// Job describes one on-demand drain run.
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Status     JobStatus  `json:"status"`
	Processed  int        `json:"processed"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store is an in-memory job tracker safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
	ttl  time.Duration
}

// NewStore creates a job store. Finished jobs are evicted ttl after completion.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		jobs: make(map[uuid.UUID]*Job),
		ttl:  ttl,
	}
}

// Begin registers a new running job and returns its id.
func (s *Store) Begin() uuid.UUID {
	id := uuid.Must(uuid.NewV7())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[id] = &Job{
		ID:        id,
		Status:    JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	return id
}

// Complete marks a job as completed with the number of messages processed.
func (s *Store) Complete(id uuid.UUID, processed int) {
	s.finish(id, func(job *Job) {
		job.Status = JobStatusCompleted
		job.Processed = processed
	})
}

// Fail marks a job as failed with the given error.
func (s *Store) Fail(id uuid.UUID, err error) {
	s.finish(id, func(job *Job) {
		job.Status = JobStatusFailed
		if err != nil {
			job.Error = err.Error()
		}
	})
}

func (s *Store) finish(id uuid.UUID, apply func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return
	}

	apply(job)
	now := time.Now().UTC()
	job.FinishedAt = &now
}

// Get returns a copy of the job, or ErrNotFound when unknown or evicted.
func (s *Store) Get(id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "job not found")
	}

	copied := *job
	return &copied, nil
}

// Sweep evicts finished jobs older than the TTL and returns the evicted count.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-s.ttl)
	evicted := 0
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			evicted++
		}
	}

	return evicted
}

// StartSweeper runs periodic eviction until the context is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
