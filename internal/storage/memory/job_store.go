package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

// JobStore provides an in-memory JobRepository for development/testing.
type JobStore struct {
	mu    sync.RWMutex
	ids   outreach.IDGenerator
	jobs  map[string]outreach.Job
	order []string
}

// NewJobStore constructs a JobStore that assigns ids with gen.
func NewJobStore(gen outreach.IDGenerator) *JobStore {
	return &JobStore{
		ids:  gen,
		jobs: make(map[string]outreach.Job),
	}
}

// Save stores a copy of the job, assigning an id on first persist.
func (s *JobStore) Save(_ context.Context, job outreach.Job) (outreach.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return outreach.Job{}, fmt.Errorf("generate job id: %w", err)
		}
		job.ID = id
	}
	if _, exists := s.jobs[job.ID]; !exists {
		s.order = append(s.order, job.ID)
	}
	s.jobs[job.ID] = cloneJob(job)
	return job, nil
}

// FindAll returns every job in creation order.
func (s *JobStore) FindAll(_ context.Context) ([]outreach.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]outreach.Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneJob(s.jobs[id]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Get fetches a job by id.
func (s *JobStore) Get(_ context.Context, id string) (outreach.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return outreach.Job{}, fmt.Errorf("job %s: %w", id, outreach.ErrNotFound)
	}
	return cloneJob(job), nil
}

func cloneJob(job outreach.Job) outreach.Job {
	places := make([]outreach.Venue, len(job.Places))
	copy(places, job.Places)
	job.Places = places
	return job
}
