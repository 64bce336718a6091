package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/use-agent/stayscan/models"
)

// MemoryStore keeps jobs in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	jobs   map[string]*models.ScrapeJob
	active map[string]string // listing URL -> job id
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:   make(map[string]*models.ScrapeJob),
		active: make(map[string]string),
	}
}

func (s *MemoryStore) CreateIfAbsent(_ context.Context, job *models.ScrapeJob) (*models.ScrapeJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.active[job.ListingURL]; ok {
		if existing, ok := s.jobs[id]; ok && !existing.Status.Terminal() {
			return existing.Clone(), false, nil
		}
	}
	stored := job.Clone()
	s.jobs[stored.ID] = stored
	if !stored.Status.Terminal() {
		s.active[stored.ListingURL] = stored.ID
	}
	return stored.Clone(), true, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.ScrapeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*models.ScrapeJob) error) (*models.ScrapeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	next := job.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.jobs[id] = next
	if next.Status.Terminal() && s.active[next.ListingURL] == id {
		delete(s.active, next.ListingURL)
	}
	return next.Clone(), nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]*models.ScrapeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.ScrapeJob, 0, len(s.active))
	for _, id := range s.active {
		if job, ok := s.jobs[id]; ok {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteFinishedBefore(_ context.Context, t time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, job := range s.jobs {
		if job.Status.Terminal() && job.FinishedAt != nil && job.FinishedAt.Before(t) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}
