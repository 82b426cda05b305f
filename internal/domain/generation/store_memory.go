package generation

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is the in-process JobStore used when no Redis is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	jobs    map[uuid.UUID]Job
	results map[uuid.UUID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[uuid.UUID]Job),
		results: make(map[uuid.UUID][]byte),
	}
}

func (s *MemoryStore) Save(_ context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = *j
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := j
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]*Job, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out := j
		all = append(all, &out)
	}
	sort.Slice(all, func(i, k int) bool {
		if !all[i].CreatedAt.Equal(all[k].CreatedAt) {
			return all[i].CreatedAt.After(all[k].CreatedAt)
		}
		return all[i].ID.String() < all[k].ID.String()
	})

	total := len(all)
	if offset >= total {
		return []*Job{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	delete(s.results, id)
	return nil
}

func (s *MemoryStore) SaveResult(_ context.Context, id uuid.UUID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Result(_ context.Context, id uuid.UUID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.results[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}
