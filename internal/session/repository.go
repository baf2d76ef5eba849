package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Repository persists import sessions. Update runs fn against the latest
// stored copy and saves the result atomically; fn returning an error aborts
// the write.
type Repository interface {
	Create(ctx context.Context, s *ImportSession) error
	Get(ctx context.Context, id string) (*ImportSession, error)
	Update(ctx context.Context, id string, fn func(*ImportSession) error) (*ImportSession, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*ImportSession, int, error)
	Delete(ctx context.Context, id string) error
}

// MemoryRepository keeps sessions in process memory. Stored sessions are
// deep-copied so callers never share state with the repository.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string][]byte)}
}

func (r *MemoryRepository) Create(_ context.Context, s *ImportSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	r.sessions[s.ID] = data
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*ImportSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(id)
}

func (r *MemoryRepository) Update(_ context.Context, id string, fn func(*ImportSession) error) (*ImportSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.load(id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	r.sessions[id] = data
	return s, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]*ImportSession, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*ImportSession
	for id := range r.sessions {
		s, err := r.load(id)
		if err != nil {
			return nil, 0, err
		}
		if s.UserID == userID {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []*ImportSession{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *MemoryRepository) load(id string) (*ImportSession, error) {
	data, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	var s ImportSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}
