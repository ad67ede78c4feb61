package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/wirechat-presence/internal/store"
)

// MemoryStore implements store.ChatterStore in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	chatters map[string]*store.Chatter
	order    []string
	now      func() time.Time
}

// New creates an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{
		chatters: make(map[string]*store.Chatter),
		now:      time.Now,
	}
}

// Find returns copies of every chatter matching the filter, in creation order.
func (s *MemoryStore) Find(ctx context.Context, filter store.Filter) ([]*store.Chatter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Chatter, 0)
	for _, id := range s.order {
		c := s.chatters[id]
		if filter.Match(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// FindOne returns the first matching chatter or store.ErrNotFound.
func (s *MemoryStore) FindOne(ctx context.Context, filter store.Filter) (*store.Chatter, error) {
	found, err := s.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	return found[0], nil
}

// Create stores a new chatter with a generated id.
func (s *MemoryStore) Create(ctx context.Context, fields store.NewChatter) (*store.Chatter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &store.Chatter{
		ID:           uuid.NewString(),
		Username:     fields.Username,
		Room:         fields.Room,
		Status:       fields.Status,
		ConnectionID: fields.ConnectionID,
		CreatedAt:    s.now().UTC(),
	}

	s.mu.Lock()
	s.chatters[c.ID] = c
	s.order = append(s.order, c.ID)
	s.mu.Unlock()

	cp := *c
	return &cp, nil
}

// Delete removes every matching chatter and returns what was removed.
func (s *MemoryStore) Delete(ctx context.Context, filter store.Filter) ([]*store.Chatter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := make([]*store.Chatter, 0)
	kept := s.order[:0]
	for _, id := range s.order {
		c := s.chatters[id]
		if filter.Match(c) {
			delete(s.chatters, id)
			deleted = append(deleted, c)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return deleted, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
