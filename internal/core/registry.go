package core

import (
	"context"
	"sort"
	"sync"

	"github.com/vovakirdan/wirechat-presence/internal/store"
)

// Registry is the read-side view of room membership. It holds no state of
// its own: every snapshot is recomputed from the store. It also owns the
// per-room locks that serialize membership changes and their broadcasts.
type Registry struct {
	store store.ChatterStore
	locks *keyedMutex
}

// NewRegistry creates a registry backed by st.
func NewRegistry(st store.ChatterStore) *Registry {
	return &Registry{
		store: st,
		locks: newKeyedMutex(),
	}
}

// MembersOf returns the chatters currently in room, oldest first.
func (r *Registry) MembersOf(ctx context.Context, room string) ([]*store.Chatter, error) {
	members, err := r.store.Find(ctx, store.Filter{Room: room})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
	return members, nil
}

// Lock acquires the room's lock and returns its release function.
func (r *Registry) Lock(room string) (unlock func()) {
	return r.locks.Lock(room)
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.Unlock()
			k.mu.Lock()
			m.refs--
			if m.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// size is the number of keys with a holder or waiter.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
