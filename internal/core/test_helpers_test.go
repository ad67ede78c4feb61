package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-presence/internal/store"
	"github.com/vovakirdan/wirechat-presence/internal/store/memory"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// nextEvent returns the very next event, failing on timeout.
func nextEvent(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()

	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected an event, got none")
		return nil
	}
}

// expectNoEvent fails if anything arrives on ch within a short window.
func expectNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: kind=%v room=%s text=%q", ev.Kind, ev.Room, ev.Message.Text)
	case <-time.After(50 * time.Millisecond):
	}
}

// drain discards everything already queued on ch.
func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func usernames(users []*store.Chatter) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names
}

type testEnv struct {
	store    *flakyStore
	registry *Registry
	router   *Router
	sessions *SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := &flakyStore{ChatterStore: memory.New()}
	registry := NewRegistry(st)
	router := NewRouter()
	return &testEnv{
		store:    st,
		registry: registry,
		router:   router,
		sessions: NewSessionManager(st, registry, router, nil),
	}
}

// connect registers a fresh client with the router.
func (e *testEnv) connect(id string) *Client {
	c := NewClient(id, 0)
	e.router.Register(c)
	return c
}

var errStoreDown = errors.New("store down")

// flakyStore fails every call while down is set.
type flakyStore struct {
	store.ChatterStore
	down atomic.Bool

	// afterCreate, when set, runs once a record has been written.
	afterCreate func()
}

func (f *flakyStore) Find(ctx context.Context, filter store.Filter) ([]*store.Chatter, error) {
	if f.down.Load() {
		return nil, errStoreDown
	}
	return f.ChatterStore.Find(ctx, filter)
}

func (f *flakyStore) FindOne(ctx context.Context, filter store.Filter) (*store.Chatter, error) {
	if f.down.Load() {
		return nil, errStoreDown
	}
	return f.ChatterStore.FindOne(ctx, filter)
}

func (f *flakyStore) Create(ctx context.Context, fields store.NewChatter) (*store.Chatter, error) {
	if f.down.Load() {
		return nil, errStoreDown
	}
	chatter, err := f.ChatterStore.Create(ctx, fields)
	if err == nil && f.afterCreate != nil {
		f.afterCreate()
	}
	return chatter, err
}

func (f *flakyStore) Delete(ctx context.Context, filter store.Filter) ([]*store.Chatter, error) {
	if f.down.Load() {
		return nil, errStoreDown
	}
	return f.ChatterStore.Delete(ctx, filter)
}
