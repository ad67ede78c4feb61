package core

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-presence/internal/store"
	"github.com/vovakirdan/wirechat-presence/internal/store/memory"
)

func TestRegistryMembersOf(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	for _, n := range []struct{ user, room, conn string }{
		{"alice", "5", "c1"}, {"bob", "6", "c2"}, {"carol", "5", "c3"},
	} {
		if _, err := st.Create(ctx, store.NewChatter{Username: n.user, Room: n.room, Status: store.StatusOnline, ConnectionID: n.conn}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	reg := NewRegistry(st)
	members, err := reg.MembersOf(ctx, "5")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if got := usernames(members); !reflect.DeepEqual(got, []string{"alice", "carol"}) {
		t.Fatalf("unexpected members: %v", got)
	}

	empty, err := reg.MembersOf(ctx, "7")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no members, got %v, %v", empty, err)
	}
}

func TestRegistryLockSerializesRoom(t *testing.T) {
	reg := NewRegistry(memory.New())

	unlock := reg.Lock("5")

	acquired := make(chan struct{})
	go func() {
		release := reg.Lock("5")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held room lock")
	case <-time.After(50 * time.Millisecond):
	}

	// Other rooms are independent.
	other := reg.Lock("6")
	other()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestRegistryLockReleasesEntries(t *testing.T) {
	reg := NewRegistry(memory.New())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := reg.Lock("5")
			unlock()
			unlock() // idempotent
		}()
	}
	wg.Wait()

	if n := reg.locks.size(); n != 0 {
		t.Fatalf("expected lock table to be empty, got %d", n)
	}
}
