package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-presence/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(Schema())
		return err
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *SQLiteStore, rows ...store.NewChatter) {
	t.Helper()
	for _, r := range rows {
		if r.Status == "" {
			r.Status = store.StatusOnline
		}
		_, err := s.Create(context.Background(), r)
		require.NoError(t, err, "seed %s", r.Username)
	}
}

func TestCreateAndFindOne(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, store.NewChatter{
		Username:     "alice",
		Room:         "5",
		Status:       store.StatusOnline,
		ConnectionID: "c1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.FindOne(ctx, store.Filter{ConnectionID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "5", got.Room)
	assert.Equal(t, store.StatusOnline, got.Status)

	_, err = s.FindOne(ctx, store.Filter{ConnectionID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindFilters(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		store.NewChatter{Username: "alice", Room: "5", ConnectionID: "c1"},
		store.NewChatter{Username: "bob", Room: "5", ConnectionID: "c2"},
		store.NewChatter{Username: "alice", Room: "6", ConnectionID: "c3"},
	)

	tests := []struct {
		name   string
		filter store.Filter
		conns  []string
	}{
		{name: "by room", filter: store.Filter{Room: "5"}, conns: []string{"c1", "c2"}},
		{name: "by username", filter: store.Filter{Username: "alice"}, conns: []string{"c1", "c3"}},
		{name: "by username and room", filter: store.Filter{Username: "alice", Room: "6"}, conns: []string{"c3"}},
		{name: "no match", filter: store.Filter{Room: "7"}, conns: []string{}},
		{name: "empty filter", filter: store.Filter{}, conns: []string{"c1", "c2", "c3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := s.Find(context.Background(), tt.filter)
			require.NoError(t, err)

			conns := make([]string, 0, len(found))
			for _, c := range found {
				conns = append(conns, c.ConnectionID)
			}
			assert.Equal(t, tt.conns, conns)
		})
	}
}

func TestDeleteReturnsRemovedRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s,
		store.NewChatter{Username: "alice", Room: "5", ConnectionID: "c1"},
		store.NewChatter{Username: "bob", Room: "5", ConnectionID: "c2"},
	)

	deleted, err := s.Delete(ctx, store.Filter{ConnectionID: "c1"})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "alice", deleted[0].Username)
	assert.Equal(t, "5", deleted[0].Room)

	again, err := s.Delete(ctx, store.Filter{ConnectionID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, again)

	left, err := s.Find(ctx, store.Filter{Room: "5"})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "bob", left[0].Username)
}

func TestConnectionIDIsUnique(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, store.NewChatter{Username: "alice", Room: "5", ConnectionID: "c1"})

	_, err := s.Create(context.Background(), store.NewChatter{
		Username:     "bob",
		Room:         "5",
		Status:       store.StatusOnline,
		ConnectionID: "c1",
	})
	assert.Error(t, err)
}

func TestNewPurgesStaleChatters(t *testing.T) {
	path := t.TempDir() + "/presence.db"

	first, err := New(path)
	require.NoError(t, err)
	seed(t, first, store.NewChatter{Username: "alice", Room: "5", ConnectionID: "c1"})
	require.NoError(t, first.Close())

	second, err := New(path)
	require.NoError(t, err)
	defer second.Close()

	found, err := second.Find(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, found)
}
