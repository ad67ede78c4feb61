package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by FindOne when no chatter matches the filter.
var ErrNotFound = errors.New("chatter not found")

// Status describes the presence state of a chatter.
type Status string

const (
	StatusOnline Status = "ONLINE"
)

// Chatter binds a username to a room for the lifetime of one connection.
type Chatter struct {
	ID           string
	Username     string
	Room         string
	Status       Status
	ConnectionID string
	CreatedAt    time.Time
}

// NewChatter holds the fields required to create a chatter record.
type NewChatter struct {
	Username     string
	Room         string
	Status       Status
	ConnectionID string
}

// Filter selects chatters by attribute. Empty fields are ignored,
// so the zero Filter matches every record.
type Filter struct {
	Username     string
	Room         string
	ConnectionID string
}

// Match reports whether c satisfies every non-empty field of f.
func (f Filter) Match(c *Chatter) bool {
	if f.Username != "" && c.Username != f.Username {
		return false
	}
	if f.Room != "" && c.Room != f.Room {
		return false
	}
	if f.ConnectionID != "" && c.ConnectionID != f.ConnectionID {
		return false
	}
	return true
}

// ChatterStore handles chatter persistence.
// Any error other than ErrNotFound should be treated as transient.
type ChatterStore interface {
	// Find returns every chatter matching the filter.
	Find(ctx context.Context, filter Filter) ([]*Chatter, error)

	// FindOne returns the first chatter matching the filter or ErrNotFound.
	FindOne(ctx context.Context, filter Filter) (*Chatter, error)

	// Create persists a new chatter and returns the stored record.
	Create(ctx context.Context, fields NewChatter) (*Chatter, error)

	// Delete removes every chatter matching the filter and returns the removed records.
	Delete(ctx context.Context, filter Filter) ([]*Chatter, error)

	// Close releases the underlying connection.
	Close() error
}
