package core

import "github.com/vovakirdan/wirechat-presence/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventWelcome greets a client privately after a successful join.
	EventWelcome EventKind = iota
	// EventMessage carries a chat message or a system notice to a room.
	EventMessage
	// EventRoster delivers a full membership snapshot of a room.
	EventRoster
	// EventAck completes a client command, successfully or with Error set.
	EventAck
)

func (k EventKind) String() string {
	switch k {
	case EventWelcome:
		return "welcome"
	case EventMessage:
		return "message"
	case EventRoster:
		return "roster"
	case EventAck:
		return "ack"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Room    string
	Message Message
	Chatter *store.Chatter   // For EventWelcome
	Users   []*store.Chatter // For EventRoster
	Ack     int64            // For EventAck
	Error   *CoreError       // For EventAck
}
