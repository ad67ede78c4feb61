package core

import (
	"context"
	"sync"
)

const defaultClientBuffer = 32

// ClientState is the position of a connection in its lifecycle.
type ClientState int

const (
	// StateConnected is a live connection that has not joined a room yet.
	StateConnected ClientState = iota
	// StateJoined is a connection bound to a chatter record in one room.
	StateJoined
	// StateClosed is terminal.
	StateClosed
)

func (s ClientState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is one live connection as seen by the core layer.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state ClientState
	room  string
}

// NewClient constructs a client with initialized channels.
// A non-positive buffer selects the default queue size.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:       id,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Context is cancelled when the client is closed.
func (c *Client) Context() context.Context {
	return c.ctx
}

// Done is closed when the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close marks the connection as gone. Safe to call more than once.
func (c *Client) Close() {
	c.cancel()
}

// Submit queues a command for the hub, giving up when ctx or the client ends.
func (c *Client) Submit(ctx context.Context, cmd *Command) error {
	select {
	case c.Commands <- cmd:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Room returns the room the client joined, or "" before a successful join.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) markJoined(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateConnected {
		c.state = StateJoined
		c.room = room
	}
}

// markClosed moves the client to StateClosed and reports whether it was
// the first transition.
func (c *Client) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return false
	}
	c.state = StateClosed
	return true
}

// deliver queues an event without blocking. Events for closed clients or
// slow consumers are dropped.
func (c *Client) deliver(ev *Event) bool {
	if c.ctx.Err() != nil {
		return false
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
