package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultLeaveTimeout = 5 * time.Second

// Hub accepts clients, runs one task per client that feeds its commands to
// the session manager, and removes the client's chatter when it goes away.
type Hub struct {
	sessions *SessionManager
	router   *Router
	log      *zerolog.Logger

	// LeaveTimeout bounds the cleanup that runs after a client closes.
	LeaveTimeout time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub around an existing session manager and router.
func NewHub(sessions *SessionManager, router *Router, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:     sessions,
		router:       router,
		log:          logger,
		LeaveTimeout: defaultLeaveTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Run blocks until ctx is done, then closes every client and waits for
// their cleanup to finish.
func (h *Hub) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-h.ctx.Done():
	}
	h.mu.Lock()
	h.cancel()
	h.mu.Unlock()

	h.router.CloseAll()
	h.wg.Wait()
	h.log.Info().Msg("hub stopped")
}

// RegisterClient makes the client addressable and starts serving its commands.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx.Err() != nil {
		c.Close()
		return
	}
	h.router.Register(c)
	h.wg.Add(1)
	go h.serveClient(c)
	h.log.Debug().Str("conn_id", c.ID).Msg("client registered")
}

// UnregisterClient closes the client. Its chatter, if any, is removed once
// the command in flight has finished.
func (h *Hub) UnregisterClient(c *Client) {
	c.Close()
}

func (h *Hub) serveClient(c *Client) {
	defer h.wg.Done()
	defer h.closeClient(c)

	for {
		select {
		case <-c.Done():
			return
		case <-h.ctx.Done():
			return
		case cmd := <-c.Commands:
			if cmd != nil {
				h.dispatch(c, cmd)
			}
		}
	}
}

func (h *Hub) dispatch(c *Client, cmd *Command) {
	ctx := c.Context()

	var err error
	switch cmd.Kind {
	case CommandJoin:
		if c.State() != StateConnected {
			err = coreError(ErrCodeBadRequest, "already joined room "+c.Room(), ErrBadRequest)
			break
		}
		chatter, joinErr := h.sessions.Join(ctx, cmd.Username, cmd.Room, c.ID)
		if joinErr != nil {
			err = joinErr
			break
		}
		c.markJoined(chatter.Room)
	case CommandSendMessage:
		if cmd.UserID != "" && cmd.UserID != c.ID {
			err = unknownConnection()
			break
		}
		err = h.sessions.RelayMessage(ctx, c.ID, cmd.Text)
	default:
		err = coreError(ErrCodeBadRequest, "unknown command", ErrBadRequest)
	}

	// Results for a connection that closed meanwhile are discarded.
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	h.ack(c, cmd.Ack, err)
}

func (h *Hub) ack(c *Client, id int64, err error) {
	ce := AsCoreError(err)
	if id == 0 && ce == nil {
		return
	}
	if ce != nil {
		h.log.Debug().Str("conn_id", c.ID).Str("code", ce.Code).Msg("command failed")
	}
	if !c.deliver(&Event{Kind: EventAck, Ack: id, Error: ce}) {
		h.log.Warn().Str("conn_id", c.ID).Int64("ack", id).Msg("dropped ack for slow client")
	}
}

// closeClient runs exactly once per client, after its last command.
func (h *Hub) closeClient(c *Client) {
	c.Close()
	if !c.markClosed() {
		return
	}
	h.router.Unregister(c.ID)

	ctx, cancel := context.WithTimeout(context.Background(), h.LeaveTimeout)
	defer cancel()

	gone, err := h.sessions.Leave(ctx, c.ID)
	if err != nil {
		h.log.Warn().Err(err).Str("conn_id", c.ID).Msg("failed to remove chatter")
		return
	}
	if gone == nil {
		h.log.Debug().Str("conn_id", c.ID).Msg("client closed before joining")
	}
}
