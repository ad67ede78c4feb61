package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/store"
)

// SessionManager validates joins, owns chatter records and emits the
// events that follow each membership change.
type SessionManager struct {
	store    store.ChatterStore
	registry *Registry
	router   *Router
	log      *zerolog.Logger
	now      func() time.Time
}

// NewSessionManager wires a session manager to its collaborators.
func NewSessionManager(st store.ChatterStore, registry *Registry, router *Router, logger *zerolog.Logger) *SessionManager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SessionManager{
		store:    st,
		registry: registry,
		router:   router,
		log:      logger,
		now:      time.Now,
	}
}

// Join claims username in room for connectionID.
//
// On success the joiner gets a private welcome, the rest of the room a
// joined notice, and the whole room a fresh roster, in that order. A
// taken username fails with ErrUsernameTaken and broadcasts nothing. If
// ctx is cancelled before the announcements start, no record remains and
// ctx's error is returned.
func (s *SessionManager) Join(ctx context.Context, username, room, connectionID string) (*store.Chatter, error) {
	username = strings.TrimSpace(username)
	room = strings.TrimSpace(room)
	if username == "" || room == "" {
		return nil, coreError(ErrCodeBadRequest, "username and room are required", ErrBadRequest)
	}
	if connectionID == "" {
		return nil, coreError(ErrCodeBadRequest, "connection id is required", ErrBadRequest)
	}

	unlock := s.registry.Lock(room)
	defer unlock()

	existing, err := s.store.Find(ctx, store.Filter{Username: username, Room: room})
	if err != nil {
		return nil, s.storeFailure(ctx, err, "lookup chatter", "user could not be created. Try again!")
	}
	if len(existing) > 0 {
		s.log.Debug().Str("conn_id", connectionID).Str("room", room).Str("username", username).Msg("username taken")
		return nil, coreError(ErrCodeUsernameTaken,
			fmt.Sprintf("User %s already exists in room no%s. Please select a different name or room", username, room),
			ErrUsernameTaken)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chatter, err := s.store.Create(ctx, store.NewChatter{
		Username:     username,
		Room:         room,
		Status:       store.StatusOnline,
		ConnectionID: connectionID,
	})
	if err != nil {
		return nil, s.storeFailure(ctx, err, "create chatter", "user could not be created. Try again!")
	}

	// The connection closed while the record was written: take it back
	// and announce nothing.
	if ctxErr := ctx.Err(); ctxErr != nil {
		if _, err := s.store.Delete(context.WithoutCancel(ctx), store.Filter{ConnectionID: connectionID}); err != nil {
			s.log.Warn().Err(err).Str("conn_id", connectionID).Msg("failed to discard chatter of closed connection")
		}
		return nil, ctxErr
	}
	ctx = context.WithoutCancel(ctx)

	s.router.JoinGroup(room, connectionID)
	s.router.SendTo(connectionID, &Event{
		Kind:    EventWelcome,
		Room:    room,
		Message: s.botMessage(room, fmt.Sprintf("%s, Welcome to room %s.", username, room)),
		Chatter: chatter,
	})
	s.router.BroadcastExcluding(room, connectionID, &Event{
		Kind:    EventMessage,
		Room:    room,
		Message: s.botMessage(room, fmt.Sprintf("%s has joined", username)),
	})
	s.broadcastRoster(ctx, room)

	s.log.Info().Str("conn_id", connectionID).Str("room", room).Str("username", username).Msg("chatter joined")
	return chatter, nil
}

// RelayMessage broadcasts text to the whole room of the chatter bound to
// connectionID, sender included. Nothing is sent once ctx is cancelled.
func (s *SessionManager) RelayMessage(ctx context.Context, connectionID, text string) error {
	if connectionID == "" {
		return unknownConnection()
	}
	chatter, err := s.store.FindOne(ctx, store.Filter{ConnectionID: connectionID})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return unknownConnection()
		}
		return s.storeFailure(ctx, err, "lookup sender", "service unavailable, try again")
	}
	if strings.TrimSpace(text) == "" {
		return coreError(ErrCodeBadRequest, "message is required", ErrBadRequest)
	}

	unlock := s.registry.Lock(chatter.Room)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	s.router.BroadcastAll(chatter.Room, &Event{
		Kind: EventMessage,
		Room: chatter.Room,
		Message: Message{
			Room:      chatter.Room,
			From:      chatter.Username,
			Text:      text,
			CreatedAt: s.now(),
		},
	})
	return nil
}

// Leave deletes the chatter bound to connectionID and tells its room.
// It returns the deleted record, or nil when the connection never joined
// or has already left; in that case nothing is broadcast.
func (s *SessionManager) Leave(ctx context.Context, connectionID string) (*store.Chatter, error) {
	if connectionID == "" {
		return nil, nil
	}
	chatter, err := s.store.FindOne(ctx, store.Filter{ConnectionID: connectionID})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, s.storeFailure(ctx, err, "lookup leaving chatter", "service unavailable, try again")
	}

	unlock := s.registry.Lock(chatter.Room)
	defer unlock()

	deleted, err := s.store.Delete(ctx, store.Filter{ConnectionID: connectionID})
	if err != nil {
		return nil, s.storeFailure(ctx, err, "delete chatter", "service unavailable, try again")
	}
	if len(deleted) == 0 {
		return nil, nil
	}

	// Everything below comes from the deleted record itself.
	gone := deleted[0]
	s.router.LeaveGroup(gone.Room, connectionID)
	s.router.BroadcastAll(gone.Room, &Event{
		Kind: EventMessage,
		Room: gone.Room,
		Message: Message{
			Room:      gone.Room,
			From:      gone.Username,
			Text:      fmt.Sprintf("User %s has left the chat.", gone.Username),
			CreatedAt: s.now(),
		},
	})
	s.broadcastRoster(ctx, gone.Room)

	s.log.Info().Str("conn_id", connectionID).Str("room", gone.Room).Str("username", gone.Username).Msg("chatter left")
	return gone, nil
}

// broadcastRoster sends the current membership of room to all its members.
// Callers hold the room lock.
func (s *SessionManager) broadcastRoster(ctx context.Context, room string) {
	members, err := s.registry.MembersOf(ctx, room)
	if err != nil {
		s.log.Warn().Err(err).Str("room", room).Msg("failed to load roster")
		return
	}
	s.router.BroadcastAll(room, &Event{
		Kind:  EventRoster,
		Room:  room,
		Users: members,
	})
}

func (s *SessionManager) botMessage(room, text string) Message {
	return Message{
		Room:      room,
		From:      BotName,
		Text:      text,
		CreatedAt: s.now(),
	}
}

// storeFailure logs err and maps it to ErrStoreUnavailable. A cancelled
// caller gets its context error back instead.
func (s *SessionManager) storeFailure(ctx context.Context, err error, op, msg string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.log.Warn().Err(err).Str("op", op).Msg("roster store failure")
	return coreError(ErrCodeStoreUnavailable, msg, ErrStoreUnavailable)
}

func unknownConnection() *CoreError {
	return coreError(ErrCodeUnknownConnection, "User doesn't exist in the database. Rejoin the chat", ErrUnknownConnection)
}
