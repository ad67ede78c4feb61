package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomHandlers provides HTTP handlers for room endpoints.
type RoomHandlers struct {
	registry *core.Registry
	log      *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(registry *core.Registry, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		registry: registry,
		log:      logger,
	}
}

// Roster returns the chatters currently in a room.
// GET /api/rooms/:room/roster
func (h *RoomHandlers) Roster(c *gin.Context) {
	room := strings.TrimSpace(c.Param("room"))
	if room == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room is required"})
		return
	}

	members, err := h.registry.MembersOf(c.Request.Context(), room)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to list room members")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service unavailable, try again"})
		return
	}

	c.JSON(http.StatusOK, proto.RosterResponse{
		Room:  room,
		Users: usersData(members),
	})
}
