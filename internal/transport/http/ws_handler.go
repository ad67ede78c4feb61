package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"slices"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-presence/internal/config"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
	"github.com/vovakirdan/wirechat-presence/internal/utils"
)

var errClientClosed = errors.New("client closed by server")

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub          *core.Hub
	log          *zerolog.Logger
	accept       websocket.AcceptOptions
	readLimit    int64
	clientBuffer int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg config.Config, logger *zerolog.Logger) *WSHandler {
	accept := websocket.AcceptOptions{}
	if slices.Contains(cfg.AllowedOrigins, "*") {
		accept.InsecureSkipVerify = true
	} else {
		accept.OriginPatterns = cfg.AllowedOrigins
	}
	return &WSHandler{
		hub:          hub,
		log:          logger,
		accept:       accept,
		readLimit:    cfg.MaxMessageBytes,
		clientBuffer: cfg.ClientBuffer,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	accept := h.accept
	conn, err := websocket.Accept(w, r, &accept)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(utils.NewID(), h.clientBuffer)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	h.log.Debug().Str("conn_id", client.ID).Str("remote", r.RemoteAddr).Msg("ws connected")

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		return h.readLoop(ctx, conn, client)
	})
	g.Go(func() error {
		return h.writeLoop(ctx, conn, client)
	})
	err = g.Wait()

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
	case errors.Is(err, errClientClosed):
		status = websocket.StatusGoingAway
		reason = "server shutting down"
	default:
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			if status == -1 {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	h.log.Debug().Str("conn_id", client.ID).Msg("ws disconnected")
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("malformed inbound")
			if writeErr := h.writeError(ctx, conn, badRequest("malformed message")); writeErr != nil {
				return writeErr
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if writeErr := h.writeError(ctx, conn, protoErr); writeErr != nil {
				return writeErr
			}
			continue
		}
		if err := client.Submit(ctx, cmd); err != nil {
			if client.Context().Err() != nil {
				return errClientClosed
			}
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return errClientClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, protoErr *proto.Error) error {
	return wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: protoErr,
	})
}
