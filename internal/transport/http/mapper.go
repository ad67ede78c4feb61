package http

import (
	"encoding/json"

	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
	"github.com/vovakirdan/wirechat-presence/internal/store"
)

// inboundToCommand maps a client envelope to a core command. Malformed
// requests come back as a protocol error for the sender only.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, badRequest("invalid join payload")
		}
		return &core.Command{
			Kind:     core.CommandJoin,
			Username: join.Username,
			Room:     join.Room,
			Ack:      inbound.Ack,
		}, nil
	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, badRequest("invalid sendMessage payload")
		}
		return &core.Command{
			Kind:   core.CommandSendMessage,
			UserID: msg.UserID,
			Text:   msg.Message,
			Ack:    inbound.Ack,
		}, nil
	default:
		return nil, badRequest("unknown message type")
	}
}

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventWelcome:
		data := proto.EventWelcomeData{
			User: event.Message.From,
			Text: event.Message.Text,
		}
		if event.Chatter != nil {
			data.UserData = userData(event.Chatter)
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventWelcome,
			Data:  data,
		}
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data: proto.EventMessageData{
				User: event.Message.From,
				Text: event.Message.Text,
			},
		}
	case core.EventRoster:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomInfo,
			Data: proto.EventRoomInfoData{
				Room:  event.Room,
				Users: usersData(event.Users),
			},
		}
	case core.EventAck:
		var protoErr *proto.Error
		if event.Error != nil {
			protoErr = &proto.Error{Code: event.Error.Code, Msg: event.Error.Message}
		}
		// Failures of requests that asked for no ack are still reported.
		if event.Ack == 0 {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeAck,
			Ack:   event.Ack,
			Error: protoErr,
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func userData(c *store.Chatter) proto.UserData {
	return proto.UserData{
		ID:           c.ID,
		Username:     c.Username,
		Room:         c.Room,
		Status:       string(c.Status),
		ConnectionID: c.ConnectionID,
	}
}

func usersData(chatters []*store.Chatter) []proto.UserData {
	users := make([]proto.UserData, 0, len(chatters))
	for _, c := range chatters {
		users = append(users, userData(c))
	}
	return users
}
