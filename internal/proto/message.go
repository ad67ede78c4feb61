package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
// A positive Ack asks the server to acknowledge the request.
type Inbound struct {
	Type string          `json:"type"`
	Ack  int64           `json:"ack,omitempty"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin        = "join"
	InboundTypeSendMessage = "sendMessage"

	OutboundTypeEvent = "event"
	OutboundTypeAck   = "ack"
	OutboundTypeError = "error"

	EventWelcome  = "welcome"
	EventMessage  = "message"
	EventRoomInfo = "roomInfo"
)

// JoinData requests a username in a room.
type JoinData struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// SendMessageData is a chat message from the client. UserID is the
// connection id handed out in the welcome's userData.
type SendMessageData struct {
	UserID  string `json:"userId,omitempty"`
	Message string `json:"message"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Ack   int64  `json:"ack,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// UserData describes a chatter on the wire.
type UserData struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Room         string `json:"room"`
	Status       string `json:"status"`
	ConnectionID string `json:"connectionId"`
}

// EventWelcomeData greets a client privately after it joined.
type EventWelcomeData struct {
	User     string   `json:"user"`
	Text     string   `json:"text"`
	UserData UserData `json:"userData"`
}

// EventMessageData is a chat message or a system notice from "bot".
type EventMessageData struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// EventRoomInfoData is a full membership snapshot of a room.
type EventRoomInfoData struct {
	Room  string     `json:"room"`
	Users []UserData `json:"users"`
}

// RosterResponse is the HTTP representation of a room roster.
type RosterResponse struct {
	Room  string     `json:"room"`
	Users []UserData `json:"users"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
