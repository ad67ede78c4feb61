package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin claims a username in a room.
	CommandJoin CommandKind = iota
	// CommandSendMessage relays a chat message to the client's room.
	CommandSendMessage
)

// Command represents an action requested by a client.
// A non-zero Ack asks for an EventAck once the command completes.
type Command struct {
	Kind     CommandKind
	Username string
	Room     string
	UserID   string
	Text     string
	Ack      int64
}
