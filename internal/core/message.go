package core

import "time"

// BotName is the sender name used for system notices.
const BotName = "bot"

// Message is the domain model for a chat message.
type Message struct {
	Room      string
	From      string
	Text      string
	CreatedAt time.Time
}
