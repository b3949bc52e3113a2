// Package chatd implements the storage, context-windowing and model
// gateway behind a small conversation service: conversations and their
// messages are persisted locally, and each new user message is answered
// by an external language model.
package chatd

import (
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks a message authored by the human user.
	RoleUser Role = "user"

	// RoleAssistant marks a message authored by the model.
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one the store accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DefaultTitle is assigned to newly created conversations until they
// are renamed.
const DefaultTitle = "New Conversation"

// Conversation is a titled, timestamped thread grouping an ordered list
// of messages. UpdatedAt tracks the most recent rename or message
// append and is never behind the newest message's timestamp.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn in a conversation. Messages are immutable once
// appended and are owned by the conversation they reference.
type Message struct {
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// PromptMessage is the role/content pair handed to a model gateway.
// Timestamps are dropped; the window selector has already fixed the
// order before a gateway sees the slice.
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
