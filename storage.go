package chatd

import (
	"context"
)

// ConversationStorage is the single source of truth for conversations
// and messages. Every mutation must be durable before the call returns.
//
// Implementations report missing conversations with NotFoundError, bad
// input with ValidationError, and an unreadable persisted document with
// StorageCorruptError at construction time.
type ConversationStorage interface {
	// CreateConversation initializes a new conversation with a fresh
	// unique id and the default title.
	CreateConversation(ctx context.Context) (*Conversation, error)

	// AppendMessage adds a message to an existing conversation and
	// advances the conversation's updated_at to the message timestamp.
	AppendMessage(ctx context.Context, conversationID string, role Role, content string) (*Message, error)

	// GetConversation returns a conversation and its messages ordered
	// by timestamp, ties broken by insertion order.
	GetConversation(ctx context.Context, conversationID string) (*Conversation, []Message, error)

	// ListConversations returns all conversations ordered by updated_at
	// (falling back to created_at) descending.
	ListConversations(ctx context.Context) ([]Conversation, error)

	// RenameConversation replaces the title of an existing conversation.
	// A title that trims to the empty string is rejected.
	RenameConversation(ctx context.Context, conversationID string, title string) (*Conversation, error)

	// Close releases any resources held by the storage.
	Close() error
}
