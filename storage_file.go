package chatd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/shaharia-lab/chatd/observability"
)

// storeDocument is the at-rest layout: two flat collections serialized
// as a single JSON document. Every mutation rewrites the whole file,
// which is acceptable only while the data volume stays small.
type storeDocument struct {
	Conversations []Conversation `json:"conversations"`
	Messages      []Message      `json:"messages"`
}

// storeDocumentSchema guards the shape of the persisted document before
// it is unmarshalled. A document that fails validation is corrupt, not
// merely empty.
const storeDocumentSchema = `{
	"type": "object",
	"required": ["conversations", "messages"],
	"properties": {
		"conversations": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "title", "created_at", "updated_at"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"title": {"type": "string"},
					"created_at": {"type": "string"},
					"updated_at": {"type": "string"}
				}
			}
		},
		"messages": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["conversation_id", "role", "content", "timestamp"],
				"properties": {
					"conversation_id": {"type": "string", "minLength": 1},
					"role": {"type": "string", "enum": ["user", "assistant"]},
					"content": {"type": "string"},
					"timestamp": {"type": "string"}
				}
			}
		}
	}
}`

// FileStorage is a ConversationStorage holding the full store in memory
// and persisting it to one JSON document. Saves write to a temporary
// path and rename it over the canonical file, so a crash mid-write
// never leaves a partially written document visible.
type FileStorage struct {
	path   string
	mu     sync.RWMutex
	doc    storeDocument
	index  map[string]int // conversation id -> position in doc.Conversations
	logger observability.Logger
}

// NewFileStorage loads the document at path into memory, creating an
// empty store (and its parent directory) when none exists yet. A
// malformed document fails with StorageCorruptError.
func NewFileStorage(path string, logger observability.Logger) (*FileStorage, error) {
	if logger == nil {
		logger = observability.NewNullLogger()
	}

	s := &FileStorage{
		path:   path,
		index:  make(map[string]int),
		logger: logger,
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FileStorage) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		s.doc = storeDocument{
			Conversations: []Conversation{},
			Messages:      []Message{},
		}
		s.logger.WithFields(map[string]interface{}{"path": s.path}).Info("no persisted store found, initializing empty store")
		return s.persistLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read store document: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(storeDocumentSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return &StorageCorruptError{Path: s.path, Err: err}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return &StorageCorruptError{Path: s.path, Err: fmt.Errorf("schema violation: %s", strings.Join(reasons, "; "))}
	}

	var doc storeDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &StorageCorruptError{Path: s.path, Err: err}
	}

	index := make(map[string]int, len(doc.Conversations))
	for i, conversation := range doc.Conversations {
		index[conversation.ID] = i
	}

	// Every message must reference a conversation that exists.
	for _, message := range doc.Messages {
		if _, ok := index[message.ConversationID]; !ok {
			return &StorageCorruptError{
				Path: s.path,
				Err:  fmt.Errorf("message references unknown conversation %s", message.ConversationID),
			}
		}
	}

	s.doc = doc
	s.index = index
	return nil
}

// persistLocked serializes the full in-memory state and atomically
// replaces the persisted copy. Callers must hold the write lock.
func (s *FileStorage) persistLocked() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize store document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary store document: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store document: %w", err)
	}

	return nil
}

// CreateConversation initializes a new conversation and persists it.
func (s *FileStorage) CreateConversation(ctx context.Context) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	conversation := Conversation{
		ID:        uuid.New().String(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.doc.Conversations = append(s.doc.Conversations, conversation)
	s.index[conversation.ID] = len(s.doc.Conversations) - 1

	if err := s.persistLocked(); err != nil {
		// Memory must never run ahead of disk.
		s.doc.Conversations = s.doc.Conversations[:len(s.doc.Conversations)-1]
		delete(s.index, conversation.ID)
		return nil, err
	}

	return &conversation, nil
}

// AppendMessage adds a message to an existing conversation, advances
// the parent's updated_at and persists the store.
func (s *FileStorage) AppendMessage(ctx context.Context, conversationID string, role Role, content string) (*Message, error) {
	if !role.Valid() {
		return nil, &ValidationError{Reason: fmt.Sprintf("role must be %q or %q", RoleUser, RoleAssistant)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[conversationID]
	if !ok {
		return nil, &NotFoundError{ConversationID: conversationID}
	}

	message := Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}

	previousUpdatedAt := s.doc.Conversations[i].UpdatedAt
	s.doc.Messages = append(s.doc.Messages, message)
	s.doc.Conversations[i].UpdatedAt = message.Timestamp

	if err := s.persistLocked(); err != nil {
		s.doc.Messages = s.doc.Messages[:len(s.doc.Messages)-1]
		s.doc.Conversations[i].UpdatedAt = previousUpdatedAt
		return nil, err
	}

	return &message, nil
}

// GetConversation returns a conversation and its messages in
// chronological order. The message slice is append-only, so a stable
// sort preserves insertion order for equal timestamps.
func (s *FileStorage) GetConversation(ctx context.Context, conversationID string) (*Conversation, []Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[conversationID]
	if !ok {
		return nil, nil, &NotFoundError{ConversationID: conversationID}
	}

	conversation := s.doc.Conversations[i]

	messages := make([]Message, 0)
	for _, message := range s.doc.Messages {
		if message.ConversationID == conversationID {
			messages = append(messages, message)
		}
	}
	sort.SliceStable(messages, func(a, b int) bool {
		return messages[a].Timestamp.Before(messages[b].Timestamp)
	})

	return &conversation, messages, nil
}

// ListConversations returns all conversations, most recently updated
// first.
func (s *FileStorage) ListConversations(ctx context.Context) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversations := make([]Conversation, len(s.doc.Conversations))
	copy(conversations, s.doc.Conversations)

	sort.SliceStable(conversations, func(a, b int) bool {
		return recency(conversations[a]).After(recency(conversations[b]))
	})

	return conversations, nil
}

// recency is the list ordering key: updated_at, falling back to
// created_at when a legacy record never carried one.
func recency(c Conversation) time.Time {
	if c.UpdatedAt.IsZero() {
		return c.CreatedAt
	}
	return c.UpdatedAt
}

// RenameConversation updates the title of an existing conversation and
// persists the store. Whitespace-only titles are rejected.
func (s *FileStorage) RenameConversation(ctx context.Context, conversationID string, title string) (*Conversation, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &ValidationError{Reason: "title must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[conversationID]
	if !ok {
		return nil, &NotFoundError{ConversationID: conversationID}
	}

	previous := s.doc.Conversations[i]
	s.doc.Conversations[i].Title = title
	s.doc.Conversations[i].UpdatedAt = time.Now().UTC()

	if err := s.persistLocked(); err != nil {
		s.doc.Conversations[i] = previous
		return nil, err
	}

	conversation := s.doc.Conversations[i]
	return &conversation, nil
}

// Close is a no-op for FileStorage; every mutation is already durable.
func (s *FileStorage) Close() error {
	return nil
}
