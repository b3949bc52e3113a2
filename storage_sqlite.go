package chatd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shaharia-lab/chatd/observability"
)

// SQLiteStorage is a ConversationStorage backed by an embedded SQLite
// database. It replaces the flat-file document for deployments where
// rewriting the whole store on every mutation is no longer acceptable.
type SQLiteStorage struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger observability.Logger
}

// NewSQLiteStorage opens (or creates) the SQLite database at
// databasePath and ensures the schema exists.
func NewSQLiteStorage(databasePath string, logger observability.Logger) (*SQLiteStorage, error) {
	if logger == nil {
		logger = observability.NewNullLogger()
	}

	db, err := sql.Open("sqlite3", databasePath+"?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	storage := &SQLiteStorage{
		db:     db,
		logger: logger,
	}

	if err := storage.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return storage, nil
}

// initSchema creates the necessary tables if they don't exist.
func (s *SQLiteStorage) initSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createConversationsTableSQL := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	createMessagesTableSQL := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);`

	createMessagesIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages (conversation_id);`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schema init: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createConversationsTableSQL); err != nil {
		return fmt.Errorf("failed to create conversations table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, createMessagesTableSQL); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, createMessagesIndexSQL); err != nil {
		return fmt.Errorf("failed to create messages index: %w", err)
	}

	return tx.Commit()
}

// CreateConversation initializes a new conversation row.
func (s *SQLiteStorage) CreateConversation(ctx context.Context) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	conversation := Conversation{
		ID:        uuid.New().String(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}

	insertSQL := `INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, insertSQL, conversation.ID, conversation.Title, conversation.CreatedAt, conversation.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert new conversation (id: %s): %w", conversation.ID, err)
	}

	return &conversation, nil
}

// AppendMessage adds a message row and advances the parent
// conversation's updated_at inside one transaction.
func (s *SQLiteStorage) AppendMessage(ctx context.Context, conversationID string, role Role, content string) (*Message, error) {
	if !role.Valid() {
		return nil, &ValidationError{Reason: fmt.Sprintf("role must be %q or %q", RoleUser, RoleAssistant)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for adding message: %w", err)
	}
	defer tx.Rollback()

	var exists int
	checkSQL := `SELECT 1 FROM conversations WHERE id = ? LIMIT 1`
	err = tx.QueryRowContext(ctx, checkSQL, conversationID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{ConversationID: conversationID}
		}
		return nil, fmt.Errorf("failed to check conversation existence (id: %s): %w", conversationID, err)
	}

	message := Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}

	insertSQL := `INSERT INTO messages (conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertSQL, message.ConversationID, string(message.Role), message.Content, message.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to insert message for conversation %s: %w", conversationID, err)
	}

	updateSQL := `UPDATE conversations SET updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, updateSQL, message.Timestamp, conversationID); err != nil {
		return nil, fmt.Errorf("failed to update conversation timestamp (id: %s): %w", conversationID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for adding message: %w", err)
	}

	return &message, nil
}

// GetConversation returns a conversation row and its messages ordered
// by timestamp, ties broken by rowid (insertion order).
func (s *SQLiteStorage) GetConversation(ctx context.Context, conversationID string) (*Conversation, []Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin read transaction for getting conversation: %w", err)
	}
	defer tx.Rollback()

	conversation := Conversation{ID: conversationID}

	conversationSQL := `SELECT title, created_at, updated_at FROM conversations WHERE id = ?`
	err = tx.QueryRowContext(ctx, conversationSQL, conversationID).
		Scan(&conversation.Title, &conversation.CreatedAt, &conversation.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, &NotFoundError{ConversationID: conversationID}
		}
		return nil, nil, fmt.Errorf("failed to query conversation (id: %s): %w", conversationID, err)
	}

	messagesSQL := `SELECT role, content, timestamp FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC, id ASC`
	rows, err := tx.QueryContext(ctx, messagesSQL, conversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query messages for conversation %s: %w", conversationID, err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		message := Message{ConversationID: conversationID}
		var roleStr string
		if err := rows.Scan(&roleStr, &message.Content, &message.Timestamp); err != nil {
			return nil, nil, fmt.Errorf("failed to scan message row for conversation %s: %w", conversationID, err)
		}
		message.Role = Role(roleStr)
		message.Timestamp = message.Timestamp.UTC()
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating message rows for conversation %s: %w", conversationID, err)
	}

	conversation.CreatedAt = conversation.CreatedAt.UTC()
	conversation.UpdatedAt = conversation.UpdatedAt.UTC()
	return &conversation, messages, nil
}

// ListConversations returns all conversations, most recently updated
// first.
func (s *SQLiteStorage) ListConversations(ctx context.Context) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listSQL := `SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC, created_at DESC`
	rows, err := s.db.QueryContext(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations list: %w", err)
	}
	defer rows.Close()

	conversations := make([]Conversation, 0)
	for rows.Next() {
		var conversation Conversation
		if err := rows.Scan(&conversation.ID, &conversation.Title, &conversation.CreatedAt, &conversation.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		conversation.CreatedAt = conversation.CreatedAt.UTC()
		conversation.UpdatedAt = conversation.UpdatedAt.UTC()
		conversations = append(conversations, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return conversations, nil
}

// RenameConversation updates the title of an existing conversation.
func (s *SQLiteStorage) RenameConversation(ctx context.Context, conversationID string, title string) (*Conversation, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &ValidationError{Reason: "title must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	updateSQL := `UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, updateSQL, title, now, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to rename conversation (id: %s): %w", conversationID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.WithErr(err).Error("failed to get rows affected for rename")
	}
	if rowsAffected == 0 {
		return nil, &NotFoundError{ConversationID: conversationID}
	}

	conversation := Conversation{ID: conversationID, Title: title, UpdatedAt: now}
	selectSQL := `SELECT created_at FROM conversations WHERE id = ?`
	if err := s.db.QueryRowContext(ctx, selectSQL, conversationID).Scan(&conversation.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to read back renamed conversation (id: %s): %w", conversationID, err)
	}
	conversation.CreatedAt = conversation.CreatedAt.UTC()

	return &conversation, nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
