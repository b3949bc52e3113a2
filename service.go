package chatd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shaharia-lab/chatd/observability"
)

// DefaultUpstreamTimeout bounds a single model round trip when no
// explicit timeout is configured.
const DefaultUpstreamTimeout = 60 * time.Second

// ConversationService orchestrates the use cases exposed at the system
// boundary: conversation creation, listing, rename, message append and
// the user-message → model-reply exchange.
type ConversationService struct {
	storage ConversationStorage
	gateway ModelGateway
	window  *WindowSelector
	config  ReplyConfig
	limiter *rate.Limiter
	timeout time.Duration
	logger  observability.Logger

	// locks serializes the read-modify-write append sequence per
	// conversation so concurrent requests cannot interleave appends.
	locks sync.Map // conversation id -> *sync.Mutex
}

// ConversationServiceConfig holds the collaborators and tuning knobs
// for a ConversationService.
type ConversationServiceConfig struct {
	Storage ConversationStorage
	Gateway ModelGateway

	// WindowSize bounds the history sent upstream; zero means
	// DefaultWindowSize.
	WindowSize int

	// ReplyConfig carries the sampling parameters for every upstream
	// request.
	ReplyConfig ReplyConfig

	// UpstreamTimeout bounds a single model round trip; zero means
	// DefaultUpstreamTimeout.
	UpstreamTimeout time.Duration

	// UpstreamRPS rate-limits model calls across all conversations;
	// zero means unlimited.
	UpstreamRPS float64

	Logger observability.Logger
}

// NewConversationService creates a service from the given config.
func NewConversationService(config ConversationServiceConfig) *ConversationService {
	if config.Logger == nil {
		config.Logger = observability.NewNullLogger()
	}
	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = DefaultUpstreamTimeout
	}

	limit := rate.Inf
	if config.UpstreamRPS > 0 {
		limit = rate.Limit(config.UpstreamRPS)
	}

	return &ConversationService{
		storage: config.Storage,
		gateway: config.Gateway,
		window:  NewWindowSelector(config.WindowSize),
		config:  config.ReplyConfig,
		limiter: rate.NewLimiter(limit, 1),
		timeout: config.UpstreamTimeout,
		logger:  config.Logger,
	}
}

// lock acquires the per-conversation mutex and returns its release
// function.
func (s *ConversationService) lock(conversationID string) func() {
	value, _ := s.locks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateConversation creates a new empty conversation.
func (s *ConversationService) CreateConversation(ctx context.Context) (*Conversation, error) {
	return s.storage.CreateConversation(ctx)
}

// ListConversations returns all conversations, most recently updated
// first.
func (s *ConversationService) ListConversations(ctx context.Context) ([]Conversation, error) {
	return s.storage.ListConversations(ctx)
}

// GetConversation returns a conversation and its ordered messages.
func (s *ConversationService) GetConversation(ctx context.Context, conversationID string) (*Conversation, []Message, error) {
	return s.storage.GetConversation(ctx, conversationID)
}

// RenameConversation updates a conversation's title.
func (s *ConversationService) RenameConversation(ctx context.Context, conversationID string, title string) (*Conversation, error) {
	return s.storage.RenameConversation(ctx, conversationID, title)
}

// PostMessage appends a message to a conversation. A user message
// additionally triggers a model round trip and the returned message is
// the assistant reply; an assistant message is returned as appended,
// with no model call.
//
// The two appends of an exchange are not atomic: when the model call
// fails after the user message was persisted, the user message stays
// stored with no reply and the error surfaces to the caller. The
// pending exchange can be completed later via GenerateReply.
func (s *ConversationService) PostMessage(ctx context.Context, conversationID string, role Role, content string) (*Message, error) {
	unlock := s.lock(conversationID)
	defer unlock()

	appended, err := s.storage.AppendMessage(ctx, conversationID, role, content)
	if err != nil {
		return nil, err
	}

	if role != RoleUser {
		return appended, nil
	}

	return s.replyLocked(ctx, conversationID, appended.Timestamp)
}

// GenerateReply re-requests a model reply for the last unanswered user
// message of a conversation. It fails with ValidationError when the
// conversation has no pending user message.
func (s *ConversationService) GenerateReply(ctx context.Context, conversationID string) (*Message, error) {
	unlock := s.lock(conversationID)
	defer unlock()

	_, messages, err := s.storage.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 || messages[len(messages)-1].Role != RoleUser {
		return nil, &ValidationError{Reason: "no pending user message to answer"}
	}

	return s.replyLocked(ctx, conversationID, messages[len(messages)-1].Timestamp)
}

// replyLocked builds the context window up to cutoff, calls the model
// gateway and appends the reply as an assistant message. Callers must
// hold the conversation lock.
func (s *ConversationService) replyLocked(ctx context.Context, conversationID string, cutoff time.Time) (*Message, error) {
	_, messages, err := s.storage.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	window := s.window.Select(messages, cutoff)

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for upstream rate limit: %w", err)
	}

	replyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.gateway.Reply(replyCtx, window, s.config)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"conversation_id": conversationID,
			"window_size":     len(window),
		}).WithErr(err).Error("model reply failed, user message left without a reply")
		return nil, err
	}

	return s.storage.AppendMessage(ctx, conversationID, RoleAssistant, reply.Text)
}
