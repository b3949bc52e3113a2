package chatd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shaharia-lab/chatd/observability"
)

// Server exposes the conversation service over HTTP with JSON bodies.
type Server struct {
	service    *ConversationService
	logger     observability.Logger
	httpServer *http.Server
}

// NewServer creates a server listening on address once ListenAndServe
// is called.
func NewServer(address string, service *ConversationService, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewNullLogger()
	}

	s := &Server{
		service: service,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /conversations", s.handleListConversations)
	mux.HandleFunc("POST /conversations", s.handleCreateConversation)
	mux.HandleFunc("GET /conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("POST /conversations/{id}/messages", s.handlePostMessage)
	mux.HandleFunc("PATCH /conversations/{id}/rename", s.handleRenameConversation)
	mux.HandleFunc("POST /conversations/{id}/reply", s.handleGenerateReply)

	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           withCORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the server's HTTP handler, including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving HTTP until Shutdown is called or the
// listener fails.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// withCORS allows any origin so the desktop renderer can call the API
// regardless of its app origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithErr(err).Error("failed to encode response body")
	}
}

// writeError maps the error taxonomy onto HTTP statuses: validation →
// 400, not found → 404, upstream → 502, anything else → 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var upstreamErr *UpstreamError

	switch {
	case errors.As(err, &validationErr):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: validationErr.Reason})
	case errors.As(err, &notFoundErr):
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "Conversation not found"})
	case errors.As(err, &upstreamErr):
		s.logger.WithErr(err).Error("upstream model request failed")
		s.writeJSON(w, http.StatusBadGateway, errorBody{Error: "model reply failed"})
	default:
		s.logger.WithErr(err).Error("request failed")
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.service.ListConversations(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conversations)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	conversation, err := s.service.CreateConversation(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conversation)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conversation, messages, err := s.service.GetConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation": conversation,
		"messages":     messages,
	})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, &ValidationError{Reason: "invalid request body"})
		return
	}

	// Content must be a JSON string, not merely present.
	var content string
	if err := json.Unmarshal(body.Content, &content); err != nil {
		s.writeError(w, &ValidationError{Reason: "invalid role or content"})
		return
	}

	message, err := s.service.PostMessage(r.Context(), r.PathValue("id"), body.Role, content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, message)
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, &ValidationError{Reason: "invalid request body"})
		return
	}

	conversation, err := s.service.RenameConversation(r.Context(), r.PathValue("id"), body.Title)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conversation)
}

func (s *Server) handleGenerateReply(w http.ResponseWriter, r *http.Request) {
	message, err := s.service.GenerateReply(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, message)
}
