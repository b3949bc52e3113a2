package chatd

import (
	"fmt"
)

// ValidationError reports user-correctable bad input. It maps to a 400
// response at the HTTP boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// NotFoundError reports a reference to a conversation that does not
// exist. It maps to a 404 response at the HTTP boundary.
type NotFoundError struct {
	ConversationID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("conversation with ID %s not found", e.ConversationID)
}

// StorageCorruptError reports that the persisted document is unreadable
// or malformed. It is fatal at process start; there is no auto-repair.
type StorageCorruptError struct {
	Path string
	Err  error
}

func (e *StorageCorruptError) Error() string {
	return fmt.Sprintf("storage document %s is corrupt: %v", e.Path, e.Err)
}

func (e *StorageCorruptError) Unwrap() error { return e.Err }

// UpstreamError reports a model gateway call that failed or returned
// unusable data. It maps to a 502 response at the HTTP boundary and
// leaves any already-appended user message persisted without a reply.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s request failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
