package chatd

import (
	"sort"
	"time"
)

// DefaultWindowSize bounds how many messages accompany a model request
// when no explicit size is configured.
const DefaultWindowSize = 20

// WindowSelector picks the bounded recent slice of a conversation's
// messages that is presented to the model.
type WindowSelector struct {
	size int
}

// NewWindowSelector creates a selector keeping at most size messages.
// Non-positive sizes fall back to DefaultWindowSize.
func NewWindowSelector(size int) *WindowSelector {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &WindowSelector{size: size}
}

// Size returns the configured window bound.
func (s *WindowSelector) Size() int {
	return s.size
}

// Select returns the messages with timestamps at or before cutoff,
// oldest first, reduced to role/content pairs and trimmed to the last
// size entries. The sort is stable, so insertion order breaks ties.
func (s *WindowSelector) Select(messages []Message, cutoff time.Time) []PromptMessage {
	qualified := make([]Message, 0, len(messages))
	for _, message := range messages {
		if !message.Timestamp.After(cutoff) {
			qualified = append(qualified, message)
		}
	}

	sort.SliceStable(qualified, func(a, b int) bool {
		return qualified[a].Timestamp.Before(qualified[b].Timestamp)
	})

	if len(qualified) > s.size {
		qualified = qualified[len(qualified)-s.size:]
	}

	window := make([]PromptMessage, len(qualified))
	for i, message := range qualified {
		window[i] = PromptMessage{Role: message.Role, Content: message.Content}
	}
	return window
}
