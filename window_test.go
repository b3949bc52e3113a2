package chatd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func windowMessages(base time.Time, roles ...Role) []Message {
	messages := make([]Message, len(roles))
	for i, role := range roles {
		messages[i] = Message{
			ConversationID: "conv-1",
			Role:           role,
			Content:        string(role),
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		}
	}
	return messages
}

func TestNewWindowSelector(t *testing.T) {
	assert.Equal(t, 5, NewWindowSelector(5).Size())
	assert.Equal(t, DefaultWindowSize, NewWindowSelector(0).Size())
	assert.Equal(t, DefaultWindowSize, NewWindowSelector(-1).Size())
}

func TestWindowSelector_Select(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		size     int
		messages []Message
		cutoff   time.Time
		want     []PromptMessage
	}{
		{
			name:     "empty conversation",
			size:     3,
			messages: nil,
			cutoff:   base,
			want:     []PromptMessage{},
		},
		{
			name:     "all messages qualify under the bound",
			size:     5,
			messages: windowMessages(base, RoleUser, RoleAssistant),
			cutoff:   base.Add(time.Minute),
			want: []PromptMessage{
				{Role: RoleUser, Content: "user"},
				{Role: RoleAssistant, Content: "assistant"},
			},
		},
		{
			name:     "keeps only the last N",
			size:     2,
			messages: windowMessages(base, RoleUser, RoleAssistant, RoleUser, RoleAssistant),
			cutoff:   base.Add(time.Minute),
			want: []PromptMessage{
				{Role: RoleUser, Content: "user"},
				{Role: RoleAssistant, Content: "assistant"},
			},
		},
		{
			name:     "cutoff is inclusive and excludes later messages",
			size:     10,
			messages: windowMessages(base, RoleUser, RoleAssistant, RoleUser),
			cutoff:   base.Add(time.Second),
			want: []PromptMessage{
				{Role: RoleUser, Content: "user"},
				{Role: RoleAssistant, Content: "assistant"},
			},
		},
		{
			name:     "no qualifying messages",
			size:     10,
			messages: windowMessages(base, RoleUser),
			cutoff:   base.Add(-time.Second),
			want:     []PromptMessage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector := NewWindowSelector(tt.size)
			got := selector.Select(tt.messages, tt.cutoff)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), tt.size)
		})
	}
}

func TestWindowSelector_SelectRestoresChronologicalOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Deliberately unordered input slice.
	messages := []Message{
		{Role: RoleAssistant, Content: "second", Timestamp: base.Add(2 * time.Second)},
		{Role: RoleUser, Content: "first", Timestamp: base.Add(time.Second)},
		{Role: RoleUser, Content: "third", Timestamp: base.Add(3 * time.Second)},
	}

	got := NewWindowSelector(10).Select(messages, base.Add(time.Minute))

	assert.Equal(t, []PromptMessage{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "second"},
		{Role: RoleUser, Content: "third"},
	}, got)
}

func TestWindowSelector_SelectPreservesInsertionOrderOnTies(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	messages := []Message{
		{Role: RoleUser, Content: "a", Timestamp: base},
		{Role: RoleUser, Content: "b", Timestamp: base},
		{Role: RoleUser, Content: "c", Timestamp: base},
	}

	got := NewWindowSelector(10).Select(messages, base)

	assert.Equal(t, []PromptMessage{
		{Role: RoleUser, Content: "a"},
		{Role: RoleUser, Content: "b"},
		{Role: RoleUser, Content: "c"},
	}, got)
}
