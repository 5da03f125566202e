// Package transcript persists conversation records: an append-only message
// log per conversation, a latest-value metadata map, the explicit
// conversation state tag and saved reports. No transactional guarantee is
// assumed across the message log and the metadata map.
package transcript

import (
	"context"
	"time"

	"github.com/caremesh/medgate/pkg/chat"
)

// Entry is one append-only transcript record.
type Entry struct {
	Sender    string    `json:"sender"` // "user" or "bot"
	UserID    string    `json:"user_id,omitempty"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the latest-value record for one conversation.
type Conversation struct {
	ID        string         `json:"id"`
	State     chat.State     `json:"state"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store is the interface for conversation persistence. Implementations must
// keep the message log append-only and treat metadata as a last-write-wins
// merge per field.
type Store interface {
	// GetOrCreate returns the conversation record, creating it in state
	// collecting_info if it does not exist yet.
	GetOrCreate(ctx context.Context, conversationID string) (*Conversation, error)

	// AppendMessage appends one entry to the conversation's transcript.
	AppendMessage(ctx context.Context, conversationID string, entry Entry) error

	// Messages returns the transcript in chronological order, limited to
	// the most recent limit entries (0 means no limit).
	Messages(ctx context.Context, conversationID string, limit int) ([]Entry, error)

	// MergeMetadata merges fields into the conversation metadata; existing
	// keys are overwritten by the incoming values.
	MergeMetadata(ctx context.Context, conversationID string, fields map[string]any) error

	// Metadata returns the current metadata map.
	Metadata(ctx context.Context, conversationID string) (map[string]any, error)

	// SetState updates the conversation state tag.
	SetState(ctx context.Context, conversationID string, state chat.State) error

	// State returns the current state tag.
	State(ctx context.Context, conversationID string) (chat.State, error)

	// SaveReport appends a report record to the conversation.
	SaveReport(ctx context.Context, conversationID string, record map[string]any) error

	// Reports returns all saved report records in insertion order.
	Reports(ctx context.Context, conversationID string) ([]map[string]any, error)

	// Close closes the store and releases any resources.
	Close() error
}

// ErrNotFound is returned when a conversation doesn't exist in the store.
type ErrNotFound struct {
	ConversationID string
}

func (e ErrNotFound) Error() string {
	if e.ConversationID == "" {
		return "conversation not found"
	}

	return "conversation not found: " + e.ConversationID
}
