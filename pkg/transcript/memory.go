package transcript

import (
	"context"
	"sync"
	"time"

	"github.com/caremesh/medgate/pkg/chat"
)

// MemoryStore is an in-memory Store for tests and single-process
// deployments where durability is not required.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]Entry
	reports       map[string][]map[string]any
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]Entry),
		reports:       make(map[string][]map[string]any),
	}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, conversationID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[conversationID]; ok {
		return cloneConversation(conv), nil
	}

	conv := &Conversation{
		ID:        conversationID,
		State:     chat.StateCollecting,
		Metadata:  map[string]any{},
		CreatedAt: time.Now().UTC(),
	}
	s.conversations[conversationID] = conv
	return cloneConversation(conv), nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, conversationID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return ErrNotFound{ConversationID: conversationID}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.messages[conversationID] = append(s.messages[conversationID], entry)
	return nil
}

func (s *MemoryStore) Messages(_ context.Context, conversationID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, ErrNotFound{ConversationID: conversationID}
	}

	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Entry, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) MergeMetadata(_ context.Context, conversationID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound{ConversationID: conversationID}
	}
	for k, v := range fields {
		conv.Metadata[k] = v
	}
	return nil
}

func (s *MemoryStore) Metadata(_ context.Context, conversationID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrNotFound{ConversationID: conversationID}
	}
	out := make(map[string]any, len(conv.Metadata))
	for k, v := range conv.Metadata {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) SetState(_ context.Context, conversationID string, state chat.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound{ConversationID: conversationID}
	}
	conv.State = state
	return nil
}

func (s *MemoryStore) State(_ context.Context, conversationID string) (chat.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return "", ErrNotFound{ConversationID: conversationID}
	}
	return conv.State, nil
}

func (s *MemoryStore) SaveReport(_ context.Context, conversationID string, record map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return ErrNotFound{ConversationID: conversationID}
	}
	s.reports[conversationID] = append(s.reports[conversationID], record)
	return nil
}

func (s *MemoryStore) Reports(_ context.Context, conversationID string) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, ErrNotFound{ConversationID: conversationID}
	}
	out := make([]map[string]any, len(s.reports[conversationID]))
	copy(out, s.reports[conversationID])
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneConversation(c *Conversation) *Conversation {
	meta := make(map[string]any, len(c.Metadata))
	for k, v := range c.Metadata {
		meta[k] = v
	}
	return &Conversation{ID: c.ID, State: c.State, Metadata: meta, CreatedAt: c.CreatedAt}
}
