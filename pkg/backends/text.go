package backends

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caremesh/medgate/pkg/chat"
)

// TextRequest is the payload for the text conversation backend.
type TextRequest struct {
	ThreadID string         `json:"thread_id"`
	Message  string         `json:"message"`
	History  []chat.Message `json:"chat_history"`
}

// TextReply is the text backend's answer for one turn.
type TextReply struct {
	Response            string         `json:"response"`
	ThreadID            string         `json:"thread_id"`
	InformationComplete bool           `json:"information_complete"`
	ShouldRequestImage  bool           `json:"should_request_image"`
	CollectedFields     map[string]any `json:"collected_info"`
	APICalls            int            `json:"api_calls"`
}

// TextService talks to the per-specialty text conversation backends.
type TextService struct {
	client  *RetryingClient
	skinURL string
	oralURL string
}

// NewTextService routes skin turns to skinURL and oral turns to oralURL.
func NewTextService(client *RetryingClient, skinURL, oralURL string) *TextService {
	return &TextService{client: client, skinURL: skinURL, oralURL: oralURL}
}

// Converse forwards the rolling history plus the new message to the
// specialty's text backend.
func (s *TextService) Converse(ctx context.Context, specialty chat.Specialty, req TextRequest) (*TextReply, error) {
	url := s.skinURL
	if specialty == chat.SpecialtyOral {
		url = s.oralURL
	}

	body, err := s.client.PostJSON(ctx, url, req)
	if err != nil {
		return nil, err
	}

	var reply TextReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("unmarshal text backend reply: %w", err)
	}
	return &reply, nil
}
