package chat

import "time"

// TurnResponse is the gateway's reply to a turn.
type TurnResponse struct {
	Success        bool           `json:"success"`
	Response       string         `json:"response"`
	ResponseType   string         `json:"response_type"`
	ConversationID string         `json:"conversation_id"`
	Metadata       map[string]any `json:"metadata"`
	Error          *ErrorDetail   `json:"error,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// ErrorDetail carries the failure taxonomy entry for an unsuccessful turn.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// OK builds a successful TurnResponse.
func OK(conversationID, msg, responseType string, meta map[string]any) *TurnResponse {
	if meta == nil {
		meta = map[string]any{}
	}
	return &TurnResponse{
		Success:        true,
		Response:       msg,
		ResponseType:   responseType,
		ConversationID: conversationID,
		Metadata:       meta,
		Timestamp:      time.Now().UTC(),
	}
}

// Err builds a failed TurnResponse tagged with an error type from the
// gateway taxonomy (rate_limit, security, off_topic, emergency, validation,
// invalid_image, downstream_error, internal_error).
func Err(conversationID, msg, errType string, meta map[string]any) *TurnResponse {
	if meta == nil {
		meta = map[string]any{"error_type": errType}
	}
	return &TurnResponse{
		Success:        false,
		Response:       msg,
		ResponseType:   errType,
		ConversationID: conversationID,
		Metadata:       meta,
		Error:          &ErrorDetail{Type: errType, Message: msg},
		Timestamp:      time.Now().UTC(),
	}
}
