package chat

// ErrorResponse is the minimal JSON error body for non-turn endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
