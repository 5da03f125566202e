package chat

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"`            // "user", "assistant", "system"
	Content string `json:"content"`         // The message content
	Image   string `json:"image,omitempty"` // Optional image reference attached to the message
}
