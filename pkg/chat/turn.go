// Package chat provides the internal representations of conversation turns
// exchanged between the gateway, the safety pipeline and the downstream
// specialist backends.
package chat

// Kind discriminates the two turn flavors the gateway accepts.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Specialty is the medical sub-domain the user selected. It scopes the
// domain-grounding vocabulary and the downstream routing.
type Specialty string

const (
	SpecialtySkin Specialty = "skin"
	SpecialtyOral Specialty = "oral"
)

// Known reports whether s is a specialty the gateway routes for.
func (s Specialty) Known() bool {
	return s == SpecialtySkin || s == SpecialtyOral
}

// Turn is one inbound request/response exchange within a conversation.
// A Turn is immutable once received; history is the caller-supplied rolling
// log of prior messages and is append-only across turns.
type Turn struct {
	Message        string    `json:"message,omitempty"`
	ImageRef       string    `json:"image_ref,omitempty"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	Kind           Kind      `json:"kind"`
	Specialty      Specialty `json:"specialty"`
	History        []Message `json:"history,omitempty"`
}
