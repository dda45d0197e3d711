package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem marks the single leading instruction message of a conversation.
	RoleSystem Role = "system"
	// RoleUser marks caller supplied text.
	RoleUser Role = "user"
	// RoleAssistant marks generated or action-formatted replies.
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// MessageMetadata records provenance for assistant replies. All fields are
// optional; user and system messages usually carry none.
type MessageMetadata struct {
	Backend        string            `json:"backend,omitempty"` // backend name, "action" or "fallback"
	Model          string            `json:"model,omitempty"`
	Confidence     float64           `json:"confidence,omitempty"`
	ActionExecuted bool              `json:"action_executed,omitempty"`
	Action         *ActionDescriptor `json:"action,omitempty"`
	Proof          string            `json:"proof,omitempty"`
	Fallback       bool              `json:"fallback,omitempty"`
	TokensUsed     int               `json:"tokens_used,omitempty"`
}

// Message is a single conversation turn. It should be treated as immutable
// once appended to a store; stores copy messages on the way in and out.
type Message struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// NewMessage creates a message with a fresh id and UTC timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewSystemMessage creates the leading system instruction message.
func NewSystemMessage(content string) Message { return NewMessage(RoleSystem, content) }

// NewUserMessage creates a user-authored message.
func NewUserMessage(content string) Message { return NewMessage(RoleUser, content) }

// NewAssistantMessage creates an assistant reply carrying provenance metadata.
func NewAssistantMessage(content string, md MessageMetadata) Message {
	m := NewMessage(RoleAssistant, content)
	m.Metadata = &md
	return m
}

// Clone returns a deep copy so callers can never mutate stored state.
func (m Message) Clone() Message {
	if m.Metadata == nil {
		return m
	}
	md := *m.Metadata
	if md.Action != nil {
		a := md.Action.Clone()
		md.Action = &a
	}
	m.Metadata = &md
	return m
}

// IsSystem reports whether the message is the system instruction.
func (m Message) IsSystem() bool { return m.Role == RoleSystem }

// CloneMessages deep copies a message slice. A nil input yields an empty,
// non-nil slice so JSON encoders emit [] rather than null.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// NewID generates a new unique identifier for messages and proof handles.
func NewID() string { return uuid.NewString() }
