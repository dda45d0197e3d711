package testutil

import (
	"fmt"
	"time"

	"github.com/mrarejimmyz/chatcore/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder().Assistant("hello").Backend("primary").Confidence(0.9).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type MessageBuilder struct {
	id        string
	role      core.Role
	content   string
	timestamp time.Time
	metadata  *core.MessageMetadata
}

func (b *MessageBuilder) md() *core.MessageMetadata {
	if b.metadata == nil {
		b.metadata = &core.MessageMetadata{}
	}
	return b.metadata
}

// NewMessageBuilder creates a builder for a user message.
func NewMessageBuilder() *MessageBuilder { return &MessageBuilder{role: core.RoleUser} }

// ID overrides the auto-generated id (chainable).
func (b *MessageBuilder) ID(id string) *MessageBuilder { b.id = id; return b }

// At sets the timestamp (chainable).
func (b *MessageBuilder) At(ts time.Time) *MessageBuilder { b.timestamp = ts; return b }

// System sets role system and content (chainable).
func (b *MessageBuilder) System(t string) *MessageBuilder {
	b.role, b.content = core.RoleSystem, t
	return b
}

// User sets role user and content (chainable).
func (b *MessageBuilder) User(t string) *MessageBuilder {
	b.role, b.content = core.RoleUser, t
	return b
}

// Assistant sets role assistant and content (chainable).
func (b *MessageBuilder) Assistant(t string) *MessageBuilder {
	b.role, b.content = core.RoleAssistant, t
	return b
}

// Backend records which backend produced the message (chainable).
func (b *MessageBuilder) Backend(name string) *MessageBuilder { b.md().Backend = name; return b }

// Confidence sets the metadata confidence (chainable).
func (b *MessageBuilder) Confidence(c float64) *MessageBuilder { b.md().Confidence = c; return b }

// Action marks the message as the result of an executed action (chainable).
func (b *MessageBuilder) Action(a core.ActionDescriptor, proof string) *MessageBuilder {
	md := b.md()
	md.ActionExecuted = true
	md.Action = &a
	md.Proof = proof
	return b
}

// Build finalizes and returns the message.
func (b *MessageBuilder) Build() core.Message {
	msg := core.NewMessage(b.role, b.content)
	if b.id != "" {
		msg.ID = b.id
	}
	if !b.timestamp.IsZero() {
		msg.Timestamp = b.timestamp
	}
	msg.Metadata = b.metadata
	return msg
}

// Conversation builds n alternating user/assistant turns, optionally led by
// a system message. Contents are "user i" / "assistant i".
func Conversation(system string, n int) []core.Message {
	var out []core.Message
	if system != "" {
		out = append(out, NewMessageBuilder().System(system).Build())
	}
	for i := 1; i <= n; i++ {
		if i%2 == 1 {
			out = append(out, NewMessageBuilder().User(fmt.Sprintf("user %d", i)).Build())
		} else {
			out = append(out, NewMessageBuilder().Assistant(fmt.Sprintf("assistant %d", i)).Build())
		}
	}
	return out
}
