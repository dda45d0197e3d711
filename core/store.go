package core

import "context"

// ConversationStore maps a conversation id to an ordered, length-bounded
// message history.
//
// Contract:
//   - At most one system message, always first and never trimmed
//   - Appending a system message replaces the existing one
//   - Every append enforces the window by dropping the oldest non-system messages
//   - History returns a copy; an unknown id yields an empty slice
//   - Clear is idempotent
type ConversationStore interface {
	History(ctx context.Context, conversationID string) ([]Message, error)
	Append(ctx context.Context, conversationID string, msg Message) error
	Clear(ctx context.Context, conversationID string) error
}

// ProofStore persists verifiable receipts referenced by proof handles.
type ProofStore interface {
	Save(scope, proofID string, data []byte) error
	Get(scope, proofID string) ([]byte, error)
	List(scope string) ([]string, error)
	Delete(scope, proofID string) error
}
