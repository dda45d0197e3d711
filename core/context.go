package core

import "context"

type conversationKey struct{}

// WithConversationID returns a context carrying the conversation id so
// collaborators such as action executors can scope their side effects.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationKey{}, id)
}

// ConversationIDFromContext returns the conversation id set by
// WithConversationID, or "".
func ConversationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(conversationKey{}).(string)
	return id
}
