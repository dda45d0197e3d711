package session

import (
	"context"
	"sync"

	"github.com/mrarejimmyz/chatcore/core"
)

// Options configures an InMemoryStore.
type Options struct {
	// Window bounds every conversation's length (default 20, minimum 2).
	Window int
}

// InMemoryStore is a volatile ConversationStore keeping histories in a
// process local map. It is safe for concurrent access; messages are cloned
// on the way in and out so callers never share state with the store.
type InMemoryStore struct {
	window int

	mu            sync.RWMutex
	conversations map[string][]core.Message
}

var _ core.ConversationStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory conversation store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{Window: DefaultWindow}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{
		window:        NormalizeWindow(opts.Window),
		conversations: make(map[string][]core.Message),
	}
}

// Window returns the effective history bound.
func (s *InMemoryStore) Window() int { return s.window }

// History returns a copy of the conversation; unknown ids yield an empty slice.
func (s *InMemoryStore) History(_ context.Context, conversationID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneMessages(s.conversations[conversationID]), nil
}

// Append adds msg to the conversation, creating it lazily and trimming it
// to the window.
func (s *InMemoryStore) Append(_ context.Context, conversationID string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversationID] = ApplyAppend(s.conversations[conversationID], msg, s.window)
	return nil
}

// Clear drops the conversation. Clearing an unknown id is a no-op.
func (s *InMemoryStore) Clear(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	return nil
}

// Conversations returns the ids currently held by the store.
func (s *InMemoryStore) Conversations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	return ids
}
