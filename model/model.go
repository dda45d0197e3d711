package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mrarejimmyz/chatcore/core"
)

// ErrEmptyCompletion is returned when a backend answers without any text.
var ErrEmptyCompletion = errors.New("model: empty completion")

// Options carries per-call generation parameters. Zero values mean "use the
// provider's configured default".
type Options struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int64   `json:"max_tokens,omitempty"`
}

// Completion is the result of a single, non-streaming generation call.
type Completion struct {
	Text         string `json:"text"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Info contains metadata about a provider implementation.
type Info struct {
	Name     string `json:"name"`     // configured backend name, unique per deployment
	Provider string `json:"provider"` // "ollama", "openai", "anthropic", "mock"
	Model    string `json:"model"`
}

// Provider is the minimal interface required by the prober and the engine.
type Provider interface {
	// Info returns information about the provider implementation.
	Info() Info

	// Probe performs a cheap liveness check. Any error means unavailable.
	Probe(ctx context.Context) error

	// Complete generates a reply for the ordered conversation.
	Complete(ctx context.Context, messages []core.Message, opts Options) (*Completion, error)
}

// SplitSystem separates the leading system instruction from the remaining turns.
func SplitSystem(messages []core.Message) (string, []core.Message) {
	var system []string
	rest := make([]core.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == core.RoleSystem {
			if m.Content != "" {
				system = append(system, m.Content)
			}
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// LastUserText returns the content of the most recent user message.
func LastUserText(messages []core.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// MockProvider is a lightweight in-memory Provider useful for tests & examples.
// It is safe for concurrent use.
type MockProvider struct {
	info Info

	mu          sync.Mutex
	responses   map[string]string
	probeErr    error
	completeErr error
	delay       time.Duration
	probes      int
	completions int
	lastRequest []core.Message
}

// NewMockProvider constructs a MockProvider that echoes the last user message.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		info:      Info{Name: name, Provider: "mock", Model: "mock-" + name},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
// The prompt is matched against the last user message.
func (m *MockProvider) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetProbeError makes subsequent probes fail with err (nil restores success).
func (m *MockProvider) SetProbeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeErr = err
}

// SetCompleteError makes subsequent completions fail with err.
func (m *MockProvider) SetCompleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeErr = err
}

// SetDelay makes every call block for d or until the context is done.
func (m *MockProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Probes returns the number of Probe calls observed.
func (m *MockProvider) Probes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probes
}

// Completions returns the number of Complete calls observed.
func (m *MockProvider) Completions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completions
}

// LastRequest returns a copy of the messages passed to the last Complete call.
func (m *MockProvider) LastRequest() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return core.CloneMessages(m.lastRequest)
}

// Info implements Provider.
func (m *MockProvider) Info() Info { return m.info }

// Probe implements Provider.
func (m *MockProvider) Probe(ctx context.Context) error {
	m.mu.Lock()
	m.probes++
	probeErr, delay := m.probeErr, m.delay
	m.mu.Unlock()
	if err := wait(ctx, delay); err != nil {
		return err
	}
	return probeErr
}

// Complete implements Provider.
func (m *MockProvider) Complete(ctx context.Context, messages []core.Message, _ Options) (*Completion, error) {
	m.mu.Lock()
	m.completions++
	m.lastRequest = core.CloneMessages(messages)
	completeErr, delay := m.completeErr, m.delay
	m.mu.Unlock()
	if err := wait(ctx, delay); err != nil {
		return nil, err
	}
	if completeErr != nil {
		return nil, completeErr
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	input := LastUserText(messages)
	m.mu.Lock()
	full := m.responses[input]
	m.mu.Unlock()
	if full == "" {
		full = fmt.Sprintf("Mock response from %s to: %s", m.info.Name, input)
	}
	return &Completion{Text: full, TokensUsed: len(strings.Fields(full)), FinishReason: "stop"}, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
