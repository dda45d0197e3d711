// Package ollama provides a model.Provider for local OpenAI-compatible
// endpoints such as Ollama, LM Studio or a self-hosted DeepSeek. It is the
// cheapest and most private backend and is normally ranked first.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/model"
)

// DefaultBaseURL is the OpenAI-compatible endpoint exposed by a local Ollama.
const DefaultBaseURL = "http://localhost:11434/v1"

// Options configures the local backend.
type Options struct {
	Name        string
	Model       string
	Temperature float32
	MaxTokens   int
	APIKey      string // most local servers ignore it
	BaseURL     string
	HTTPClient  *http.Client
}

// Provider talks to a local OpenAI-compatible server.
type Provider struct {
	client *openai.Client
	opts   Options
}

var _ model.Provider = (*Provider)(nil)

// NewProvider creates a local provider.
func NewProvider(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Name:        "ollama",
		Model:       "llama3.1",
		Temperature: 0.7,
		MaxTokens:   1024,
		APIKey:      "ollama",
		BaseURL:     DefaultBaseURL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &Provider{client: openai.NewClientWithConfig(cfg), opts: opts}
}

// Probe lists the models served locally.
func (p *Provider) Probe(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("ollama probe: %w", err)
	}
	return nil
}

// Complete implements model.Provider.
func (p *Provider) Complete(ctx context.Context, messages []core.Message, opts model.Options) (*model.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.opts.Model,
		Messages:    convertMessages(messages),
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
	}
	if opts.Temperature > 0 {
		req.Temperature = float32(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = int(opts.MaxTokens)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, model.ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, model.ErrEmptyCompletion
	}
	return &model.Completion{
		Text:         text,
		TokensUsed:   resp.Usage.TotalTokens,
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}

func convertMessages(messages []core.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case core.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case core.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// Info returns metadata describing this provider.
func (p *Provider) Info() model.Info {
	return model.Info{Name: p.opts.Name, Provider: "ollama", Model: p.opts.Model}
}
