// Package openai provides an implementation of model.Provider using the
// OpenAI Chat Completions API. It adapts chatcore's conversation messages into
// the SDK's message format and back.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/model"
)

// Options configure the OpenAI adapter. Fields mirror a subset of Chat
// Completion parameters; extend via functional options without breaking callers.
type Options struct {
	Name                string
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	BaseURL             string
}

// Provider wraps the OpenAI Chat Completions API behind model.Provider.
type Provider struct {
	client *openai.Client
	opts   Options
}

var _ model.Provider = (*Provider)(nil)

func defaultOptions() Options {
	return Options{
		Name:                "openai",
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 1024,
	}
}

// NewProvider creates a new OpenAI provider using the official client. SDK
// level retries are disabled: the cascade already moves on to the next backend.
func NewProvider(optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)
	return &Provider{client: &client, opts: opts}
}

// NewProviderFromClient creates a new OpenAI provider from an existing client.
func NewProviderFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Probe lists models, which requires valid credentials and a reachable endpoint
// but costs no tokens.
func (p *Provider) Probe(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("openai probe: %w", err)
	}
	return nil
}

// Complete implements model.Provider.
func (p *Provider) Complete(ctx context.Context, messages []core.Message, opts model.Options) (*model.Completion, error) {
	params := p.buildParams(buildMessages(messages), opts)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}
	ch0 := resp.Choices[0]
	text := strings.TrimSpace(ch0.Message.Content)
	if text == "" {
		return nil, model.ErrEmptyCompletion
	}
	return &model.Completion{
		Text:         text,
		TokensUsed:   int(resp.Usage.TotalTokens),
		FinishReason: ch0.FinishReason,
	}, nil
}

// buildMessages converts conversation messages into OpenAI chat messages.
func buildMessages(messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			if m.Content != "" {
				out = append(out, openai.UserMessage(m.Content))
			}
		}
	}
	return out
}

// buildParams assembles the request, letting per-call options override defaults.
func (p *Provider) buildParams(
	messages []openai.ChatCompletionMessageParamUnion,
	opts model.Options,
) openai.ChatCompletionNewParams {
	temperature := p.opts.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := p.opts.MaxCompletionTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               p.opts.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
}

// Info returns metadata describing this provider.
func (p *Provider) Info() model.Info {
	return model.Info{
		Name:     p.opts.Name,
		Provider: "openai",
		Model:    p.opts.Model,
	}
}
