// Package anthropic provides a model.Provider for the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/model"
)

// Options configures the Anthropic adapter (name, model id, temperature,
// max tokens, API key, base URL).
type Options struct {
	Name        string
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	BaseURL     string
}

// Provider wraps the Anthropic Messages API behind model.Provider.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

var _ model.Provider = (*Provider)(nil)

func defaultOptions() Options {
	return Options{
		Name:        "anthropic",
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// NewProvider creates a new Anthropic provider using the official client.
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

	client := anthropic.NewClient(clientOpts...)
	return &Provider{client: &client, opts: opts}
}

// NewProviderFromClient creates a new Anthropic provider from an existing client.
func NewProviderFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Probe lists a single model to verify reachability and credentials.
func (p *Provider) Probe(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(1)}); err != nil {
		return fmt.Errorf("anthropic probe: %w", err)
	}
	return nil
}

// Complete implements model.Provider.
func (p *Provider) Complete(ctx context.Context, messages []core.Message, opts model.Options) (*model.Completion, error) {
	system, turns := model.SplitSystem(messages)

	temperature := p.opts.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := p.opts.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		Messages:    buildMessages(turns),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(params.Messages) == 0 {
		return nil, fmt.Errorf("anthropic: no user turn to answer")
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, model.ErrEmptyCompletion
	}

	finishReason := "stop"
	if resp.StopReason != "" {
		finishReason = string(resp.StopReason)
	}
	return &model.Completion{
		Text:         text,
		TokensUsed:   int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		FinishReason: finishReason,
	}, nil
}

// buildMessages converts turns to Anthropic's format. The API requires the
// first turn to come from the user and roles to alternate, so leading
// assistant turns (left behind by history trimming) are dropped and
// consecutive same-role turns are merged.
func buildMessages(turns []core.Message) []anthropic.MessageParam {
	type turn struct {
		role core.Role
		text []string
	}
	var merged []turn
	for _, m := range turns {
		if m.Content == "" {
			continue
		}
		role := m.Role
		if role != core.RoleAssistant {
			role = core.RoleUser
		}
		if len(merged) == 0 && role == core.RoleAssistant {
			continue
		}
		if n := len(merged); n > 0 && merged[n-1].role == role {
			merged[n-1].text = append(merged[n-1].text, m.Content)
			continue
		}
		merged = append(merged, turn{role: role, text: []string{m.Content}})
	}

	messages := make([]anthropic.MessageParam, 0, len(merged))
	for _, t := range merged {
		block := anthropic.NewTextBlock(strings.Join(t.text, "\n\n"))
		if t.role == core.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	return messages
}

// Info returns metadata describing this provider.
func (p *Provider) Info() model.Info {
	return model.Info{
		Name:     p.opts.Name,
		Provider: "anthropic",
		Model:    string(p.opts.Model),
	}
}
