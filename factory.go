package chatcore

import (
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/mrarejimmyz/chatcore/action/paper"
	"github.com/mrarejimmyz/chatcore/backend"
	"github.com/mrarejimmyz/chatcore/config"
	"github.com/mrarejimmyz/chatcore/logging"
	"github.com/mrarejimmyz/chatcore/model"
	"github.com/mrarejimmyz/chatcore/model/anthropic"
	"github.com/mrarejimmyz/chatcore/model/ollama"
	"github.com/mrarejimmyz/chatcore/model/openai"
	"github.com/mrarejimmyz/chatcore/portfolio"
	"github.com/mrarejimmyz/chatcore/proof"
	"github.com/mrarejimmyz/chatcore/session/sqlite"
	"github.com/mrarejimmyz/chatcore/signal"
)

// NewProvider builds the generation backend described by b.
func NewProvider(b config.BackendConfig) (model.Provider, error) {
	switch b.Provider {
	case config.ProviderOllama:
		return ollama.NewProvider(func(o *ollama.Options) {
			o.Name = b.Name
			if b.Model != "" {
				o.Model = b.Model
			}
			if b.BaseURL != "" {
				o.BaseURL = b.BaseURL
			}
			if b.APIKey != "" {
				o.APIKey = b.APIKey
			}
			if b.Temperature > 0 {
				o.Temperature = float32(b.Temperature)
			}
			if b.MaxTokens > 0 {
				o.MaxTokens = b.MaxTokens
			}
		}), nil
	case config.ProviderOpenAI:
		return openai.NewProvider(func(o *openai.Options) {
			o.Name = b.Name
			if b.Model != "" {
				o.Model = b.Model
			}
			o.APIKey = b.APIKey
			o.BaseURL = b.BaseURL
			if b.Temperature > 0 {
				o.Temperature = b.Temperature
			}
			if b.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(b.MaxTokens)
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewProvider(func(o *anthropic.Options) {
			o.Name = b.Name
			if b.Model != "" {
				o.Model = anthropicsdk.Model(b.Model)
			}
			o.APIKey = b.APIKey
			o.BaseURL = b.BaseURL
			if b.Temperature > 0 {
				o.Temperature = b.Temperature
			}
			if b.MaxTokens > 0 {
				o.MaxTokens = int64(b.MaxTokens)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q for backend %q", b.Provider, b.Name)
	}
}

// NewFromConfig wires a ChatCore from configuration: backends, the
// conversation store, a paper portfolio with its action executor, an
// in-memory signal feed and the logger. optFns run last and may override
// any of it.
func NewFromConfig(cfg *config.Config, optFns ...func(o *Options)) (*ChatCore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, false).WithComponent("chatcore")

	candidates := make([]backend.Candidate, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		p, err := NewProvider(b)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, backend.Candidate{
			Provider: p,
			Rank:     b.Rank,
			Endpoint: backend.Endpoint{BaseURL: b.BaseURL},
		})
	}

	book := portfolio.New(func(o *portfolio.Options) {
		o.Cash = cfg.Portfolio.Cash
		o.Prices = cfg.Portfolio.Prices
		o.Positions = cfg.Portfolio.Positions
	})
	proofs := proof.NewInMemoryStore()

	var closers []func() error
	var store *sqlite.Store
	if cfg.Storage.Driver == "sqlite" {
		s, err := sqlite.Open(cfg.Storage.DSN, cfg.History.Window)
		if err != nil {
			return nil, fmt.Errorf("open conversation store: %w", err)
		}
		store = s
		closers = append(closers, s.Close)
	}

	c := New(func(o *Options) {
		o.Backends = candidates
		o.ProbeTimeout = cfg.Probe.Timeout
		o.Window = cfg.History.Window
		if store != nil {
			o.Store = store
		}
		o.Portfolio = book
		o.Signals = signal.NewStore()
		o.EnrichTimeout = cfg.Enrichment.Timeout
		o.SourceTimeout = cfg.Enrichment.SourceTimeout
		o.MaxSignals = cfg.Enrichment.MaxSignals
		o.Executor = paper.New(book, func(po *paper.Options) {
			po.Proofs = proofs
			po.Logger = logger
		})
		o.Proofs = proofs
		o.SystemPrompt = cfg.SystemPrompt
		o.GenerationTimeout = cfg.Generation.Timeout
		o.ActionTimeout = cfg.Action.Timeout
		o.StreamPace = cfg.Stream.Pace
		o.Logger = logger
		o.closers = closers
		for _, fn := range optFns {
			fn(o)
		}
	})
	return c, nil
}
