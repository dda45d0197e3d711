// Package chatcore provides a high-level façade over the response engine and
// its collaborators (backend prober, conversation store, intent parser,
// context enricher, action executor and streaming). Most applications
// interact with this package by:
//  1. Creating a ChatCore via New() or NewFromConfig()
//  2. Calling GenerateResponse or StreamResponse per user turn
//  3. Reading or clearing history with GetHistory / ClearHistory
//
// All defaults are safe for local development: with no backends configured
// every reply comes from the rule-based responder.
package chatcore

import (
	"context"
	"time"

	"github.com/mrarejimmyz/chatcore/backend"
	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/engine"
	"github.com/mrarejimmyz/chatcore/enrich"
	"github.com/mrarejimmyz/chatcore/intent"
	"github.com/mrarejimmyz/chatcore/logging"
	"github.com/mrarejimmyz/chatcore/metrics"
	"github.com/mrarejimmyz/chatcore/model"
	"github.com/mrarejimmyz/chatcore/proof"
	"github.com/mrarejimmyz/chatcore/session"
	"github.com/mrarejimmyz/chatcore/stream"
)

// Options configures the ChatCore instance.
type Options struct {
	// Backends in priority order (lower rank first).
	Backends []backend.Candidate
	// ProbeTimeout bounds each backend health check.
	ProbeTimeout time.Duration

	// Store keeps conversation histories. Defaults to an in-memory store
	// bounded by Window.
	Store  core.ConversationStore
	Window int

	// Portfolio and Signals feed enrichment; both optional.
	Portfolio core.PortfolioSource
	Signals   core.SignalSource
	// EnrichTimeout is the overall enrichment budget, SourceTimeout the
	// per-source bound.
	EnrichTimeout time.Duration
	SourceTimeout time.Duration
	MaxSignals    int

	// DataChecker gates analysis intents. When nil and Portfolio implements
	// intent.DataChecker, the portfolio is used.
	DataChecker intent.DataChecker
	// Executor runs parsed actions. Nil makes every action fail readably.
	Executor core.ActionExecutor
	// Proofs resolves proof handles returned by the executor.
	Proofs core.ProofStore

	SystemPrompt      string
	GenerationTimeout time.Duration
	ActionTimeout     time.Duration
	Completion        model.Options
	// StreamPace is the delay between streamed chunks.
	StreamPace time.Duration

	Hooks   []engine.Hook
	Logger  logging.Logger
	Metrics metrics.Recorder

	closers []func() error
}

// ChatCore is the high-level façade aggregating the engine and its services.
type ChatCore struct {
	opts   Options
	engine *engine.Engine
}

// RequestOptions carries optional per-request inputs.
type RequestOptions struct {
	// Context is caller-supplied context appended to the enriched prompt.
	Context map[string]string
}

// New creates a ChatCore. Any unset service is initialised with an in-memory
// or no-op implementation.
func New(optFns ...func(o *Options)) *ChatCore {
	opts := Options{
		Window:     session.DefaultWindow,
		StreamPace: stream.DefaultPace,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	opts.Metrics = metrics.OrNoOp(opts.Metrics)

	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore(func(o *session.Options) { o.Window = opts.Window })
	}
	if opts.Proofs == nil {
		opts.Proofs = proof.NewInMemoryStore()
	}
	if opts.DataChecker == nil {
		if dc, ok := opts.Portfolio.(intent.DataChecker); ok {
			opts.DataChecker = dc
		}
	}

	prober := backend.New(opts.Backends, func(o *backend.Options) {
		o.ProbeTimeout = opts.ProbeTimeout
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	var enricher engine.Enricher
	if opts.Portfolio != nil || opts.Signals != nil {
		enricher = enrich.New(func(o *enrich.Options) {
			o.Portfolio = opts.Portfolio
			o.Signals = opts.Signals
			o.Timeout = opts.EnrichTimeout
			o.SourceTimeout = opts.SourceTimeout
			o.MaxSignals = opts.MaxSignals
			o.Logger = opts.Logger
			o.Metrics = opts.Metrics
		})
	}

	hooks := engine.NewHookManager()
	for _, h := range opts.Hooks {
		hooks.Register(h)
	}

	e := engine.New(prober, func(o *engine.Options) {
		o.Store = opts.Store
		o.Parser = intent.New(func(po *intent.Options) { po.DataChecker = opts.DataChecker })
		o.Enricher = enricher
		o.Executor = opts.Executor
		o.SystemPrompt = opts.SystemPrompt
		o.GenerationTimeout = opts.GenerationTimeout
		o.ActionTimeout = opts.ActionTimeout
		o.Completion = opts.Completion
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
		o.Hooks = hooks
	})

	return &ChatCore{opts: opts, engine: e}
}

// GenerateResponse answers one user turn. It never fails: backend, data and
// action errors are folded into the returned response.
func (c *ChatCore) GenerateResponse(ctx context.Context, conversationID, message string, optFns ...func(o *RequestOptions)) *core.Response {
	ro := RequestOptions{}
	for _, fn := range optFns {
		fn(&ro)
	}
	return c.engine.Generate(ctx, engine.Request{
		ConversationID: conversationID,
		Message:        message,
		Context:        ro.Context,
	})
}

// StreamResponse computes the full response, records it, and returns a
// paced stream over its content.
func (c *ChatCore) StreamResponse(ctx context.Context, conversationID, message string, optFns ...func(o *RequestOptions)) *stream.Stream {
	resp := c.GenerateResponse(ctx, conversationID, message, optFns...)
	return stream.New(resp, func(o *stream.Options) { o.Pace = c.opts.StreamPace })
}

// ClearHistory removes a conversation. Clearing an unknown id is a no-op.
func (c *ChatCore) ClearHistory(ctx context.Context, conversationID string) error {
	return c.opts.Store.Clear(ctx, conversationID)
}

// GetHistory returns a copy of the conversation, system message first.
func (c *ChatCore) GetHistory(ctx context.Context, conversationID string) ([]core.Message, error) {
	return c.opts.Store.History(ctx, conversationID)
}

// Backends returns the current backend descriptors in priority order.
func (c *ChatCore) Backends() []backend.Descriptor {
	return c.engine.Prober().Descriptors()
}

// ProbeBackends health-checks every backend and returns the refreshed descriptors.
func (c *ChatCore) ProbeBackends(ctx context.Context) []backend.Descriptor {
	return c.engine.Prober().ProbeAll(ctx)
}

// ActiveBackend returns the cached or newly selected active backend.
func (c *ChatCore) ActiveBackend(ctx context.Context) backend.Descriptor {
	return c.engine.Prober().SelectActive(ctx)
}

// Proofs returns the store that resolves proof handles.
func (c *ChatCore) Proofs() core.ProofStore { return c.opts.Proofs }

// Hooks returns the engine's hook manager.
func (c *ChatCore) Hooks() *engine.HookManager { return c.engine.Hooks() }

// Close releases resources opened by NewFromConfig.
func (c *ChatCore) Close() error {
	var first error
	for _, fn := range c.opts.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
