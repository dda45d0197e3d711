package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrarejimmyz/chatcore/backend"
	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/intent"
	"github.com/mrarejimmyz/chatcore/internal/util"
	"github.com/mrarejimmyz/chatcore/logging"
	"github.com/mrarejimmyz/chatcore/metrics"
	"github.com/mrarejimmyz/chatcore/model"
	"github.com/mrarejimmyz/chatcore/session"
)

// Provenance values used in Response.Backend / MessageMetadata.Backend for
// replies that did not come from a generation backend.
const (
	BackendAction   = "action"
	BackendFallback = "fallback"
	ModelRuleBased  = "rule-based"
)

const (
	backendConfidence  = 0.9
	fallbackConfidence = 0.5
)

// Parser recognises actions in user text.
type Parser interface {
	Parse(text string) *core.ActionDescriptor
}

// Enricher augments a prompt with live data. It must not fail.
type Enricher interface {
	Enrich(ctx context.Context, message, conversationID string, extra map[string]string) string
}

// Request is one user turn.
type Request struct {
	ConversationID string
	Message        string
	// Context is optional caller-supplied context appended to the prompt.
	Context map[string]string
}

// Options configures an Engine. Zero values get in-memory or no-op defaults.
type Options struct {
	Store    core.ConversationStore
	Parser   Parser
	Enricher Enricher
	Executor core.ActionExecutor
	Fallback Responder

	// SystemPrompt seeds new conversations. It may use {{.Now}} and
	// {{.ConversationID}}.
	SystemPrompt string

	// GenerationTimeout bounds each backend call inside the cascade.
	GenerationTimeout time.Duration
	// ActionTimeout bounds the executor call.
	ActionTimeout time.Duration
	// Completion holds per-call generation parameters.
	Completion model.Options

	Logger  logging.Logger
	Metrics metrics.Recorder
	Hooks   *HookManager
}

// Engine turns a user message into either an executed action or a generated
// reply. It never returns an error to its caller.
type Engine struct {
	prober *backend.Prober
	opts   Options
	log    logging.DomainLogger
}

// New creates an Engine over the given prober.
func New(prober *backend.Prober, optFns ...func(o *Options)) *Engine {
	opts := Options{
		GenerationTimeout: 30 * time.Second,
		ActionTimeout:     15 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	if opts.Parser == nil {
		opts.Parser = intent.New()
	}
	if opts.Fallback == nil {
		opts.Fallback = NewRuleResponder()
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 30 * time.Second
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 15 * time.Second
	}
	if opts.Hooks == nil {
		opts.Hooks = NewHookManager()
	}
	opts.Metrics = metrics.OrNoOp(opts.Metrics)
	if prober == nil {
		prober = backend.New(nil)
	}
	return &Engine{prober: prober, opts: opts, log: logging.Domain(opts.Logger)}
}

// Prober returns the backend prober driving the cascade.
func (e *Engine) Prober() *backend.Prober { return e.prober }

// Store returns the conversation store.
func (e *Engine) Store() core.ConversationStore { return e.opts.Store }

// Hooks returns the hook manager so callers can register hooks after construction.
func (e *Engine) Hooks() *HookManager { return e.opts.Hooks }

// Generate runs one request through the state machine and always returns a
// well-formed response.
func (e *Engine) Generate(ctx context.Context, req Request) *core.Response {
	ctx = core.WithConversationID(ctx, req.ConversationID)
	hc := &HookContext{ConversationID: req.ConversationID, Message: req.Message, State: StateReceived, From: StateReceived}
	e.fire(ctx, hc)

	e.ensureSystemPrompt(ctx, req.ConversationID)

	e.enter(ctx, hc, StateActionCheck)
	if action := e.opts.Parser.Parse(req.Message); action != nil {
		hc.Action = action
		e.opts.Metrics.ObserveRequest("action")
		e.enter(ctx, hc, StateActionExecuted)
		resp := e.executeAction(ctx, req, action, hc)
		e.enter(ctx, hc, StateDirectReturn)
		e.enter(ctx, hc, StateRecorded)
		return resp
	}

	e.enter(ctx, hc, StateGenerate)
	e.opts.Metrics.ObserveRequest("generate")
	prompt := req.Message
	if e.opts.Enricher != nil {
		prompt = e.opts.Enricher.Enrich(ctx, req.Message, req.ConversationID, req.Context)
	}
	user := core.NewUserMessage(req.Message)
	e.append(ctx, req.ConversationID, user)
	history := e.requestHistory(ctx, req.ConversationID, user, prompt)

	e.enter(ctx, hc, StateBackendCascade)
	resp := e.cascade(ctx, req, history, hc)
	hc.BackendAttempt = false
	e.append(ctx, req.ConversationID, resp.Message)

	e.enter(ctx, hc, StateRecorded)
	return resp
}

func (e *Engine) enter(ctx context.Context, hc *HookContext, s State) {
	hc.From, hc.State = hc.State, s
	e.fire(ctx, hc)
}

// attempt fires hooks for one backend call without a state change.
func (e *Engine) attempt(ctx context.Context, hc *HookContext, backend string, n int) {
	hc.From, hc.State = StateBackendCascade, StateBackendCascade
	hc.Backend, hc.Attempt, hc.BackendAttempt = backend, n, true
	e.fire(ctx, hc)
}

func (e *Engine) fire(ctx context.Context, hc *HookContext) {
	for _, err := range e.opts.Hooks.Fire(ctx, hc) {
		e.log.Warn("Hook failed", "state", hc.State.String(), "conversation_id", hc.ConversationID, "error", err.Error())
	}
}

func (e *Engine) append(ctx context.Context, conversationID string, msg core.Message) {
	if err := e.opts.Store.Append(ctx, conversationID, msg); err != nil {
		e.log.Error("Failed to append message", "conversation_id", conversationID, "role", string(msg.Role), "error", err.Error())
	}
}

// ensureSystemPrompt seeds the conversation with the rendered system prompt
// when it has none.
func (e *Engine) ensureSystemPrompt(ctx context.Context, conversationID string) {
	if e.opts.SystemPrompt == "" {
		return
	}
	history, err := e.opts.Store.History(ctx, conversationID)
	if err != nil {
		e.log.Warn("Failed to read history", "conversation_id", conversationID, "error", err.Error())
		return
	}
	if len(history) > 0 && history[0].IsSystem() {
		return
	}
	text, err := util.RenderTemplate(e.opts.SystemPrompt, map[string]any{
		"Now":            time.Now().UTC().Format(time.RFC3339),
		"ConversationID": conversationID,
	})
	if err != nil {
		e.log.Warn("Failed to render system prompt", "error", err.Error())
		text = e.opts.SystemPrompt
	}
	e.append(ctx, conversationID, core.NewSystemMessage(text))
}

// requestHistory returns the trimmed history to send to a backend, with the
// just-appended user turn carrying the enriched prompt. The stored history
// keeps the user's original text.
func (e *Engine) requestHistory(ctx context.Context, conversationID string, user core.Message, prompt string) []core.Message {
	history, err := e.opts.Store.History(ctx, conversationID)
	if err != nil || len(history) == 0 {
		if err != nil {
			e.log.Warn("Failed to read history", "conversation_id", conversationID, "error", err.Error())
		}
		u := user.Clone()
		u.Content = prompt
		return []core.Message{u}
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == core.RoleUser {
			history[i].Content = prompt
			break
		}
	}
	return history
}

func (e *Engine) executeAction(ctx context.Context, req Request, action *core.ActionDescriptor, hc *HookContext) *core.Response {
	start := time.Now()
	result, err := e.runExecutor(ctx, *action)
	if err == nil && result == nil {
		err = errors.New("executor returned no result")
	}
	success := err == nil && result.Success
	if err != nil {
		hc.Err = err
		result = &core.ActionResult{Success: false, Summary: err.Error()}
	}

	e.log.LogAction(string(action.Type), time.Since(start), success, err)
	e.opts.Metrics.ObserveAction(string(action.Type), success)

	content := FormatActionResult(action, result)
	md := core.MessageMetadata{
		Backend:        BackendAction,
		Model:          BackendAction,
		Confidence:     action.Confidence,
		ActionExecuted: true,
		Action:         action,
		Proof:          result.Proof,
	}
	reply := core.NewAssistantMessage(content, md)

	e.append(ctx, req.ConversationID, core.NewUserMessage(req.Message))
	e.append(ctx, req.ConversationID, reply)

	return &core.Response{
		ConversationID: req.ConversationID,
		Content:        content,
		Model:          md.Model,
		Backend:        md.Backend,
		Confidence:     md.Confidence,
		ActionExecuted: true,
		ActionResult:   result,
		Proof:          result.Proof,
		Message:        reply.Clone(),
	}
}

// runExecutor calls the executor under ActionTimeout and gives up when the
// timeout fires even if the executor ignores its context.
func (e *Engine) runExecutor(ctx context.Context, action core.ActionDescriptor) (*core.ActionResult, error) {
	if e.opts.Executor == nil {
		return nil, fmt.Errorf("no executor is configured for %s actions", action.Type)
	}
	actx, cancel := context.WithTimeout(ctx, e.opts.ActionTimeout)
	defer cancel()

	type outcome struct {
		res *core.ActionResult
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := e.opts.Executor.Execute(actx, action)
		ch <- outcome{res, err}
	}()
	select {
	case o := <-ch:
		return o.res, o.err
	case <-actx.Done():
		return nil, fmt.Errorf("action timed out after %s: %w", e.opts.ActionTimeout, actx.Err())
	}
}

// FormatActionResult renders an action outcome as the assistant's reply.
func FormatActionResult(action *core.ActionDescriptor, result *core.ActionResult) string {
	label := "Action"
	if t := string(action.Type); t != "" {
		label = strings.ToUpper(t[:1]) + t[1:]
	}
	if action.Target != "" {
		label += " " + action.Target
	}
	if !result.Success {
		reason := strings.TrimSpace(result.Summary)
		if reason == "" {
			reason = "the executor reported a failure"
		}
		return fmt.Sprintf("%s was not executed: %s", label, reason)
	}
	var sb strings.Builder
	sb.WriteString(label + " executed")
	if s := strings.TrimSpace(result.Summary); s != "" {
		sb.WriteString(": " + s)
	}
	if result.Proof != "" {
		sb.WriteString("\nProof: " + result.Proof)
	}
	return sb.String()
}

// cascade tries backends in priority order, never the same one twice and at
// most prober.Len() times, then falls back to the rule-based responder.
func (e *Engine) cascade(ctx context.Context, req Request, history []core.Message, hc *HookContext) *core.Response {
	tried := make(map[string]bool)
	for attempt := 1; attempt <= e.prober.Len(); attempt++ {
		d := e.prober.SelectActive(ctx)
		if d.IsNone() || tried[d.Name] {
			break
		}
		tried[d.Name] = true

		provider, ok := e.prober.Provider(d.Name)
		if !ok {
			e.prober.MarkFailed(d.Name)
			continue
		}

		e.attempt(ctx, hc, d.Name, attempt)

		start := time.Now()
		c, err := e.complete(ctx, provider, history)
		dur := time.Since(start)
		tokens := 0
		if c != nil {
			tokens = c.TokensUsed
		}
		e.log.LogBackendCall(d.Name, tokens, dur, err == nil, err)
		e.opts.Metrics.ObserveBackendCall(d.Name, dur, err == nil)

		if err == nil {
			md := core.MessageMetadata{
				Backend:    d.Name,
				Model:      d.Model,
				Confidence: backendConfidence,
				TokensUsed: c.TokensUsed,
			}
			return e.reply(req, c.Text, md)
		}

		hc.Err = err
		if ctx.Err() != nil {
			// The caller went away; the backend is not to blame.
			break
		}
		e.prober.MarkFailed(d.Name)
	}

	e.opts.Metrics.ObserveFallback()
	e.log.Warn("All backends failed, using rule-based responder", "conversation_id", req.ConversationID, "tried", len(tried))
	md := core.MessageMetadata{
		Backend:    BackendFallback,
		Model:      ModelRuleBased,
		Confidence: fallbackConfidence,
		Fallback:   true,
	}
	return e.reply(req, e.opts.Fallback.Respond(req.Message), md)
}

// complete calls one backend under GenerationTimeout. Empty text is a
// failure.
func (e *Engine) complete(ctx context.Context, p model.Provider, history []core.Message) (*model.Completion, error) {
	gctx, cancel := context.WithTimeout(ctx, e.opts.GenerationTimeout)
	defer cancel()

	type outcome struct {
		c   *model.Completion
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		c, err := p.Complete(gctx, core.CloneMessages(history), e.opts.Completion)
		ch <- outcome{c, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return nil, o.err
		}
		if o.c == nil || strings.TrimSpace(o.c.Text) == "" {
			return nil, model.ErrEmptyCompletion
		}
		o.c.Text = strings.TrimSpace(o.c.Text)
		return o.c, nil
	case <-gctx.Done():
		return nil, fmt.Errorf("generation timed out after %s: %w", e.opts.GenerationTimeout, gctx.Err())
	}
}

func (e *Engine) reply(req Request, text string, md core.MessageMetadata) *core.Response {
	msg := core.NewAssistantMessage(text, md)
	return &core.Response{
		ConversationID: req.ConversationID,
		Content:        text,
		Model:          md.Model,
		Backend:        md.Backend,
		Confidence:     md.Confidence,
		Fallback:       md.Fallback,
		Message:        msg,
	}
}
