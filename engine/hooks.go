package engine

import (
	"context"
	"sync"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/logging"
)

// AnyState registers a hook for every transition.
const AnyState State = -1

// HookContext describes one state transition of a request.
type HookContext struct {
	ConversationID string
	Message        string
	From           State
	State          State

	// Action is set once the intent parser matched.
	Action *core.ActionDescriptor
	// Backend and Attempt are set inside the cascade.
	Backend string
	Attempt int
	// BackendAttempt marks a firing for a backend call inside the cascade
	// rather than a state change. From and State are then both
	// StateBackendCascade.
	BackendAttempt bool
	// Err carries the last backend or action error, if any.
	Err error
}

// Hook observes state transitions. Hooks run synchronously on the request
// goroutine; an error is logged and never aborts the request, since the
// generator always answers.
type Hook interface {
	// State returns the state this hook fires on, or AnyState.
	State() State
	Execute(ctx context.Context, hc *HookContext) error
}

// FunctionHook wraps a function as a Hook.
type FunctionHook struct {
	state State
	fn    func(ctx context.Context, hc *HookContext) error
}

// NewFunctionHook creates a function-based hook.
//
// Example:
//
//	hooks.Register(engine.NewFunctionHook(engine.StateBackendCascade,
//	    func(ctx context.Context, hc *engine.HookContext) error {
//	        log.Printf("cascade attempt %d on %s", hc.Attempt, hc.Backend)
//	        return nil
//	    }))
func NewFunctionHook(state State, fn func(ctx context.Context, hc *HookContext) error) *FunctionHook {
	return &FunctionHook{state: state, fn: fn}
}

// State returns the state this hook handles.
func (h *FunctionHook) State() State { return h.state }

// Execute calls the wrapped function.
func (h *FunctionHook) Execute(ctx context.Context, hc *HookContext) error {
	return h.fn(ctx, hc)
}

// HookManager keeps hooks by state. Registration and execution are safe for
// concurrent use.
type HookManager struct {
	mu    sync.RWMutex
	hooks map[State][]Hook
}

// NewHookManager creates an empty manager.
func NewHookManager() *HookManager {
	return &HookManager{hooks: make(map[State][]Hook)}
}

// Register adds a hook. Hooks for the same state run in registration order.
func (m *HookManager) Register(h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[h.State()] = append(m.hooks[h.State()], h)
}

// Fire runs the hooks registered for hc.State, then the AnyState hooks.
// Every hook runs; errors are returned in order.
func (m *HookManager) Fire(ctx context.Context, hc *HookContext) []error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	hooks := append(append([]Hook(nil), m.hooks[hc.State]...), m.hooks[AnyState]...)
	m.mu.RUnlock()

	var errs []error
	for _, h := range hooks {
		if err := h.Execute(ctx, hc); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// LoggingHook logs every transition and backend attempt at debug level.
type LoggingHook struct {
	logger logging.Logger
}

// NewLoggingHook creates a hook that writes transitions to logger.
func NewLoggingHook(logger logging.Logger) *LoggingHook {
	return &LoggingHook{logger: logging.OrNoOp(logger)}
}

// State returns AnyState.
func (h *LoggingHook) State() State { return AnyState }

// Execute logs the transition.
func (h *LoggingHook) Execute(_ context.Context, hc *HookContext) error {
	msg := "State transition"
	if hc.BackendAttempt {
		msg = "Backend attempt"
	}
	args := []any{"conversation_id", hc.ConversationID, "from", hc.From.String(), "to", hc.State.String()}
	if hc.Backend != "" {
		args = append(args, "backend", hc.Backend, "attempt", hc.Attempt)
	}
	if hc.Action != nil {
		args = append(args, "action", string(hc.Action.Type), "target", hc.Action.Target)
	}
	h.logger.Debug(msg, args...)
	return nil
}
