package action

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/logging"
)

// Options configures a Registry.
type Options struct {
	Logger logging.Logger
}

// Registry routes actions to handlers by type. It implements
// core.ActionExecutor and is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[core.ActionType]Handler
	logger   logging.Logger
}

var _ core.ActionExecutor = (*Registry)(nil)

// NewRegistry creates a Registry holding the given handlers. Later handlers
// replace earlier ones of the same type.
func NewRegistry(handlers []Handler, optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	r := &Registry{
		handlers: make(map[core.ActionType]Handler, len(handlers)),
		logger:   logging.OrNoOp(opts.Logger),
	}
	for _, h := range handlers {
		r.handlers[h.Type()] = h
	}
	return r
}

// Register adds a handler. It fails if the type is already served.
func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.Type()]; exists {
		return fmt.Errorf("handler for %s already registered", h.Type())
	}
	r.handlers[h.Type()] = h
	return nil
}

// Handler returns the handler for a type.
func (r *Registry) Handler(t core.ActionType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// Types lists the supported action types in sorted order.
func (r *Registry) Types() []core.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ActionType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Execute implements core.ActionExecutor.
func (r *Registry) Execute(ctx context.Context, a core.ActionDescriptor) (*core.ActionResult, error) {
	h, ok := r.Handler(a.Type)
	if !ok {
		r.logger.Warn("action.unsupported", "action", a.Type, "target", a.Target)
		return nil, NewError(a.Type, fmt.Sprintf("%s actions are not supported", a.Type), CodeUnsupported)
	}

	start := time.Now()
	r.logger.Debug("action.start", "action", a.Type, "target", a.Target)

	res, err := h.Handle(ctx, a.Clone())
	if err != nil {
		r.logger.Warn("action.error", "action", a.Type, "target", a.Target, "error", err.Error())
		return nil, err
	}

	r.logger.Info("action.success", "action", a.Type, "target", a.Target, "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}
