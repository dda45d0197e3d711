package core

import "context"

// ActionType enumerates the structured operations the intent parser can
// recognise. The set is closed at the parser level but executors may support
// any subset.
type ActionType string

const (
	ActionTrade     ActionType = "trade"
	ActionHedge     ActionType = "hedge"
	ActionSwap      ActionType = "swap"
	ActionRebalance ActionType = "rebalance"
	ActionAnalysis  ActionType = "analysis"
)

// TargetPortfolio is the action target for whole-portfolio operations.
const TargetPortfolio = "PORTFOLIO"

// ActionDescriptor is a typed request to perform a concrete operation. It is
// produced per request by the intent parser and persisted only as metadata on
// the resulting assistant message.
type ActionDescriptor struct {
	Type       ActionType     `json:"type"`
	Target     string         `json:"target,omitempty"` // symbol or "PORTFOLIO"
	Params     map[string]any `json:"params,omitempty"` // numeric and enum parameters
	Confidence float64        `json:"confidence"`
	Source     string         `json:"source,omitempty"` // matched text span
}

// Clone returns a copy with an independent Params map.
func (a ActionDescriptor) Clone() ActionDescriptor {
	if a.Params == nil {
		return a
	}
	p := make(map[string]any, len(a.Params))
	for k, v := range a.Params {
		p[k] = v
	}
	a.Params = p
	return a
}

// Float returns a numeric parameter as float64.
func (a ActionDescriptor) Float(key string) (float64, bool) {
	switch v := a.Params[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// String returns a string parameter.
func (a ActionDescriptor) String(key string) string {
	s, _ := a.Params[key].(string)
	return s
}

// ActionResult is the outcome reported by an ActionExecutor. Beyond Success
// and Summary the payload is opaque to the orchestrator.
type ActionResult struct {
	Success bool           `json:"success"`
	Summary string         `json:"summary"`
	Payload map[string]any `json:"payload,omitempty"`
	Proof   string         `json:"proof,omitempty"` // verifiable handle, e.g. a receipt id
}

// ActionExecutor performs a parsed action. Implementations are black boxes to
// the orchestrator; a returned error is treated the same as Success=false.
type ActionExecutor interface {
	Execute(ctx context.Context, action ActionDescriptor) (*ActionResult, error)
}
