// Package paper provides action handlers that execute against an in-memory
// portfolio.Book and issue a verifiable proof receipt for every success.
package paper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mrarejimmyz/chatcore/action"
	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/logging"
	"github.com/mrarejimmyz/chatcore/portfolio"
	"github.com/mrarejimmyz/chatcore/proof"
)

// Options configures the paper executor.
type Options struct {
	// Proofs stores receipts. Defaults to a fresh proof.InMemoryStore.
	Proofs core.ProofStore
	Logger logging.Logger
}

type tradeParams struct {
	Side     string  `json:"side" enum:"buy|sell"`
	Quantity float64 `json:"quantity" exclusiveMinimum:"0"`
}

type hedgeParams struct {
	Ratio    float64 `json:"ratio,omitempty" exclusiveMinimum:"0" maximum:"1"`
	Quantity float64 `json:"quantity,omitempty" exclusiveMinimum:"0"`
}

type swapParams struct {
	Quantity float64 `json:"quantity" exclusiveMinimum:"0"`
	To       string  `json:"to"`
}

type rebalanceParams struct {
	Weights map[string]any `json:"weights,omitempty"`
}

type analysisParams struct {
	Scope string `json:"scope" enum:"portfolio|risk|symbol"`
}

type executor struct {
	book   *portfolio.Book
	proofs core.ProofStore
}

// New returns a registry serving every action type against book.
func New(book *portfolio.Book, optFns ...func(o *Options)) *action.Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Proofs == nil {
		opts.Proofs = proof.NewInMemoryStore()
	}
	return action.NewRegistry(Handlers(book, opts.Proofs), func(o *action.Options) {
		o.Logger = opts.Logger
	})
}

// Handlers returns the paper handlers for all action types.
func Handlers(book *portfolio.Book, proofs core.ProofStore) []action.Handler {
	x := &executor{book: book, proofs: proofs}
	return []action.Handler{
		action.NewFunctionHandlerFromStruct(core.ActionTrade, "Buy or sell a quantity of a symbol", tradeParams{}, x.trade),
		action.NewFunctionHandlerFromStruct(core.ActionHedge, "Hedge part of a position", hedgeParams{}, x.hedge),
		action.NewFunctionHandlerFromStruct(core.ActionSwap, "Exchange one holding for another", swapParams{}, x.swap),
		action.NewFunctionHandlerFromStruct(core.ActionRebalance, "Trade toward target weights", rebalanceParams{}, x.rebalance),
		action.NewFunctionHandlerFromStruct(core.ActionAnalysis, "Summarise holdings or a position", analysisParams{}, x.analysis),
	}
}

func (x *executor) trade(ctx context.Context, a core.ActionDescriptor) (*core.ActionResult, error) {
	qty, _ := a.Float("quantity")
	var (
		fill portfolio.Fill
		err  error
	)
	if a.String("side") == "sell" {
		fill, err = x.book.Sell(a.Target, qty)
	} else {
		fill, err = x.book.Buy(a.Target, qty)
	}
	if err != nil {
		return nil, err
	}
	verb := "Bought"
	if fill.Side == "sell" {
		verb = "Sold"
	}
	summary := fmt.Sprintf("%s %g %s at $%.2f for $%.2f", verb, fill.Quantity, fill.Symbol, fill.Price, fill.Notional)
	return x.settle(ctx, a, summary, map[string]any{
		"fills":      []portfolio.Fill{fill},
		"cash_after": x.book.Cash(),
	})
}

func (x *executor) hedge(ctx context.Context, a core.ActionDescriptor) (*core.ActionResult, error) {
	symbols := []string{a.Target}
	if a.Target == core.TargetPortfolio {
		symbols = x.heldSymbols(ctx)
		if len(symbols) == 0 {
			return nil, fmt.Errorf("%w: no positions to hedge", portfolio.ErrInsufficientPosition)
		}
	}
	hedged := make(map[string]float64, len(symbols))
	parts := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		qty, ok := a.Float("quantity")
		if !ok || a.Target == core.TargetPortfolio {
			ratio, ok := a.Float("ratio")
			if !ok {
				ratio = 0.5
			}
			qty = x.book.Position(sym) * ratio
		}
		total, err := x.book.Hedge(sym, qty)
		if err != nil {
			return nil, err
		}
		hedged[sym] = total
		parts = append(parts, fmt.Sprintf("%g %s (%g hedged in total)", qty, sym, total))
	}
	return x.settle(ctx, a, "Hedged "+strings.Join(parts, ", "), map[string]any{"hedged": hedged})
}

func (x *executor) swap(ctx context.Context, a core.ActionDescriptor) (*core.ActionResult, error) {
	qty, _ := a.Float("quantity")
	sold, bought, err := x.book.Swap(a.Target, a.String("to"), qty)
	if err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("Swapped %g %s ($%.2f) for %.4g %s", sold.Quantity, sold.Symbol, sold.Notional, bought.Quantity, bought.Symbol)
	return x.settle(ctx, a, summary, map[string]any{"fills": []portfolio.Fill{sold, bought}})
}

func (x *executor) rebalance(ctx context.Context, a core.ActionDescriptor) (*core.ActionResult, error) {
	var weights map[string]float64
	if raw, ok := a.Params["weights"].(map[string]any); ok && len(raw) > 0 {
		weights = make(map[string]float64, len(raw))
		for sym, v := range raw {
			w, ok := v.(float64)
			if !ok {
				return nil, action.NewError(a.Type, fmt.Sprintf("weight for %s is not a number", sym), action.CodeValidation)
			}
			weights[sym] = w
		}
	}
	fills, err := x.book.Rebalance(weights)
	if err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("Rebalanced portfolio with %d trade(s)", len(fills))
	if len(fills) == 0 {
		summary = "Portfolio already matches the target weights"
	}
	return x.settle(ctx, a, summary, map[string]any{"fills": fills, "cash_after": x.book.Cash()})
}

func (x *executor) analysis(ctx context.Context, a core.ActionDescriptor) (*core.ActionResult, error) {
	snap, err := x.book.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var summary string
	switch a.String("scope") {
	case "symbol":
		summary = describePosition(snap, a.Target)
	case "risk":
		summary = describeRisk(snap)
	default:
		summary = describePortfolio(snap)
	}
	return x.settle(ctx, a, summary, map[string]any{"snapshot": snap})
}

func (x *executor) heldSymbols(ctx context.Context) []string {
	snap, err := x.book.Snapshot(ctx)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(snap.Positions))
	for _, p := range snap.Positions {
		out = append(out, p.Symbol)
	}
	return out
}

// settle issues a receipt scoped to the conversation and builds the result.
func (x *executor) settle(ctx context.Context, a core.ActionDescriptor, summary string, payload map[string]any) (*core.ActionResult, error) {
	scope := core.ConversationIDFromContext(ctx)
	handle, err := proof.Issue(x.proofs, proof.Receipt{
		Scope:   scope,
		Action:  a,
		Summary: summary,
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("issue receipt: %w", err)
	}
	return &core.ActionResult{Success: true, Summary: summary, Payload: payload, Proof: handle}, nil
}

func describePosition(snap *core.PortfolioSnapshot, symbol string) string {
	for _, p := range snap.Positions {
		if p.Symbol == symbol {
			return fmt.Sprintf("%s: %g units at $%.2f, worth $%.2f (%.1f%% of $%.2f)",
				p.Symbol, p.Quantity, p.Price, p.Value, pct(p.Value, snap.TotalValue), snap.TotalValue)
		}
	}
	return fmt.Sprintf("%s is not held; the portfolio is worth $%.2f", symbol, snap.TotalValue)
}

func describePortfolio(snap *core.PortfolioSnapshot) string {
	parts := make([]string, 0, len(snap.Positions))
	for _, p := range snap.Positions {
		parts = append(parts, fmt.Sprintf("%s %.1f%%", p.Symbol, pct(p.Value, snap.TotalValue)))
	}
	return fmt.Sprintf("Portfolio worth $%.2f with $%.2f cash across %d position(s): %s",
		snap.TotalValue, snap.Cash, len(snap.Positions), strings.Join(parts, ", "))
}

func describeRisk(snap *core.PortfolioSnapshot) string {
	if len(snap.Positions) == 0 {
		return "No positions held; all value is in cash"
	}
	pos := append([]core.Position(nil), snap.Positions...)
	sort.Slice(pos, func(i, j int) bool { return pos[i].Value > pos[j].Value })
	top := pos[0]
	return fmt.Sprintf("Largest exposure is %s at %.1f%% of the portfolio; cash is %.1f%%",
		top.Symbol, pct(top.Value, snap.TotalValue), pct(snap.Cash, snap.TotalValue))
}

func pct(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
