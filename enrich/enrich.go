// Package enrich augments a user prompt with live portfolio and market data.
//
// Enrichment is best effort: every source runs concurrently under its own
// timeout, the whole fan-out runs under an overall budget, and a source that
// fails or times out is simply left out. The result is plain text so no
// backend-specific tool-calling format leaks into the prompt.
package enrich

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/intent"
	"github.com/mrarejimmyz/chatcore/logging"
	"github.com/mrarejimmyz/chatcore/metrics"
)

// Section headers used in the enriched prompt.
const (
	PortfolioHeader = "[Portfolio snapshot]"
	SignalsHeader   = "[Market signals]"
	ContextHeader   = "[Caller context]"
)

// Options configures an Enricher.
type Options struct {
	Portfolio core.PortfolioSource
	Signals   core.SignalSource

	// Timeout is the overall budget for one Enrich call.
	Timeout time.Duration
	// SourceTimeout bounds each individual source.
	SourceTimeout time.Duration
	// MaxSignals caps how many signals are included.
	MaxSignals int

	Logger  logging.Logger
	Metrics metrics.Recorder
}

// Enricher is stateless apart from its configuration and safe for
// concurrent use.
type Enricher struct {
	opts Options
}

// New creates an Enricher.
func New(optFns ...func(o *Options)) *Enricher {
	opts := Options{
		Timeout:       2 * time.Second,
		SourceTimeout: 1500 * time.Millisecond,
		MaxSignals:    3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.SourceTimeout <= 0 || opts.SourceTimeout > opts.Timeout {
		opts.SourceTimeout = opts.Timeout
	}
	if opts.MaxSignals <= 0 {
		opts.MaxSignals = 3
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	opts.Metrics = metrics.OrNoOp(opts.Metrics)
	return &Enricher{opts: opts}
}

type results struct {
	mu        sync.Mutex
	portfolio *core.PortfolioSnapshot
	signals   []core.Signal
}

// Enrich returns message followed by whatever data the sources produced
// within the budget. It never fails; with no data the message is returned
// unchanged.
func (e *Enricher) Enrich(ctx context.Context, message, conversationID string, extra map[string]string) string {
	budget, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	res := &results{}
	g := &errgroup.Group{}

	if e.opts.Portfolio != nil {
		g.Go(func() error {
			snap, err := callWithTimeout(budget, e.opts.SourceTimeout, e.opts.Portfolio.Snapshot)
			if err != nil {
				e.sourceFailed("portfolio", conversationID, err)
				return nil
			}
			res.mu.Lock()
			res.portfolio = snap
			res.mu.Unlock()
			return nil
		})
	}

	if e.opts.Signals != nil {
		symbols := MentionedSymbols(message)
		g.Go(func() error {
			sigs, err := callWithTimeout(budget, e.opts.SourceTimeout, func(ctx context.Context) ([]core.Signal, error) {
				return e.opts.Signals.RelevantSignals(ctx, symbols)
			})
			if err != nil {
				e.sourceFailed("signals", conversationID, err)
				return nil
			}
			res.mu.Lock()
			res.signals = topSignals(sigs, e.opts.MaxSignals)
			res.mu.Unlock()
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-budget.Done():
		e.opts.Logger.Debug("Enrichment budget exhausted", "conversation_id", conversationID, "budget", e.opts.Timeout)
	}

	res.mu.Lock()
	defer res.mu.Unlock()
	return format(message, res.portfolio, res.signals, extra)
}

func (e *Enricher) sourceFailed(source, conversationID string, err error) {
	e.opts.Logger.Warn("Enrichment source omitted", "source", source, "conversation_id", conversationID, "error", err.Error())
	e.opts.Metrics.ObserveEnrichmentFailure(source)
}

// callWithTimeout runs fn under timeout and returns as soon as the timeout
// fires even if fn ignores its context.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("source timed out: %w", ctx.Err())
	}
}

var tickerPattern = regexp.MustCompile(`\$?\b[A-Z][A-Z0-9]{1,9}\b`)

// MentionedSymbols returns the distinct tickers written in upper case (or
// with a $ prefix) in text, in order of appearance.
func MentionedSymbols(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, tok := range tickerPattern.FindAllString(text, -1) {
		sym, ok := intent.NormalizeSymbol(tok)
		if !ok || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

func topSignals(sigs []core.Signal, n int) []core.Signal {
	out := make([]core.Signal, len(sigs))
	copy(out, sigs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func format(message string, snap *core.PortfolioSnapshot, sigs []core.Signal, extra map[string]string) string {
	var sb strings.Builder
	sb.WriteString(message)

	if snap != nil {
		sb.WriteString("\n\n" + PortfolioHeader + "\n")
		fmt.Fprintf(&sb, "Total value: $%.2f (cash $%.2f)", snap.TotalValue, snap.Cash)
		for _, p := range snap.Positions {
			fmt.Fprintf(&sb, "\n- %s: %g @ $%.2f = $%.2f", p.Symbol, p.Quantity, p.Price, p.Value)
		}
	}

	if len(sigs) > 0 {
		sb.WriteString("\n\n" + SignalsHeader)
		for _, s := range sigs {
			fmt.Fprintf(&sb, "\n- %s %s (%.2f): %s", s.Symbol, s.Kind, s.Strength, s.Summary)
		}
	}

	if len(extra) > 0 {
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\n\n" + ContextHeader)
		for _, k := range keys {
			fmt.Fprintf(&sb, "\n- %s: %s", k, extra[k])
		}
	}
	return sb.String()
}
