// Package portfolio provides an in-memory paper portfolio. It serves as the
// core.PortfolioSource for enrichment, as the data checker for analysis
// intents, and as the book that paper-trading actions mutate.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mrarejimmyz/chatcore/core"
)

var (
	// ErrUnknownSymbol is returned when no price is known for a symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrInsufficientCash is returned when a buy exceeds available cash.
	ErrInsufficientCash = errors.New("insufficient cash")
	// ErrInsufficientPosition is returned when selling or hedging more than is held.
	ErrInsufficientPosition = errors.New("insufficient position")
)

// Options seeds a Book.
type Options struct {
	Cash      float64
	Prices    map[string]float64 // symbol -> last price
	Positions map[string]float64 // symbol -> quantity
}

// Fill describes one executed paper trade.
type Fill struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Notional float64 `json:"notional"`
}

// Book is a thread-safe paper portfolio.
type Book struct {
	mu        sync.RWMutex
	cash      float64
	prices    map[string]float64
	positions map[string]float64
	hedges    map[string]float64
}

var _ core.PortfolioSource = (*Book)(nil)

// New creates a Book.
func New(optFns ...func(o *Options)) *Book {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	b := &Book{
		cash:      opts.Cash,
		prices:    make(map[string]float64),
		positions: make(map[string]float64),
		hedges:    make(map[string]float64),
	}
	for s, p := range opts.Prices {
		b.prices[strings.ToUpper(s)] = p
	}
	for s, q := range opts.Positions {
		if q > 0 {
			b.positions[strings.ToUpper(s)] = q
		}
	}
	return b
}

// Snapshot implements core.PortfolioSource.
func (b *Book) Snapshot(ctx context.Context) (*core.PortfolioSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked(), nil
}

func (b *Book) snapshotLocked() *core.PortfolioSnapshot {
	snap := &core.PortfolioSnapshot{Cash: b.cash, AsOf: time.Now().UTC(), Positions: []core.Position{}}
	for _, sym := range b.symbolsLocked() {
		qty := b.positions[sym]
		price := b.prices[sym]
		value := qty * price
		snap.Positions = append(snap.Positions, core.Position{Symbol: sym, Quantity: qty, Price: price, Value: value})
		snap.TotalValue += value
	}
	snap.TotalValue += b.cash
	return snap
}

func (b *Book) symbolsLocked() []string {
	syms := make([]string, 0, len(b.positions))
	for s := range b.positions {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// HasData reports whether real data backs an analysis target: any held
// position for core.TargetPortfolio, or a held or priced symbol.
func (b *Book) HasData(target string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if strings.EqualFold(target, core.TargetPortfolio) {
		return len(b.positions) > 0
	}
	sym := strings.ToUpper(target)
	_, held := b.positions[sym]
	_, priced := b.prices[sym]
	return held || priced
}

// SetPrice records the last price for a symbol.
func (b *Book) SetPrice(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[strings.ToUpper(symbol)] = price
}

// Price returns the last known price.
func (b *Book) Price(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[strings.ToUpper(symbol)]
	return p, ok
}

// Position returns the held quantity.
func (b *Book) Position(symbol string) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.positions[strings.ToUpper(symbol)]
}

// Hedged returns the hedged quantity for a symbol.
func (b *Book) Hedged(symbol string) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hedges[strings.ToUpper(symbol)]
}

// Cash returns the available cash.
func (b *Book) Cash() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cash
}

// Buy purchases qty of symbol at its last price.
func (b *Book) Buy(symbol string, qty float64) (Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buyLocked(strings.ToUpper(symbol), qty)
}

// Sell sells qty of symbol at its last price.
func (b *Book) Sell(symbol string, qty float64) (Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sellLocked(strings.ToUpper(symbol), qty)
}

func (b *Book) buyLocked(sym string, qty float64) (Fill, error) {
	if qty <= 0 {
		return Fill{}, fmt.Errorf("quantity must be positive, got %g", qty)
	}
	price, ok := b.prices[sym]
	if !ok {
		return Fill{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	notional := qty * price
	if notional > b.cash+1e-9 {
		return Fill{}, fmt.Errorf("%w: need $%.2f, have $%.2f", ErrInsufficientCash, notional, b.cash)
	}
	b.cash -= notional
	b.positions[sym] += qty
	return Fill{Symbol: sym, Side: "buy", Quantity: qty, Price: price, Notional: notional}, nil
}

func (b *Book) sellLocked(sym string, qty float64) (Fill, error) {
	if qty <= 0 {
		return Fill{}, fmt.Errorf("quantity must be positive, got %g", qty)
	}
	price, ok := b.prices[sym]
	if !ok {
		return Fill{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	held := b.positions[sym]
	if qty > held+1e-9 {
		return Fill{}, fmt.Errorf("%w: hold %g %s, asked to sell %g", ErrInsufficientPosition, held, sym, qty)
	}
	notional := qty * price
	b.cash += notional
	if remaining := held - qty; remaining > 1e-9 {
		b.positions[sym] = remaining
		if b.hedges[sym] > remaining {
			b.hedges[sym] = remaining
		}
	} else {
		delete(b.positions, sym)
		delete(b.hedges, sym)
	}
	return Fill{Symbol: sym, Side: "sell", Quantity: qty, Price: price, Notional: notional}, nil
}

// Hedge marks qty of a held symbol as hedged. The total hedged quantity
// never exceeds the position.
func (b *Book) Hedge(symbol string, qty float64) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sym := strings.ToUpper(symbol)
	held := b.positions[sym]
	if held <= 0 {
		return 0, fmt.Errorf("%w: no %s position to hedge", ErrInsufficientPosition, sym)
	}
	if qty <= 0 || b.hedges[sym]+qty > held+1e-9 {
		return 0, fmt.Errorf("%w: hold %g %s, %g already hedged", ErrInsufficientPosition, held, sym, b.hedges[sym])
	}
	b.hedges[sym] += qty
	return b.hedges[sym], nil
}

// Swap sells qty of from and buys the same notional of to.
func (b *Book) Swap(from, to string, qty float64) (Fill, Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	toPrice, ok := b.prices[to]
	if !ok || toPrice <= 0 {
		return Fill{}, Fill{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, to)
	}
	sold, err := b.sellLocked(from, qty)
	if err != nil {
		return Fill{}, Fill{}, err
	}
	bought, err := b.buyLocked(to, sold.Notional/toPrice)
	if err != nil {
		return Fill{}, Fill{}, err
	}
	return sold, bought, nil
}

// Rebalance trades toward the target weights (symbol -> fraction of total
// value). Held symbols missing from weights are sold. With nil weights the
// current positions are equal-weighted. Sells run before buys.
func (b *Book) Rebalance(weights map[string]float64) ([]Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(weights) == 0 {
		if len(b.positions) == 0 {
			return nil, fmt.Errorf("%w: nothing to rebalance", ErrInsufficientPosition)
		}
		weights = make(map[string]float64, len(b.positions))
		for s := range b.positions {
			weights[s] = 1 / float64(len(b.positions))
		}
	}
	targets := make(map[string]float64, len(weights))
	for s, w := range weights {
		sym := strings.ToUpper(s)
		if p, ok := b.prices[sym]; !ok || p <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
		}
		targets[sym] = w
	}
	for s := range b.positions {
		if _, ok := targets[s]; !ok {
			targets[s] = 0
		}
	}

	total := b.snapshotLocked().TotalValue
	syms := make([]string, 0, len(targets))
	for s := range targets {
		syms = append(syms, s)
	}
	sort.Strings(syms)

	var sells, buys []Fill
	deltas := make(map[string]float64, len(syms))
	for _, s := range syms {
		price := b.prices[s]
		if price <= 0 {
			return nil, fmt.Errorf("%w: no price for held %s", ErrUnknownSymbol, s)
		}
		deltas[s] = targets[s]*total/price - b.positions[s]
	}
	for _, s := range syms {
		if d := deltas[s]; d < -1e-9 {
			f, err := b.sellLocked(s, -d)
			if err != nil {
				return sells, err
			}
			sells = append(sells, f)
		}
	}
	for _, s := range syms {
		if d := deltas[s]; d > 1e-9 {
			f, err := b.buyLocked(s, d)
			if err != nil {
				return append(sells, buys...), err
			}
			buys = append(buys, f)
		}
	}
	return append(sells, buys...), nil
}
