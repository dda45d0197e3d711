package core

import (
	"context"
	"time"
)

// Position is one holding inside a portfolio snapshot.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Value    float64 `json:"value"`
}

// PortfolioSnapshot is a read-only view of the caller's holdings.
type PortfolioSnapshot struct {
	TotalValue float64    `json:"total_value"`
	Cash       float64    `json:"cash"`
	Positions  []Position `json:"positions"`
	AsOf       time.Time  `json:"as_of"`
}

// Signal is an auxiliary market signal (sentiment, momentum, news score...).
type Signal struct {
	Symbol   string    `json:"symbol"`
	Kind     string    `json:"kind"`
	Summary  string    `json:"summary"`
	Strength float64   `json:"strength"` // 0..1, higher is more relevant
	AsOf     time.Time `json:"as_of"`
}

// PortfolioSource provides best-effort portfolio snapshots.
type PortfolioSource interface {
	Snapshot(ctx context.Context) (*PortfolioSnapshot, error)
}

// SignalSource provides best-effort signals relevant to a set of symbols. An
// empty symbol list asks the source for its most relevant signals overall.
type SignalSource interface {
	RelevantSignals(ctx context.Context, symbols []string) ([]Signal, error)
}
