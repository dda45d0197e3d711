package paper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrarejimmyz/chatcore/action"
	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/portfolio"
	"github.com/mrarejimmyz/chatcore/proof"
)

func setup() (*portfolio.Book, *proof.InMemoryStore, *action.Registry) {
	book := portfolio.New(func(o *portfolio.Options) {
		o.Cash = 1000
		o.Prices = map[string]float64{"FOO": 10, "BAR": 20}
		o.Positions = map[string]float64{"FOO": 40}
	})
	proofs := proof.NewInMemoryStore()
	reg := New(book, func(o *Options) { o.Proofs = proofs })
	return book, proofs, reg
}

func TestTrade_IssuesVerifiableReceipt(t *testing.T) {
	book, proofs, reg := setup()
	ctx := core.WithConversationID(context.Background(), "c1")

	res, err := reg.Execute(ctx, core.ActionDescriptor{
		Type:   core.ActionTrade,
		Target: "BAR",
		Params: map[string]any{"side": "buy", "quantity": 5.0},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Summary, "BAR")
	assert.Equal(t, "Bought 5 BAR at $20.00 for $100.00", res.Summary)
	require.NotEmpty(t, res.Proof)
	assert.InDelta(t, 900, book.Cash(), 1e-9)

	r, err := proof.Verify(proofs, "c1", res.Proof)
	require.NoError(t, err)
	assert.Equal(t, core.ActionTrade, r.Action.Type)
	assert.Equal(t, res.Summary, r.Summary)
}

func TestTrade_Failure(t *testing.T) {
	_, proofs, reg := setup()
	_, err := reg.Execute(context.Background(), core.ActionDescriptor{
		Type:   core.ActionTrade,
		Target: "FOO",
		Params: map[string]any{"side": "sell", "quantity": 100.0},
	})
	var ae *action.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, action.CodeExecution, ae.Code)
	assert.Contains(t, ae.Message, "insufficient position")

	ids, err := proofs.List(proof.DefaultScope)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestHedge(t *testing.T) {
	book, _, reg := setup()
	res, err := reg.Execute(context.Background(), core.ActionDescriptor{
		Type:   core.ActionHedge,
		Target: "FOO",
		Params: map[string]any{"ratio": 0.25},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Summary, "FOO")
	assert.InDelta(t, 10, book.Hedged("FOO"), 1e-9)

	res, err = reg.Execute(context.Background(), core.ActionDescriptor{
		Type:   core.ActionHedge,
		Target: core.TargetPortfolio,
		Params: map[string]any{"ratio": 0.5},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.InDelta(t, 30, book.Hedged("FOO"), 1e-9)
}

func TestSwap(t *testing.T) {
	book, _, reg := setup()
	res, err := reg.Execute(context.Background(), core.ActionDescriptor{
		Type:   core.ActionSwap,
		Target: "FOO",
		Params: map[string]any{"quantity": 20.0, "to": "BAR"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Summary, "FOO")
	assert.InDelta(t, 10, book.Position("BAR"), 1e-9)
}

func TestRebalance(t *testing.T) {
	book, _, reg := setup()
	res, err := reg.Execute(context.Background(), core.ActionDescriptor{
		Type:   core.ActionRebalance,
		Target: core.TargetPortfolio,
		Params: map[string]any{"weights": map[string]any{"FOO": 0.5, "BAR": 0.5}},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Summary, "Rebalanced")
	assert.InDelta(t, 70, book.Position("FOO"), 1e-6)
	assert.InDelta(t, 35, book.Position("BAR"), 1e-6)
}

func TestAnalysis(t *testing.T) {
	_, _, reg := setup()
	res, err := reg.Execute(context.Background(), core.ActionDescriptor{
		Type:   core.ActionAnalysis,
		Target: "FOO",
		Params: map[string]any{"scope": "symbol"},
	})
	require.NoError(t, err)
	assert.Equal(t, "FOO: 40 units at $10.00, worth $400.00 (28.6% of $1400.00)", res.Summary)

	res, err = reg.Execute(context.Background(), core.ActionDescriptor{
		Type:   core.ActionAnalysis,
		Target: core.TargetPortfolio,
		Params: map[string]any{"scope": "risk"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Summary, "Largest exposure is FOO")
}

func TestValidationRejected(t *testing.T) {
	_, _, reg := setup()
	_, err := reg.Execute(context.Background(), core.ActionDescriptor{
		Type:   core.ActionAnalysis,
		Target: "FOO",
		Params: map[string]any{"scope": "galaxy"},
	})
	var ae *action.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, action.CodeValidation, ae.Code)
}
