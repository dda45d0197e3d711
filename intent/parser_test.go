package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrarejimmyz/chatcore/core"
)

func allData(string) bool { return true }

func TestParser_Parse(t *testing.T) {
	p := New(func(o *Options) { o.DataChecker = DataCheckerFunc(allData) })

	tests := []struct {
		name   string
		text   string
		typ    core.ActionType
		target string
		params map[string]any
	}{
		{"buy", "buy 10 FOO", core.ActionTrade, "FOO", map[string]any{"side": "buy", "quantity": 10.0}},
		{"sell fractional", "Please sell 2.5 shares of $aapl now", core.ActionTrade, "AAPL", map[string]any{"side": "sell", "quantity": 2.5}},
		{"purchase", "purchase 3 units of btc", core.ActionTrade, "BTC", map[string]any{"side": "buy", "quantity": 3.0}},
		{"hedge percent", "hedge 30% of my TSLA position", core.ActionHedge, "TSLA", map[string]any{"ratio": 0.3}},
		{"hedge quantity", "hedge 5 NVDA", core.ActionHedge, "NVDA", map[string]any{"quantity": 5.0}},
		{"hedge default", "hedge my portfolio", core.ActionHedge, core.TargetPortfolio, map[string]any{"ratio": 0.5}},
		{"swap", "swap 2 ETH for USDC", core.ActionSwap, "ETH", map[string]any{"quantity": 2.0, "to": "USDC"}},
		{"convert", "convert 100 usdc into sol", core.ActionSwap, "USDC", map[string]any{"quantity": 100.0, "to": "SOL"}},
		{"rebalance plain", "rebalance my portfolio", core.ActionRebalance, core.TargetPortfolio, map[string]any{}},
		{"rebalance weights", "rebalance to 60% FOO, 40% BAR", core.ActionRebalance, core.TargetPortfolio,
			map[string]any{"weights": map[string]any{"FOO": 0.6, "BAR": 0.4}}},
		{"analysis portfolio", "analyze my portfolio", core.ActionAnalysis, core.TargetPortfolio, map[string]any{"scope": "portfolio"}},
		{"analysis risk", "assess risk", core.ActionAnalysis, core.TargetPortfolio, map[string]any{"scope": "risk"}},
		{"analysis symbol", "review MSFT", core.ActionAnalysis, "MSFT", map[string]any{"scope": "symbol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Parse(tt.text)
			require.NotNil(t, d)
			assert.Equal(t, tt.typ, d.Type)
			assert.Equal(t, tt.target, d.Target)
			assert.Equal(t, tt.params, d.Params)
			assert.Greater(t, d.Confidence, 0.0)
			assert.NotEmpty(t, d.Source)
		})
	}
}

func TestParser_NoMatch(t *testing.T) {
	p := New(func(o *Options) { o.DataChecker = DataCheckerFunc(allData) })
	for _, text := range []string{
		"",
		"hi",
		"what is a good stock?",
		"buy 0 FOO",
		"buy 10 MY",
		"buy some FOO",
		"swap 2 ETH for ETH",
		"rebalance to 80% FOO, 40% BAR",
		"rebalance my portfolio to be safer",
		"should I buy 10 FOO?",
		"hedge my exposure",
		"don't sell 10 FOO",
		"do not buy 10 FOO",
		"never swap 2 ETH for USDC",
		"please do not rebalance my portfolio",
		"I'm not sure I want to rebalance",
		"can I buy 10 FOO?",
		"Could I hedge 30% of TSLA?",
		"I buy 10 FOO?",
		"rebalance my portfolio?",
		"what happens if I sell 10 FOO",
		"explain what rebalance means",
		"my friend said to buy 10 FOO",
	} {
		assert.Nil(t, p.Parse(text), text)
	}
}

func TestParser_FirstMatchWins(t *testing.T) {
	p := New()
	d := p.Parse("hedge FOO then buy 10 BAR")
	require.NotNil(t, d)
	assert.Equal(t, core.ActionTrade, d.Type, "trade is ranked before hedge")
	assert.Equal(t, "BAR", d.Target)

	d = p.Parse("hedge FOO. sell 2 BAR")
	require.NotNil(t, d)
	assert.Equal(t, core.ActionTrade, d.Type)
	assert.Equal(t, "sell", d.Params["side"])
}

func TestParser_RequestPhrasing(t *testing.T) {
	p := New()
	for _, text := range []string{
		"buy 10 FOO",
		"Please buy 10 FOO.",
		"ok, now buy 10 FOO",
		"can you buy 10 FOO",
		"I want to buy 10 FOO",
		"I'd like to buy 10 FOO!",
		"go ahead and buy 10 FOO",
		"thanks. buy 10 FOO",
	} {
		d := p.Parse(text)
		require.NotNil(t, d, text)
		assert.Equal(t, core.ActionTrade, d.Type, text)
		assert.Equal(t, "FOO", d.Target, text)
	}

	d := p.Parse("I want to rebalance my portfolio")
	require.NotNil(t, d)
	assert.Equal(t, core.ActionRebalance, d.Type)
}

func TestParser_QuestionsKeepAnalysis(t *testing.T) {
	p := New(func(o *Options) { o.DataChecker = DataCheckerFunc(allData) })
	d := p.Parse("analyze FOO?")
	require.NotNil(t, d)
	assert.Equal(t, core.ActionAnalysis, d.Type)

	assert.Nil(t, p.Parse("buy 10 FOO?"))
	assert.Nil(t, p.Parse("can you analyze FOO?"))
}

func TestParser_DemoteAnalysis(t *testing.T) {
	assert.Nil(t, New().Parse("analyze portfolio"), "no checker means no data")

	held := DataCheckerFunc(func(target string) bool { return target == "FOO" })
	p := New(func(o *Options) { o.DataChecker = held })
	assert.Nil(t, p.Parse("analyze portfolio"))
	d := p.Parse("analyze FOO")
	require.NotNil(t, d)
	assert.Equal(t, core.ActionAnalysis, d.Type)

	assert.NotNil(t, p.Parse("buy 10 FOO"), "demotion only applies to analysis")
}

func TestParser_CustomRules(t *testing.T) {
	p := New(func(o *Options) { o.Rules = DefaultRules()[2:3] })
	assert.Nil(t, p.Parse("buy 10 FOO"))
	assert.NotNil(t, p.Parse("swap 1 BTC to ETH"))
}

func TestNormalizeSymbol(t *testing.T) {
	sym, ok := NormalizeSymbol(" $foo ")
	assert.True(t, ok)
	assert.Equal(t, "FOO", sym)

	for _, bad := range []string{"F", "THE", "1ABC", "TOOLONGSYMBOL", "portfolio"} {
		_, ok := NormalizeSymbol(bad)
		assert.False(t, ok, bad)
	}
}
