package action

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrarejimmyz/chatcore/core"
)

type tradeArgs struct {
	Side     string  `json:"side" enum:"buy|sell"`
	Quantity float64 `json:"quantity" exclusiveMinimum:"0"`
}

func okHandler(t core.ActionType) *FunctionHandler {
	return NewFunctionHandlerFromStruct(t, "test", tradeArgs{}, func(_ context.Context, a core.ActionDescriptor) (*core.ActionResult, error) {
		return &core.ActionResult{Success: true, Summary: "done " + a.Target}, nil
	})
}

func TestFunctionHandler_Success(t *testing.T) {
	h := okHandler(core.ActionTrade)
	assert.Equal(t, core.ActionTrade, h.Type())
	assert.Equal(t, "test", h.Description())
	assert.Contains(t, h.Parameters()["properties"], "side")

	res, err := h.Handle(context.Background(), core.ActionDescriptor{
		Type:   core.ActionTrade,
		Target: "FOO",
		Params: map[string]any{"side": "buy", "quantity": 2.0},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "done FOO", res.Summary)
}

func TestFunctionHandler_Validation(t *testing.T) {
	h := okHandler(core.ActionTrade)
	cases := []map[string]any{
		{"quantity": 1.0},
		{"side": "hold", "quantity": 1.0},
		{"side": "buy", "quantity": 0.0},
		{"side": "buy", "quantity": "ten"},
	}
	for _, params := range cases {
		_, err := h.Handle(context.Background(), core.ActionDescriptor{Type: core.ActionTrade, Params: params})
		var ae *Error
		require.ErrorAs(t, err, &ae, "params %v", params)
		assert.Equal(t, CodeValidation, ae.Code)
		var ve *ValidationError
		assert.ErrorAs(t, ae.Details.(error), &ve)
	}
}

func TestFunctionHandler_ErrorWrapping(t *testing.T) {
	plain := NewFunctionHandler(core.ActionHedge, "", nil, func(context.Context, core.ActionDescriptor) (*core.ActionResult, error) {
		return nil, errors.New("boom")
	})
	_, err := plain.Handle(context.Background(), core.ActionDescriptor{Type: core.ActionHedge})
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeExecution, ae.Code)
	assert.Equal(t, "action error [EXECUTION_ERROR] in hedge: boom", err.Error())

	custom := NewFunctionHandler(core.ActionHedge, "", nil, func(context.Context, core.ActionDescriptor) (*core.ActionResult, error) {
		return nil, NewError(core.ActionHedge, "market closed", "MARKET_CLOSED")
	})
	_, err = custom.Handle(context.Background(), core.ActionDescriptor{Type: core.ActionHedge})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "MARKET_CLOSED", ae.Code)

	empty := NewFunctionHandler(core.ActionHedge, "", nil, func(context.Context, core.ActionDescriptor) (*core.ActionResult, error) {
		return nil, nil
	})
	_, err = empty.Handle(context.Background(), core.ActionDescriptor{Type: core.ActionHedge})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeExecution, ae.Code)
}

func TestError_NoCode(t *testing.T) {
	err := &Error{Action: core.ActionSwap, Message: "x"}
	assert.Equal(t, "action error in swap: x", err.Error())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry([]Handler{okHandler(core.ActionTrade)})
	require.NoError(t, r.Register(okHandler(core.ActionSwap)))
	assert.Error(t, r.Register(okHandler(core.ActionSwap)))
	assert.Equal(t, []core.ActionType{core.ActionSwap, core.ActionTrade}, r.Types())

	res, err := r.Execute(context.Background(), core.ActionDescriptor{
		Type:   core.ActionTrade,
		Target: "FOO",
		Params: map[string]any{"side": "sell", "quantity": 1},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = r.Execute(context.Background(), core.ActionDescriptor{Type: core.ActionRebalance})
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeUnsupported, ae.Code)
}

func TestRegistry_ParamsIsolated(t *testing.T) {
	h := NewFunctionHandler(core.ActionTrade, "", nil, func(_ context.Context, a core.ActionDescriptor) (*core.ActionResult, error) {
		a.Params["mutated"] = true
		return &core.ActionResult{Success: true}, nil
	})
	r := NewRegistry([]Handler{h})
	params := map[string]any{"side": "buy"}
	_, err := r.Execute(context.Background(), core.ActionDescriptor{Type: core.ActionTrade, Params: params})
	require.NoError(t, err)
	assert.NotContains(t, params, "mutated")
}
