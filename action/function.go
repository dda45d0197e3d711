package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/internal/util"
)

// HandlerFunc is the signature wrapped by FunctionHandler.
type HandlerFunc func(ctx context.Context, action core.ActionDescriptor) (*core.ActionResult, error)

// FunctionHandler exposes a plain Go function as a Handler.
//
// Params are validated against the declared schema before fn runs. Failures
// are normalised to *Error:
//
//	validation failure -> Code VALIDATION_ERROR
//	*Error from fn     -> forwarded unchanged
//	other error        -> Code EXECUTION_ERROR
type FunctionHandler struct {
	typ         core.ActionType
	description string
	parameters  map[string]any
	fn          HandlerFunc
}

var _ Handler = (*FunctionHandler)(nil)

// NewFunctionHandler constructs a FunctionHandler from an explicit schema.
//
// Example:
//
//	h := NewFunctionHandler(
//	  core.ActionTrade,
//	  "Buy or sell a quantity of a symbol",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "side":     map[string]any{"type": "string", "enum": []any{"buy", "sell"}},
//	      "quantity": map[string]any{"type": "number", "exclusiveMinimum": 0.0},
//	    },
//	    "required": []string{"side", "quantity"},
//	  },
//	  func(ctx context.Context, a core.ActionDescriptor) (*core.ActionResult, error) {
//	    ...
//	  },
//	)
func NewFunctionHandler(typ core.ActionType, description string, parameters map[string]any, fn HandlerFunc) *FunctionHandler {
	return &FunctionHandler{
		typ:         typ,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionHandlerFromStruct derives the parameter schema from a struct
// using util.CreateSchema.
func NewFunctionHandlerFromStruct(typ core.ActionType, description string, structType any, fn HandlerFunc) *FunctionHandler {
	return NewFunctionHandler(typ, description, util.CreateSchema(structType), fn)
}

// Type implements Handler.
func (h *FunctionHandler) Type() core.ActionType { return h.typ }

// Description implements Handler.
func (h *FunctionHandler) Description() string { return h.description }

// Parameters implements Handler.
func (h *FunctionHandler) Parameters() map[string]any { return h.parameters }

// Handle validates params and invokes the wrapped function.
func (h *FunctionHandler) Handle(ctx context.Context, a core.ActionDescriptor) (*core.ActionResult, error) {
	if err := util.ValidateParameters(a.Params, h.parameters); err != nil {
		return nil, &Error{
			Action:  h.typ,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	res, err := h.fn(ctx, a)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, &Error{
			Action:  h.typ,
			Message: err.Error(),
			Code:    CodeExecution,
		}
	}
	if res == nil {
		return nil, &Error{Action: h.typ, Message: "handler returned no result", Code: CodeExecution}
	}
	return res, nil
}
