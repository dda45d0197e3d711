// Package action implements the executor side of structured intents: typed
// handlers with schema validated parameters, consistent error codes and a
// registry that routes each parsed action to its handler.
package action

import (
	"context"
	"fmt"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/internal/util"
)

// Error codes carried by *Error.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeExecution   = "EXECUTION_ERROR"
	CodeUnsupported = "UNSUPPORTED_ACTION"
)

// Handler performs one action type.
//
// Handlers must be safe for concurrent use; the registry calls them from
// whichever goroutine is generating the response.
type Handler interface {
	// Type returns the action type this handler serves.
	Type() core.ActionType

	// Description returns a short human readable description.
	Description() string

	// Parameters returns a JSON schema describing accepted action params.
	Parameters() map[string]any

	// Handle executes the action. Params have already been validated.
	Handle(ctx context.Context, action core.ActionDescriptor) (*core.ActionResult, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error represents errors that occur during action execution.
type Error struct {
	Action  core.ActionType `json:"action"`            // Action type that failed
	Message string          `json:"message"`           // Error message
	Code    string          `json:"code"`              // Error code for categorization
	Details any             `json:"details,omitempty"` // Additional error details
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("action error [%s] in %s: %s", e.Code, e.Action, e.Message)
	}
	return fmt.Sprintf("action error in %s: %s", e.Action, e.Message)
}

// NewError creates a new Error with the specified details.
func NewError(action core.ActionType, message, code string) *Error {
	return &Error{
		Action:  action,
		Message: message,
		Code:    code,
	}
}
