// Package engine implements the response generator at the heart of chatcore.
//
// Every request walks a small state machine:
//
//	Received -> ActionCheck -> ActionExecuted -> DirectReturn  -> Recorded
//	                        \-> Generate      -> BackendCascade -> Recorded
//
// ActionCheck runs the intent parser. On a match the action is executed via
// the configured core.ActionExecutor, its outcome is formatted as the reply,
// and the user message plus that reply are recorded as one turn. No
// generation backend is contacted on this path.
//
// Otherwise the message is enriched with live data, the user's original text
// is appended to history, and the trimmed history (with the enriched prompt
// in place of the last user turn) is sent to the active backend. A failed or
// empty completion marks the backend failed and the next candidate is tried,
// at most once per configured backend. When every backend failed, the
// deterministic RuleResponder answers and the reply is tagged as fallback.
//
// # Guarantees
//
//   - Generate never returns an error and always returns non-empty content.
//   - Each backend call is bounded by GenerationTimeout and each action by
//     ActionTimeout, even when the collaborator ignores its context.
//   - Store failures are logged, never surfaced.
//
// # Hooks
//
// A HookManager receives every state transition plus one BackendCascade
// event per backend attempt. Hooks are observers: their errors are logged
// and the request continues.
package engine
