package core

// Response is what callers receive for every request. It is always well
// formed: backend failures surface only as provenance (Backend == "fallback").
type Response struct {
	ConversationID string        `json:"conversation_id"`
	Content        string        `json:"content"`
	Model          string        `json:"model"`
	Backend        string        `json:"backend"`
	Confidence     float64       `json:"confidence"`
	ActionExecuted bool          `json:"action_executed"`
	ActionResult   *ActionResult `json:"action_result,omitempty"`
	Proof          string        `json:"proof,omitempty"`
	Fallback       bool          `json:"fallback,omitempty"`
	Message        Message       `json:"message"`
}

// StreamChunk is one element of a simulated stream. The final chunk has
// Done set, an empty Delta and the complete Response attached.
type StreamChunk struct {
	Delta    string    `json:"delta"`
	Done     bool      `json:"done"`
	Response *Response `json:"response,omitempty"`
}
