package session

import "github.com/mrarejimmyz/chatcore/core"

const (
	// DefaultWindow is the history length used when none is configured.
	DefaultWindow = 20
	// MinWindow leaves room for the system message plus one turn.
	MinWindow = 2
)

// NormalizeWindow clamps a configured window to a usable value.
func NormalizeWindow(window int) int {
	switch {
	case window <= 0:
		return DefaultWindow
	case window < MinWindow:
		return MinWindow
	default:
		return window
	}
}

// ApplyAppend returns history with msg appended under the conversation
// invariants: at most one system message, always first and never dropped
// (a new system message replaces the old one), and at most window messages,
// dropping the oldest non-system messages first. history is not modified.
func ApplyAppend(history []core.Message, msg core.Message, window int) []core.Message {
	window = NormalizeWindow(window)

	var system *core.Message
	turns := make([]core.Message, 0, len(history)+1)
	for _, m := range history {
		if m.IsSystem() {
			c := m.Clone()
			system = &c
			continue
		}
		turns = append(turns, m.Clone())
	}
	if msg.IsSystem() {
		c := msg.Clone()
		system = &c
	} else {
		turns = append(turns, msg.Clone())
	}

	limit := window
	if system != nil {
		limit--
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]core.Message, 0, len(turns)+1)
	if system != nil {
		out = append(out, *system)
	}
	return append(out, turns...)
}
