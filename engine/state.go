package engine

// State is a step of the per-request state machine:
//
//	Received -> ActionCheck -> ActionExecuted -> DirectReturn  -> Recorded
//	                        \-> Generate      -> BackendCascade -> Recorded
type State int

const (
	StateReceived State = iota
	StateActionCheck
	StateActionExecuted
	StateGenerate
	StateDirectReturn
	StateBackendCascade
	StateRecorded
)

var stateNames = [...]string{
	StateReceived:       "received",
	StateActionCheck:    "action_check",
	StateActionExecuted: "action_executed",
	StateGenerate:       "generate",
	StateDirectReturn:   "direct_return",
	StateBackendCascade: "backend_cascade",
	StateRecorded:       "recorded",
}

// String returns the snake_case name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
