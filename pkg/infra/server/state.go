package server

// State is the shutdown state of a Controller.
type State int32

const (
	// StateRunning accepts connections.
	StateRunning State = iota
	// StateDraining has stopped accepting and waits for in-flight requests.
	StateDraining
	// StateTerminated is final.
	StateTerminated
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Exit codes reported by Controller.Wait.
const (
	ExitOK     = 0
	ExitFailed = 1
)
