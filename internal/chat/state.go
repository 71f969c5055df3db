package chat

// State - server lifecycle state.
type State int

const (
	// StateStopped - server is not serving, initial and terminal state.
	StateStopped State = iota
	// StateStarting - server is binding its listener.
	StateStarting
	// StateRunning - accept and dispatch loops are active.
	StateRunning
	// StateStopping - server is releasing its resources.
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown state"
	}
}
