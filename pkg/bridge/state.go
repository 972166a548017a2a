package bridge

// State is the connection state of a Bridge.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// StateChange describes one transition. Handlers see each transition once,
// in the order they happened.
type StateChange struct {
	Old State
	New State
}
