// Package chat contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package chat

// State is the lifecycle position of a session.
// Transitions only move forward and Terminated is absorbing.
type State int32

const (
	Handshaking State = iota
	Active
	Terminated
)

func (s State) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case Active:
		return "active"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next respects the lifecycle order.
func (s State) CanTransition(next State) bool {
	return next > s
}

// Member is a point-in-time view of one registered session.
type Member struct {
	ID       string
	Name     string
	ColorTag string
	Ping     int64
	Alive    bool
}
