// ABOUTME: Connection state enumeration
// ABOUTME: Exactly one state per client, broadcast on every transition
package transport

// State is the client's connection lifecycle state
type State int

const (
	Closed State = iota
	Connecting
	Open
	Closing
	Reconnecting
	Offline
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	case Reconnecting:
		return "reconnecting"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}
