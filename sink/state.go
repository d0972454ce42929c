package sink

import "github.com/stella-systems/stellanow-sdk-go/metric"

// State is the connection state of a Sink
type State int32

// Connection states. Connecting covers authentication as well.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateStopped
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func (s State) metricValue() int {
	switch s {
	case StateConnecting:
		return metric.StateConnecting
	case StateConnected:
		return metric.StateConnected
	case StateStopped:
		return metric.StateStopped
	default:
		return metric.StateDisconnected
	}
}
