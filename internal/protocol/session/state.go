package session

import "github.com/danmuck/matrixd/internal/protocol"

// State is the per-connection protocol phase.
type State int

const (
	StateNoData State = iota
	StateConfigured
	StateDataLoaded
	StateComputed
)

func (s State) String() string {
	switch s {
	case StateNoData:
		return "no_data"
	case StateConfigured:
		return "configured"
	case StateDataLoaded:
		return "data_loaded"
	case StateComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// WireStatus maps a state onto the STATUS reply byte.
func (s State) WireStatus() protocol.Status {
	switch s {
	case StateConfigured, StateDataLoaded:
		return protocol.StatusPending
	case StateComputed:
		return protocol.StatusComputed
	default:
		return protocol.StatusNoData
	}
}

func (s State) hasMatrix() bool {
	return s == StateDataLoaded || s == StateComputed
}
