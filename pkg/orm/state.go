package orm

// State is the lifecycle controller's current phase.
//
// Transitions:
//
//	Uninitialized -> Initializing -> Ready -> TearingDown -> Uninitialized
//
// Reload cycles Ready -> TearingDown -> Uninitialized -> Initializing ->
// Ready. Failed is terminal for the process: configuration and binding
// errors are not recoverable at runtime, since a misconfigured
// model/connection/adapter graph can silently corrupt data if allowed to
// proceed.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateTearingDown
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateTearingDown:
		return "tearing_down"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
