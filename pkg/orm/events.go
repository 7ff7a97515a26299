package orm

// EventType identifies a lifecycle notification.
type EventType string

const (
	// EventInitialized fires when initialize completes and collections
	// are live.
	EventInitialized EventType = "initialized"

	// EventTornDown fires when teardown completes, successfully or not.
	EventTornDown EventType = "torn_down"

	// EventReloaded fires when a reload completes successfully.
	EventReloaded EventType = "reloaded"

	// EventStopRequested fires when a reload's re-initialize fails and
	// the host should stop the process.
	EventStopRequested EventType = "stop_requested"
)

// Event is a lifecycle notification delivered on the controller's event
// channel. Err is set for EventTornDown with a teardown failure and for
// EventStopRequested.
type Event struct {
	Type EventType
	Err  error
}

// emit delivers an event without blocking. The channel is buffered; a
// host that does not drain it loses older notifications rather than
// stalling a transition.
func (o *ORM) emit(event Event) {
	select {
	case o.events <- event:
	default:
	}
}
