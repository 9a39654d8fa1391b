package pipeline

// State is the session's position in the utterance lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateResponding State = "responding"
	StateError      State = "error"
)

// Event drives state transitions.
type Event string

const (
	EventChunk      Event = "chunk"       // audio chunk arrived
	EventTrigger    Event = "trigger"     // segmenter fired and the slot was acquired
	EventComplete   Event = "complete"    // pipeline run finished successfully
	EventFail       Event = "fail"        // pipeline run failed or timed out
	EventDispatched Event = "dispatched"  // response delivered (or delivery failed non-fatally)
	EventReset      Event = "reset"       // explicit reset or disconnect
)

// Next is the total transition function: every state has a defined successor
// for every event. Events that do not apply in a state leave it unchanged,
// except reset, which always returns to idle.
func Next(s State, ev Event) State {
	if ev == EventReset {
		return StateIdle
	}
	switch s {
	case StateIdle:
		if ev == EventChunk {
			return StateListening
		}
	case StateListening:
		if ev == EventTrigger {
			return StateProcessing
		}
	case StateProcessing:
		switch ev {
		case EventComplete:
			return StateResponding
		case EventFail:
			return StateError
		}
	case StateResponding:
		if ev == EventDispatched {
			return StateIdle
		}
	case StateError:
		// only reset leaves the error state
	}
	return s
}
