package convert

import "fmt"

// State is the conversion state of one orchestration instance
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateConverting State = "converting"
	StateFinalizing State = "finalizing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// validTransitions maps from-state to allowed to-states. Any
// non-terminal state may fail or be cancelled; the happy path moves
// strictly forward.
var validTransitions = map[State]map[State]bool{
	StateIdle: {
		StateValidating: true,
	},
	StateValidating: {
		StateConverting: true,
		StateFailed:     true,
		StateCancelled:  true,
	},
	StateConverting: {
		StateFinalizing: true,
		StateFailed:     true,
		StateCancelled:  true,
	},
	StateFinalizing: {
		StateCompleted: true,
		StateFailed:    true,
		StateCancelled: true,
	},
	// Terminal states restart through Idle
	StateCompleted: {StateIdle: true},
	StateFailed:    {StateIdle: true},
	StateCancelled: {StateIdle: true},
}

// ValidateTransition checks whether a state transition is allowed
func ValidateTransition(from, to State) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminal reports whether the state ends a conversion
func IsTerminal(s State) bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}
