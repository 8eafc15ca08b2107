package cycle

import "fmt"

var transitions = map[State][]State{
	StateOpenPending: {StateActive},
	StateActive:      {StateClosed},
}

// ValidateTransition checks a state change against the lifecycle
// OPEN_PENDING -> ACTIVE -> CLOSED. Closing is irreversible.
func ValidateTransition(current, target State) error {
	for _, next := range transitions[current] {
		if next == target {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}
