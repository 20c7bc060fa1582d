package workflows

// StateMachine enforces status transitions over a fixed transition table.
type StateMachine[S comparable] struct {
	allowedTransitions map[S][]S
}

// New creates a state machine from a map of allowed transitions.
func New[S comparable](allowed map[S][]S) *StateMachine[S] {
	return &StateMachine[S]{allowedTransitions: allowed}
}

// CanTransition checks if a status transition is allowed.
func (sm *StateMachine[S]) CanTransition(from, to S) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the allowed next statuses for a given status.
func (sm *StateMachine[S]) AllowedTransitions(from S) []S {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return nil
	}
	return allowed
}

// Terminal reports whether a status has no outgoing transitions.
func (sm *StateMachine[S]) Terminal(state S) bool {
	return len(sm.allowedTransitions[state]) == 0
}
