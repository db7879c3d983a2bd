package project

// Next returns the single state a project may move to from s.
func (s State) Next() (State, bool) {
	switch s {
	case StatePendingApproval:
		return StatePendingPayment, true
	case StatePendingPayment:
		return StateHistorical, true
	}
	return "", false
}

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	switch s {
	case StatePendingApproval, StatePendingPayment, StateHistorical:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal lifecycle step.
// Transitions never skip a stage and never reverse.
func CanTransition(from, to State) bool {
	next, ok := from.Next()
	return ok && next == to
}

// ValidateTransition checks that op may move a project from current to to.
func ValidateTransition(op string, current, to State) error {
	if !CanTransition(current, to) {
		expected := StatePendingApproval
		if to == StateHistorical {
			expected = StatePendingPayment
		}
		return &InvalidStateError{Op: op, Current: current, Expected: expected}
	}
	return nil
}
