package workflows

// StateMachine enforces status transitions over a string state space.
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewSignatureStateMachine returns the transition rules for signature
// records. Revoked and expired are terminal; there is no way back from
// revoked, a new signature must be created instead.
func NewSignatureStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"pending": {"signed"},
			"signed":  {"revoked", "expired"},
			"revoked": {},
			"expired": {},
		},
	}
}

// CanTransition checks if a status transition is allowed.
func (sm *StateMachine) CanTransition(from, to string) bool {
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

// GetAllowedTransitions returns the allowed next statuses for a given status.
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
