package lifecycle

import "fmt"

// allowedTransitions is the full allow-list of legal document status changes.
// Draft is only reached by initial creation or by reopening a Rejected document.
var allowedTransitions = map[Status][]Status{
	StatusDraft:    {StatusInReview},
	StatusInReview: {StatusApproved, StatusRejected},
	StatusRejected: {StatusDraft},
}

// CanTransition reports whether from → to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AssertTransition fails with ErrInvalidTransition unless from → to is on the
// allow-list. Every status write must pass through this check; it is defensive
// and should be unreachable when callers respect their preconditions.
func AssertTransition(from, to Status) error {
	if !from.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, from)
	}
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// PermittedNext returns the statuses reachable from the given status.
func PermittedNext(from Status) []Status {
	next := allowedTransitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}
