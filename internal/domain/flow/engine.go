package flow

import "sort"

// The functions in this file are pure: they operate on step snapshots loaded
// by the caller and never touch persistence. The orchestrator loads all rows
// it needs up front and passes plain data in.

// NormalizeSteps returns the steps sorted by OrderIndex. The sort is stable so
// all later lookups are independent of the input order. The input slice is not
// modified.
func NormalizeSteps(steps []StepDefinition) []StepDefinition {
	ordered := make([]StepDefinition, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})
	return ordered
}

// FindStep returns the step with the given key, or nil if the key is unknown.
func FindStep(steps []StepDefinition, stepKey string) *StepDefinition {
	for i := range steps {
		if steps[i].StepKey == stepKey {
			return &steps[i]
		}
	}
	return nil
}

// InitialAssigneesForStep returns the reviewers that receive tasks when the
// step becomes active: the first reviewer for a serial step, all reviewers for
// a parallel one.
func InitialAssigneesForStep(step StepDefinition) []string {
	if step.Mode == ModeSerial {
		if len(step.ReviewerIDs) == 0 {
			return nil
		}
		return []string{step.ReviewerIDs[0]}
	}
	assignees := make([]string, len(step.ReviewerIDs))
	copy(assignees, step.ReviewerIDs)
	return assignees
}

// NextSerialAssignee returns the first reviewer (in hand-off order) that has
// not approved yet, or "" when every reviewer has approved. Later reviewers
// never act before earlier ones approve.
func NextSerialAssignee(reviewerIDs, approvedAssigneeIDs []string) string {
	approved := make(map[string]bool, len(approvedAssigneeIDs))
	for _, id := range approvedAssigneeIDs {
		approved[id] = true
	}
	for _, id := range reviewerIDs {
		if !approved[id] {
			return id
		}
	}
	return ""
}

// IsStepComplete reports whether the step has collected every approval it
// needs. Serial steps are complete when the hand-off chain is exhausted;
// parallel steps when every reviewer appears among the approvers.
func IsStepComplete(mode Mode, reviewerIDs, approvedAssigneeIDs []string) bool {
	if mode == ModeSerial {
		return NextSerialAssignee(reviewerIDs, approvedAssigneeIDs) == ""
	}
	approved := make(map[string]bool, len(approvedAssigneeIDs))
	for _, id := range approvedAssigneeIDs {
		approved[id] = true
	}
	for _, id := range reviewerIDs {
		if !approved[id] {
			return false
		}
	}
	return true
}

// NextStepKey returns the key of the step immediately following currentStepKey
// in the ordered steps, or "" if currentStepKey is the last step (the document
// should then become Approved). The steps must already be normalized.
func NextStepKey(orderedSteps []StepDefinition, currentStepKey string) string {
	for i := range orderedSteps {
		if orderedSteps[i].StepKey == currentStepKey {
			if i+1 < len(orderedSteps) {
				return orderedSteps[i+1].StepKey
			}
			return ""
		}
	}
	return ""
}
