package flow

import (
	"fmt"

	"github.com/garyjia/doc-approval/internal/domain/apperr"
)

// ValidateForSubmission fails with a ValidationFailed error unless the
// template can drive a submission: at least one step, every step with at
// least one reviewer, and order indices forming a strict total order. It runs
// at submission time and again inside every action-on-task transaction — the
// stored template may have been edited between submission and review, and
// progressing against a now-invalid template must not happen.
func ValidateForSubmission(template *Template) error {
	if template == nil {
		return apperr.ValidationFailed("flow template not found")
	}
	if len(template.Steps) == 0 {
		return apperr.ValidationFailed("flow template has no steps")
	}

	seenKeys := make(map[string]bool, len(template.Steps))
	seenOrder := make(map[int]bool, len(template.Steps))
	for _, step := range template.Steps {
		if step.StepKey == "" {
			return apperr.ValidationFailed("flow step has an empty step key")
		}
		if seenKeys[step.StepKey] {
			return apperr.ValidationFailed(fmt.Sprintf("duplicate step key %q", step.StepKey))
		}
		seenKeys[step.StepKey] = true

		if seenOrder[step.OrderIndex] {
			return apperr.ValidationFailed(fmt.Sprintf("duplicate order index %d", step.OrderIndex))
		}
		seenOrder[step.OrderIndex] = true

		if !step.Mode.IsValid() {
			return apperr.ValidationFailed(fmt.Sprintf("step %q has unknown mode %q", step.StepKey, step.Mode))
		}
		if len(step.ReviewerIDs) == 0 {
			return apperr.ValidationFailed(fmt.Sprintf("step %q has no reviewers", step.StepKey))
		}
	}
	return nil
}
