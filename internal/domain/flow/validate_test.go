package flow

import (
	"testing"

	"github.com/garyjia/doc-approval/internal/domain/apperr"
)

func validTemplate() *Template {
	return &Template{
		ID:   "tpl-1",
		Name: "Two step review",
		Steps: []StepDefinition{
			{StepKey: "review", OrderIndex: 1, Mode: ModeSerial, ReviewerIDs: []string{"r1", "r2"}},
			{StepKey: "signoff", OrderIndex: 2, Mode: ModeParallel, ReviewerIDs: []string{"r3"}},
		},
	}
}

func TestValidateForSubmission(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Template)
		wantErr bool
	}{
		{
			name:   "valid template",
			mutate: func(*Template) {},
		},
		{
			name:    "no steps",
			mutate:  func(tpl *Template) { tpl.Steps = nil },
			wantErr: true,
		},
		{
			name:    "step without reviewers",
			mutate:  func(tpl *Template) { tpl.Steps[1].ReviewerIDs = nil },
			wantErr: true,
		},
		{
			name:    "duplicate order index",
			mutate:  func(tpl *Template) { tpl.Steps[1].OrderIndex = tpl.Steps[0].OrderIndex },
			wantErr: true,
		},
		{
			name:    "duplicate step key",
			mutate:  func(tpl *Template) { tpl.Steps[1].StepKey = tpl.Steps[0].StepKey },
			wantErr: true,
		},
		{
			name:    "empty step key",
			mutate:  func(tpl *Template) { tpl.Steps[0].StepKey = "" },
			wantErr: true,
		},
		{
			name:    "unknown mode",
			mutate:  func(tpl *Template) { tpl.Steps[0].Mode = Mode("Quorum") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := validTemplate()
			tt.mutate(tpl)

			err := ValidateForSubmission(tpl)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("ValidateForSubmission() = %v, want nil", err)
				}
				return
			}
			if !apperr.IsKind(err, apperr.KindValidationFailed) {
				t.Errorf("ValidateForSubmission() = %v, want ValidationFailed", err)
			}
		})
	}
}

func TestValidateForSubmission_NilTemplate(t *testing.T) {
	if err := ValidateForSubmission(nil); !apperr.IsKind(err, apperr.KindValidationFailed) {
		t.Errorf("ValidateForSubmission(nil) = %v, want ValidationFailed", err)
	}
}
