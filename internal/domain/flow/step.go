package flow

// Mode determines how a step's reviewers act
type Mode string

const (
	// ModeSerial hands the step to reviewers one at a time, in order
	ModeSerial Mode = "Serial"
	// ModeParallel assigns all reviewers at once; each acts independently
	ModeParallel Mode = "Parallel"
)

// IsValid returns true if the mode is a known step mode
func (m Mode) IsValid() bool {
	return m == ModeSerial || m == ModeParallel
}

// StepDefinition is the normalized view of one approval step. ReviewerIDs is
// ordered; for serial steps the order is the hand-off order.
type StepDefinition struct {
	StepKey     string
	OrderIndex  int
	Mode        Mode
	ReviewerIDs []string
}

// Template is a read-only snapshot of an approval flow template, consulted
// during submission and progression. Editing templates is out of scope here;
// the snapshot is re-validated every time progression logic runs because the
// stored template may have changed since submission.
type Template struct {
	ID    string
	Name  string
	Steps []StepDefinition
}
