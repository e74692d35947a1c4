package lifecycle

// Status represents a document status in the approval lifecycle
type Status string

const (
	StatusDraft    Status = "Draft"
	StatusInReview Status = "InReview"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

var validStatuses = map[Status]bool{
	StatusDraft:    true,
	StatusInReview: true,
	StatusApproved: true,
	StatusRejected: true,
}

// Approved is terminal: no transition leaves it.
var terminalStatuses = map[Status]bool{
	StatusApproved: true,
}

// IsTerminal returns true if no further transitions are allowed from the status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is a known lifecycle status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}
