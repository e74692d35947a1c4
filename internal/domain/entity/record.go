package entity

import "time"

// RecordAction is the recorded outcome of a decision
type RecordAction string

const (
	RecordApproved RecordAction = "Approved"
	RecordRejected RecordAction = "Rejected"
)

// ApprovalRecord is the append-only audit of one reviewer decision. A task has
// at most one record; reason is required for rejections.
type ApprovalRecord struct {
	ID                string
	DocumentID        string
	DocumentVersionID string
	ReviewTaskID      string
	ActorID           string
	Action            RecordAction
	Reason            string
	CreatedAt         time.Time
}
