package entity

import "time"

// Audit action names written by the workflow operations.
const (
	AuditDocumentCreated   = "Document.CreateDraft"
	AuditDocumentUpdated   = "Document.UpdateDraft"
	AuditDocumentSubmitted = "Document.SubmitForApproval"
	AuditDocumentReopened  = "Document.ReopenAsDraft"
	AuditReviewTaskActed   = "ReviewTask.Acted"
)

// AuditEntry is one append-only audit trail entry. Entries are written inside
// the same transaction as the domain writes they document, so a rolled-back
// operation leaves no audit trace.
type AuditEntry struct {
	ID         string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	Metadata   map[string]any
	CreatedAt  time.Time
}
