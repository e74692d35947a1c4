package entity

import (
	"time"

	"github.com/garyjia/doc-approval/internal/domain/lifecycle"
)

// Document is the root of the approval lifecycle. Its status is only ever
// changed through the lifecycle state machine inside an orchestrator
// transaction.
type Document struct {
	ID               string
	Title            string
	OwnerID          string
	Status           lifecycle.Status
	CurrentVersionID string
	FlowTemplateID   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DocumentVersion is an immutable content snapshot. VersionNo starts at 1 and
// strictly increases per document.
type DocumentVersion struct {
	ID         string
	DocumentID string
	VersionNo  int
	Content    string
	CreatedAt  time.Time
}
