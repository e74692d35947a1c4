package entity

import (
	"time"

	"github.com/garyjia/doc-approval/internal/domain/flow"
)

// TaskStatus represents the lifecycle of a single review task
type TaskStatus string

const (
	TaskPending   TaskStatus = "Pending"
	TaskApproved  TaskStatus = "Approved"
	TaskRejected  TaskStatus = "Rejected"
	TaskCancelled TaskStatus = "Cancelled"
)

// ReviewAction is a reviewer's decision on a task
type ReviewAction string

const (
	ActionApprove ReviewAction = "Approve"
	ActionReject  ReviewAction = "Reject"
)

// ReviewTask is the unit of work assigned to one reviewer for one step of one
// submitted document version. At most one Pending task may exist per
// (document, version, stepKey, assignee); the schema enforces this and task
// creation exploits it for idempotency. A task leaves Pending exactly once.
type ReviewTask struct {
	ID                string
	DocumentID        string
	DocumentVersionID string
	AssigneeID        string
	StepKey           string
	Mode              flow.Mode
	Status            TaskStatus
	ActedAt           *time.Time
	CreatedAt         time.Time
}
