package port

import (
	"context"
	"time"

	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/domain/flow"
	"github.com/garyjia/doc-approval/internal/domain/lifecycle"
)

// Repositories return (nil, nil) for lookups that find nothing; the service
// layer decides whether absence is NotFound, Conflict, or an internal fault.
// All methods honor a transaction carried in the context (see TransactionManager).

// DocumentRepository defines persistence operations for Document
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Document, error)
	ListByIDs(ctx context.Context, ids []string) ([]*entity.Document, error)
	ListAll(ctx context.Context) ([]*entity.Document, error)
	UpdateTitle(ctx context.Context, id, title string) error
	UpdateStatus(ctx context.Context, id string, status lifecycle.Status) error
	SetCurrentVersion(ctx context.Context, id, versionID string) error

	// SetSubmitted records everything a submission changes on the document
	// row: status, current version, and the bound flow template.
	SetSubmitted(ctx context.Context, id string, status lifecycle.Status, versionID, templateID string) error

	// SetReopened moves the document back to Draft pointing at the fresh
	// version copy.
	SetReopened(ctx context.Context, id string, status lifecycle.Status, versionID string) error
}

// VersionRepository defines persistence operations for DocumentVersion
type VersionRepository interface {
	Create(ctx context.Context, version *entity.DocumentVersion) error
	GetByID(ctx context.Context, id string) (*entity.DocumentVersion, error)
	MaxVersionNo(ctx context.Context, documentID string) (int, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
	UpdateContent(ctx context.Context, id, content string) error
}

// TemplateRepository defines read access to approval flow templates. Template
// authoring happens outside this service; rows are seeded by migrations or
// fixtures and read as immutable snapshots.
type TemplateRepository interface {
	Create(ctx context.Context, template *flow.Template) error
	GetByID(ctx context.Context, id string) (*flow.Template, error)
	List(ctx context.Context) ([]*flow.Template, error)
}

// TaskRepository defines persistence operations for ReviewTask
type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*entity.ReviewTask, error)
	ListByStep(ctx context.Context, documentID, versionID, stepKey string) ([]*entity.ReviewTask, error)
	ListByDocument(ctx context.Context, documentID string) ([]*entity.ReviewTask, error)
	ListPendingByAssignee(ctx context.Context, assigneeID string) ([]*entity.ReviewTask, error)
	ListDocumentIDsByAssignee(ctx context.Context, assigneeID string) ([]string, error)

	// CreateIfAbsent inserts the task, treating a duplicate-key violation on
	// the pending-task uniqueness constraint as a no-op. It reports whether a
	// row was actually inserted. Unrelated persistence errors propagate.
	CreateIfAbsent(ctx context.Context, task *entity.ReviewTask) (bool, error)

	// MarkActed flips the task from Pending to the given terminal status only
	// if it is still Pending and still assigned to assigneeID, returning the
	// affected-row count. A count other than one means the caller lost the
	// race to act on the task.
	MarkActed(ctx context.Context, taskID, assigneeID string, to entity.TaskStatus, actedAt time.Time) (int64, error)

	// CancelPendingSiblings cancels every still-Pending task for the same
	// step of the same submitted version, excluding the acting task, and
	// returns how many were cancelled.
	CancelPendingSiblings(ctx context.Context, documentID, versionID, stepKey, excludeTaskID string, actedAt time.Time) (int64, error)
}

// RecordRepository defines persistence operations for ApprovalRecord
type RecordRepository interface {
	Create(ctx context.Context, record *entity.ApprovalRecord) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.ApprovalRecord, error)
}

// UserRepository defines read access to the identity records the workflow needs
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// AuditRecorder records an immutable audit trail entry. Implementations must
// write inside the transaction carried in the context so a rolled-back
// operation leaves no audit trace.
type AuditRecorder interface {
	Record(ctx context.Context, entry *entity.AuditEntry) error
}

// TransactionManager handles database transactions. The callback's context
// carries the open transaction; repositories route their statements through
// it. Any error returned by fn aborts the whole transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
