package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/doc-approval/internal/application/port"
	"github.com/garyjia/doc-approval/internal/domain/apperr"
	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/domain/lifecycle"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DocumentDetail bundles a document with the rows a caller needs to render it
type DocumentDetail struct {
	Document       *entity.Document
	CurrentVersion *entity.DocumentVersion
	Tasks          []*entity.ReviewTask
	Records        []*entity.ApprovalRecord
}

// DocumentService manages the document side of the workflow: drafts and the
// reopen transition out of Rejected.
type DocumentService interface {
	CreateDraft(ctx context.Context, actorID, title, requestID string) (*entity.Document, error)
	UpdateDraft(ctx context.Context, actorID, documentID string, title, content *string, requestID string) error
	GetDocument(ctx context.Context, actorID, documentID string) (*DocumentDetail, error)
	ListDocuments(ctx context.Context, actorID string) ([]*entity.Document, error)
	ReopenAsDraft(ctx context.Context, actorID, documentID, requestID string) (*WorkflowResult, error)
}

// WorkflowResult is the summary every workflow operation returns
type WorkflowResult struct {
	DocumentID string
	Status     lifecycle.Status
}

type documentServiceImpl struct {
	docRepo     port.DocumentRepository
	versionRepo port.VersionRepository
	taskRepo    port.TaskRepository
	recordRepo  port.RecordRepository
	userRepo    port.UserRepository
	audit       port.AuditRecorder
	txManager   port.TransactionManager
	logger      Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	docRepo port.DocumentRepository,
	versionRepo port.VersionRepository,
	taskRepo port.TaskRepository,
	recordRepo port.RecordRepository,
	userRepo port.UserRepository,
	audit port.AuditRecorder,
	txManager port.TransactionManager,
	logger Logger,
) DocumentService {
	return &documentServiceImpl{
		docRepo:     docRepo,
		versionRepo: versionRepo,
		taskRepo:    taskRepo,
		recordRepo:  recordRepo,
		userRepo:    userRepo,
		audit:       audit,
		txManager:   txManager,
		logger:      logger,
	}
}

// CreateDraft creates a document in Draft with an empty version 1
func (s *documentServiceImpl) CreateDraft(ctx context.Context, actorID, title, requestID string) (*entity.Document, error) {
	if title == "" {
		return nil, apperr.ValidationFailed("title is required")
	}

	now := time.Now().UTC()
	doc := &entity.Document{
		ID:        uuid.NewString(),
		Title:     title,
		OwnerID:   actorID,
		Status:    lifecycle.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	version := &entity.DocumentVersion{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		VersionNo:  1,
		Content:    "",
		CreatedAt:  now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Create(txCtx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.versionRepo.Create(txCtx, version); err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		if err := s.docRepo.SetCurrentVersion(txCtx, doc.ID, version.ID); err != nil {
			return fmt.Errorf("set current version: %w", err)
		}
		return s.audit.Record(txCtx, &entity.AuditEntry{
			ID:         uuid.NewString(),
			ActorID:    actorID,
			Action:     entity.AuditDocumentCreated,
			EntityType: "Document",
			EntityID:   doc.ID,
			RequestID:  requestID,
			CreatedAt:  now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to create draft", "error", err, "actor_id", actorID)
		return nil, err
	}

	doc.CurrentVersionID = version.ID
	s.logger.Info("Draft created", "document_id", doc.ID, "actor_id", actorID)
	return doc, nil
}

// UpdateDraft edits the title and/or current version content of a Draft document
func (s *documentServiceImpl) UpdateDraft(ctx context.Context, actorID, documentID string, title, content *string, requestID string) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.requireEditable(txCtx, actorID, documentID)
		if err != nil {
			return err
		}
		if doc.Status != lifecycle.StatusDraft {
			return apperr.Conflict("only draft documents can be edited")
		}

		if title != nil {
			if *title == "" {
				return apperr.ValidationFailed("title cannot be empty")
			}
			if err := s.docRepo.UpdateTitle(txCtx, doc.ID, *title); err != nil {
				return fmt.Errorf("update title: %w", err)
			}
		}
		if content != nil {
			if doc.CurrentVersionID == "" {
				return apperr.Internal("document has no current version")
			}
			if err := s.versionRepo.UpdateContent(txCtx, doc.CurrentVersionID, *content); err != nil {
				return fmt.Errorf("update content: %w", err)
			}
		}

		return s.audit.Record(txCtx, &entity.AuditEntry{
			ID:         uuid.NewString(),
			ActorID:    actorID,
			Action:     entity.AuditDocumentUpdated,
			EntityType: "Document",
			EntityID:   doc.ID,
			RequestID:  requestID,
			Metadata: map[string]any{
				"title_changed":   title != nil,
				"content_changed": content != nil,
			},
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		s.logger.Error("Failed to update draft", "error", err, "document_id", documentID, "actor_id", actorID)
		return err
	}

	s.logger.Info("Draft updated", "document_id", documentID, "actor_id", actorID)
	return nil
}

// GetDocument returns the document with its current version, tasks, and
// approval records. Callers the document is not visible to get NotFound.
func (s *documentServiceImpl) GetDocument(ctx context.Context, actorID, documentID string) (*DocumentDetail, error) {
	doc, err := s.requireVisible(ctx, actorID, documentID)
	if err != nil {
		return nil, err
	}

	detail := &DocumentDetail{Document: doc}

	if doc.CurrentVersionID != "" {
		version, err := s.versionRepo.GetByID(ctx, doc.CurrentVersionID)
		if err != nil {
			return nil, fmt.Errorf("load current version: %w", err)
		}
		if version == nil {
			return nil, apperr.Internal("document current version missing")
		}
		detail.CurrentVersion = version
	}

	if detail.Tasks, err = s.taskRepo.ListByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("load review tasks: %w", err)
	}
	if detail.Records, err = s.recordRepo.ListByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("load approval records: %w", err)
	}
	return detail, nil
}

// ListDocuments returns the documents the actor may see: their own for plain
// users, everything for admins, and assigned documents for reviewers.
func (s *documentServiceImpl) ListDocuments(ctx context.Context, actorID string) ([]*entity.Document, error) {
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case entity.RoleAdmin:
		return s.docRepo.ListAll(ctx)
	case entity.RoleReviewer:
		ids, err := s.taskRepo.ListDocumentIDsByAssignee(ctx, actorID)
		if err != nil {
			return nil, fmt.Errorf("load assigned documents: %w", err)
		}
		return s.docRepo.ListByIDs(ctx, ids)
	default:
		return s.docRepo.ListByOwner(ctx, actorID)
	}
}

// ReopenAsDraft copies the current version forward and moves a Rejected
// document back to Draft. Tasks stay untouched as Cancelled/Rejected history.
func (s *documentServiceImpl) ReopenAsDraft(ctx context.Context, actorID, documentID, requestID string) (*WorkflowResult, error) {
	var result *WorkflowResult

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.requireEditable(txCtx, actorID, documentID)
		if err != nil {
			return err
		}
		if doc.Status != lifecycle.StatusRejected {
			return apperr.Conflict("only rejected documents can be reopened")
		}
		if doc.CurrentVersionID == "" {
			return apperr.Internal("document has no current version")
		}

		current, err := s.versionRepo.GetByID(txCtx, doc.CurrentVersionID)
		if err != nil {
			return fmt.Errorf("load current version: %w", err)
		}
		if current == nil {
			return apperr.Internal("document current version missing")
		}

		maxNo, err := s.versionRepo.MaxVersionNo(txCtx, doc.ID)
		if err != nil {
			return fmt.Errorf("max version no: %w", err)
		}

		copyVersion := &entity.DocumentVersion{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			VersionNo:  maxNo + 1,
			Content:    current.Content,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.versionRepo.Create(txCtx, copyVersion); err != nil {
			return fmt.Errorf("create version copy: %w", err)
		}

		if err := lifecycle.AssertTransition(doc.Status, lifecycle.StatusDraft); err != nil {
			return apperr.InvalidTransition(err)
		}
		if err := s.docRepo.SetReopened(txCtx, doc.ID, lifecycle.StatusDraft, copyVersion.ID); err != nil {
			return fmt.Errorf("reopen document: %w", err)
		}

		if err := s.audit.Record(txCtx, &entity.AuditEntry{
			ID:         uuid.NewString(),
			ActorID:    actorID,
			Action:     entity.AuditDocumentReopened,
			EntityType: "Document",
			EntityID:   doc.ID,
			RequestID:  requestID,
			Metadata:   map[string]any{"new_version_no": copyVersion.VersionNo},
			CreatedAt:  copyVersion.CreatedAt,
		}); err != nil {
			return err
		}

		result = &WorkflowResult{DocumentID: doc.ID, Status: lifecycle.StatusDraft}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to reopen document", "error", err, "document_id", documentID, "actor_id", actorID)
		return nil, err
	}

	s.logger.Info("Document reopened as draft", "document_id", documentID, "actor_id", actorID)
	return result, nil
}

func (s *documentServiceImpl) requireActor(ctx context.Context, actorID string) (*entity.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if actor == nil {
		return nil, apperr.NotFound("user not found")
	}
	return actor, nil
}

// requireEditable loads the document and checks the actor may change it:
// the owner or an admin. Anyone else gets NotFound rather than a permission
// error, so probing for foreign document ids reveals nothing.
func (s *documentServiceImpl) requireEditable(ctx context.Context, actorID, documentID string) (*entity.Document, error) {
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, apperr.NotFound("document not found")
	}
	if doc.OwnerID != actorID && actor.Role != entity.RoleAdmin {
		return nil, apperr.NotFound("document not found")
	}
	return doc, nil
}

// requireVisible additionally admits reviewers that hold a task on the document.
func (s *documentServiceImpl) requireVisible(ctx context.Context, actorID, documentID string) (*entity.Document, error) {
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, apperr.NotFound("document not found")
	}
	if doc.OwnerID == actorID || actor.Role == entity.RoleAdmin {
		return doc, nil
	}

	ids, err := s.taskRepo.ListDocumentIDsByAssignee(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load assigned documents: %w", err)
	}
	for _, id := range ids {
		if id == doc.ID {
			return doc, nil
		}
	}
	return nil, apperr.NotFound("document not found")
}
