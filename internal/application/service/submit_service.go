package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/doc-approval/internal/application/port"
	"github.com/garyjia/doc-approval/internal/domain/apperr"
	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/domain/flow"
	"github.com/garyjia/doc-approval/internal/domain/lifecycle"
)

// SubmitService moves a Draft document into review against a flow template
type SubmitService interface {
	SubmitForApproval(ctx context.Context, actorID, documentID, templateID, requestID string) (*WorkflowResult, error)
}

type submitServiceImpl struct {
	docRepo      port.DocumentRepository
	versionRepo  port.VersionRepository
	templateRepo port.TemplateRepository
	taskRepo     port.TaskRepository
	userRepo     port.UserRepository
	audit        port.AuditRecorder
	txManager    port.TransactionManager
	logger       Logger
}

// NewSubmitService creates a new SubmitService
func NewSubmitService(
	docRepo port.DocumentRepository,
	versionRepo port.VersionRepository,
	templateRepo port.TemplateRepository,
	taskRepo port.TaskRepository,
	userRepo port.UserRepository,
	audit port.AuditRecorder,
	txManager port.TransactionManager,
	logger Logger,
) SubmitService {
	return &submitServiceImpl{
		docRepo:      docRepo,
		versionRepo:  versionRepo,
		templateRepo: templateRepo,
		taskRepo:     taskRepo,
		userRepo:     userRepo,
		audit:        audit,
		txManager:    txManager,
		logger:       logger,
	}
}

// SubmitForApproval snapshots the draft content into a new version, binds the
// flow template, transitions Draft → InReview, and opens the first step's
// tasks. Everything happens in one transaction; any failure leaves the
// document untouched in Draft with its prior version count.
func (s *submitServiceImpl) SubmitForApproval(ctx context.Context, actorID, documentID, templateID, requestID string) (*WorkflowResult, error) {
	if templateID == "" {
		return nil, apperr.ValidationFailed("flow template id is required")
	}

	var result *WorkflowResult

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		actor, err := s.userRepo.GetByID(txCtx, actorID)
		if err != nil {
			return fmt.Errorf("load actor: %w", err)
		}
		if actor == nil {
			return apperr.NotFound("user not found")
		}

		doc, err := s.docRepo.GetByID(txCtx, documentID)
		if err != nil {
			return fmt.Errorf("load document: %w", err)
		}
		if doc == nil || (doc.OwnerID != actorID && actor.Role != entity.RoleAdmin) {
			return apperr.NotFound("document not found")
		}
		if doc.Status != lifecycle.StatusDraft {
			return apperr.Conflict("only draft documents can be submitted")
		}
		if doc.CurrentVersionID == "" {
			return apperr.Internal("document has no current version")
		}

		template, err := s.templateRepo.GetByID(txCtx, templateID)
		if err != nil {
			return fmt.Errorf("load flow template: %w", err)
		}
		if err := flow.ValidateForSubmission(template); err != nil {
			return err
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

		// Lock the draft content in an immutable submitted snapshot.
		snapshot := &entity.DocumentVersion{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			VersionNo:  maxNo + 1,
			Content:    current.Content,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.versionRepo.Create(txCtx, snapshot); err != nil {
			return fmt.Errorf("create submitted snapshot: %w", err)
		}

		if err := lifecycle.AssertTransition(doc.Status, lifecycle.StatusInReview); err != nil {
			return apperr.InvalidTransition(err)
		}
		if err := s.docRepo.SetSubmitted(txCtx, doc.ID, lifecycle.StatusInReview, snapshot.ID, template.ID); err != nil {
			return fmt.Errorf("mark document submitted: %w", err)
		}

		ordered := flow.NormalizeSteps(template.Steps)
		firstStep := ordered[0]
		assignees := flow.InitialAssigneesForStep(firstStep)

		now := time.Now().UTC()
		for _, assigneeID := range assignees {
			task := &entity.ReviewTask{
				ID:                uuid.NewString(),
				DocumentID:        doc.ID,
				DocumentVersionID: snapshot.ID,
				AssigneeID:        assigneeID,
				StepKey:           firstStep.StepKey,
				Mode:              firstStep.Mode,
				Status:            entity.TaskPending,
				CreatedAt:         now,
			}
			if _, err := s.taskRepo.CreateIfAbsent(txCtx, task); err != nil {
				return fmt.Errorf("create review task: %w", err)
			}
		}

		if err := s.audit.Record(txCtx, &entity.AuditEntry{
			ID:         uuid.NewString(),
			ActorID:    actorID,
			Action:     entity.AuditDocumentSubmitted,
			EntityType: "Document",
			EntityID:   doc.ID,
			RequestID:  requestID,
			Metadata: map[string]any{
				"flow_template_id":     template.ID,
				"submitted_version_id": snapshot.ID,
				"created_tasks":        len(assignees),
			},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		result = &WorkflowResult{DocumentID: doc.ID, Status: lifecycle.StatusInReview}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit document",
			"error", err, "document_id", documentID, "template_id", templateID, "actor_id", actorID)
		return nil, err
	}

	s.logger.Info("Document submitted for approval",
		"document_id", documentID, "template_id", templateID, "actor_id", actorID)
	return result, nil
}
