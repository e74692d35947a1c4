package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/doc-approval/internal/application/port"
	"github.com/garyjia/doc-approval/internal/domain/apperr"
	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/domain/flow"
	"github.com/garyjia/doc-approval/internal/domain/lifecycle"
)

// ReviewService applies reviewer decisions and derives the next system state
type ReviewService interface {
	ActOnReviewTask(ctx context.Context, actorID, taskID string, action entity.ReviewAction, reason, requestID string) (*WorkflowResult, error)
	ListMyPendingTasks(ctx context.Context, actorID string) ([]*entity.ReviewTask, error)
}

type reviewServiceImpl struct {
	docRepo      port.DocumentRepository
	templateRepo port.TemplateRepository
	taskRepo     port.TaskRepository
	recordRepo   port.RecordRepository
	audit        port.AuditRecorder
	txManager    port.TransactionManager
	logger       Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	docRepo port.DocumentRepository,
	templateRepo port.TemplateRepository,
	taskRepo port.TaskRepository,
	recordRepo port.RecordRepository,
	audit port.AuditRecorder,
	txManager port.TransactionManager,
	logger Logger,
) ReviewService {
	return &reviewServiceImpl{
		docRepo:      docRepo,
		templateRepo: templateRepo,
		taskRepo:     taskRepo,
		recordRepo:   recordRepo,
		audit:        audit,
		txManager:    txManager,
		logger:       logger,
	}
}

// ActOnReviewTask records one reviewer decision and computes the resulting
// step and document state, all inside one transaction. The conditional
// Pending → terminal update on the task row is the single-use guard: of two
// racing requests only one sees an affected-row count of one, the other fails
// with Conflict. Task creation for the following assignee or step is
// idempotent, so two approvals racing to open the same step create one task.
func (s *reviewServiceImpl) ActOnReviewTask(ctx context.Context, actorID, taskID string, action entity.ReviewAction, reason, requestID string) (*WorkflowResult, error) {
	if action != entity.ActionApprove && action != entity.ActionReject {
		return nil, apperr.ValidationFailed(fmt.Sprintf("unknown action %q", action))
	}
	reason = strings.TrimSpace(reason)
	if action == entity.ActionReject && reason == "" {
		return nil, apperr.ValidationFailed("reject requires a reason")
	}

	var result *WorkflowResult

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		task, err := s.taskRepo.GetByID(txCtx, taskID)
		if err != nil {
			return fmt.Errorf("load review task: %w", err)
		}
		// A task assigned to someone else is reported as absent, not
		// forbidden, so its existence is not leaked.
		if task == nil || task.AssigneeID != actorID {
			return apperr.NotFound("review task not found")
		}
		if task.Status != entity.TaskPending {
			return apperr.Conflict("review task already processed")
		}

		doc, err := s.docRepo.GetByID(txCtx, task.DocumentID)
		if err != nil {
			return fmt.Errorf("load document: %w", err)
		}
		if doc == nil {
			return apperr.Internal("review task references a missing document")
		}
		if doc.Status != lifecycle.StatusInReview {
			return apperr.Conflict("document not in review")
		}
		if doc.FlowTemplateID == "" {
			return apperr.ValidationFailed("document has no flow template")
		}

		template, err := s.templateRepo.GetByID(txCtx, doc.FlowTemplateID)
		if err != nil {
			return fmt.Errorf("load flow template: %w", err)
		}
		if err := flow.ValidateForSubmission(template); err != nil {
			return err
		}

		actedAt := time.Now().UTC()
		toStatus := entity.TaskApproved
		recordAction := entity.RecordApproved
		// A reason is only meaningful on a rejection; approvals keep none.
		recordReason := ""
		if action == entity.ActionReject {
			toStatus = entity.TaskRejected
			recordAction = entity.RecordRejected
			recordReason = reason
		}

		// Single-use guard.
		affected, err := s.taskRepo.MarkActed(txCtx, task.ID, actorID, toStatus, actedAt)
		if err != nil {
			return fmt.Errorf("mark task acted: %w", err)
		}
		if affected != 1 {
			return apperr.Conflict("review task already processed")
		}

		if err := s.recordRepo.Create(txCtx, &entity.ApprovalRecord{
			ID:                uuid.NewString(),
			DocumentID:        task.DocumentID,
			DocumentVersionID: task.DocumentVersionID,
			ReviewTaskID:      task.ID,
			ActorID:           actorID,
			Action:            recordAction,
			Reason:            recordReason,
			CreatedAt:         actedAt,
		}); err != nil {
			return fmt.Errorf("create approval record: %w", err)
		}

		if err := s.audit.Record(txCtx, &entity.AuditEntry{
			ID:         uuid.NewString(),
			ActorID:    actorID,
			Action:     entity.AuditReviewTaskActed,
			EntityType: "Document",
			EntityID:   task.DocumentID,
			RequestID:  requestID,
			Metadata: map[string]any{
				"task_id":  task.ID,
				"action":   string(action),
				"step_key": task.StepKey,
				"reason":   recordReason,
			},
			CreatedAt: actedAt,
		}); err != nil {
			return err
		}

		if action == entity.ActionReject {
			result, err = s.applyRejection(txCtx, doc, task, actedAt)
			return err
		}
		result, err = s.applyApproval(txCtx, doc, task, template)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to act on review task",
			"error", err, "task_id", taskID, "action", string(action), "actor_id", actorID)
		return nil, err
	}

	s.logger.Info("Review task acted",
		"task_id", taskID, "action", string(action), "actor_id", actorID,
		"document_id", result.DocumentID, "document_status", result.Status.String())
	return result, nil
}

// applyRejection cancels the step's other pending tasks and rejects the document
func (s *reviewServiceImpl) applyRejection(ctx context.Context, doc *entity.Document, task *entity.ReviewTask, actedAt time.Time) (*WorkflowResult, error) {
	cancelled, err := s.taskRepo.CancelPendingSiblings(
		ctx, task.DocumentID, task.DocumentVersionID, task.StepKey, task.ID, actedAt)
	if err != nil {
		return nil, fmt.Errorf("cancel pending siblings: %w", err)
	}
	if cancelled > 0 {
		s.logger.Info("Cancelled sibling review tasks",
			"document_id", task.DocumentID, "step_key", task.StepKey, "cancelled", cancelled)
	}

	if err := lifecycle.AssertTransition(doc.Status, lifecycle.StatusRejected); err != nil {
		return nil, apperr.InvalidTransition(err)
	}
	if err := s.docRepo.UpdateStatus(ctx, doc.ID, lifecycle.StatusRejected); err != nil {
		return nil, fmt.Errorf("reject document: %w", err)
	}
	return &WorkflowResult{DocumentID: doc.ID, Status: lifecycle.StatusRejected}, nil
}

// applyApproval re-derives the step's approval set and advances: next serial
// assignee, wait for parallel approvers, open the next step, or approve the
// document when the last step completes.
func (s *reviewServiceImpl) applyApproval(ctx context.Context, doc *entity.Document, task *entity.ReviewTask, template *flow.Template) (*WorkflowResult, error) {
	ordered := flow.NormalizeSteps(template.Steps)
	currentStep := flow.FindStep(ordered, task.StepKey)
	if currentStep == nil {
		return nil, apperr.ValidationFailed(fmt.Sprintf("unknown step key %q", task.StepKey))
	}

	tasksInStep, err := s.taskRepo.ListByStep(ctx, task.DocumentID, task.DocumentVersionID, task.StepKey)
	if err != nil {
		return nil, fmt.Errorf("load step tasks: %w", err)
	}
	var approvedAssigneeIDs []string
	for _, t := range tasksInStep {
		if t.Status == entity.TaskApproved {
			approvedAssigneeIDs = append(approvedAssigneeIDs, t.AssigneeID)
		}
	}

	inReview := &WorkflowResult{DocumentID: doc.ID, Status: lifecycle.StatusInReview}

	if currentStep.Mode == flow.ModeSerial {
		if next := flow.NextSerialAssignee(currentStep.ReviewerIDs, approvedAssigneeIDs); next != "" {
			if err := s.openTask(ctx, task, *currentStep, next); err != nil {
				return nil, err
			}
			return inReview, nil
		}
	}

	if !flow.IsStepComplete(currentStep.Mode, currentStep.ReviewerIDs, approvedAssigneeIDs) {
		return inReview, nil
	}

	nextKey := flow.NextStepKey(ordered, currentStep.StepKey)
	if nextKey == "" {
		if err := lifecycle.AssertTransition(doc.Status, lifecycle.StatusApproved); err != nil {
			return nil, apperr.InvalidTransition(err)
		}
		if err := s.docRepo.UpdateStatus(ctx, doc.ID, lifecycle.StatusApproved); err != nil {
			return nil, fmt.Errorf("approve document: %w", err)
		}
		return &WorkflowResult{DocumentID: doc.ID, Status: lifecycle.StatusApproved}, nil
	}

	nextStep := flow.FindStep(ordered, nextKey)
	if nextStep == nil {
		return nil, apperr.ValidationFailed(fmt.Sprintf("unknown next step %q", nextKey))
	}
	for _, assigneeID := range flow.InitialAssigneesForStep(*nextStep) {
		if err := s.openTask(ctx, task, *nextStep, assigneeID); err != nil {
			return nil, err
		}
	}
	return inReview, nil
}

// openTask creates a Pending task for the assignee on the given step. A
// racing request may already have created the same row; the duplicate-key
// no-op inside CreateIfAbsent makes that harmless.
func (s *reviewServiceImpl) openTask(ctx context.Context, origin *entity.ReviewTask, step flow.StepDefinition, assigneeID string) error {
	created, err := s.taskRepo.CreateIfAbsent(ctx, &entity.ReviewTask{
		ID:                uuid.NewString(),
		DocumentID:        origin.DocumentID,
		DocumentVersionID: origin.DocumentVersionID,
		AssigneeID:        assigneeID,
		StepKey:           step.StepKey,
		Mode:              step.Mode,
		Status:            entity.TaskPending,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("create review task: %w", err)
	}
	if !created {
		s.logger.Info("Review task already present, skipping create",
			"document_id", origin.DocumentID, "step_key", step.StepKey, "assignee_id", assigneeID)
	}
	return nil
}

// ListMyPendingTasks returns the actor's Pending tasks, oldest first
func (s *reviewServiceImpl) ListMyPendingTasks(ctx context.Context, actorID string) ([]*entity.ReviewTask, error) {
	tasks, err := s.taskRepo.ListPendingByAssignee(ctx, actorID)
	if err != nil {
		s.logger.Error("Failed to list pending tasks", "error", err, "actor_id", actorID)
		return nil, err
	}
	return tasks, nil
}
