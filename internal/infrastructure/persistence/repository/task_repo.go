package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/doc-approval/internal/application/port"
	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/domain/flow"
	"github.com/garyjia/doc-approval/internal/infrastructure/persistence/sqlite"
)

const taskColumns = `id, document_id, document_version_id, assignee_id, step_key, mode, status, acted_at, created_at`

// TaskRepository implements port.TaskRepository on SQLite
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new review task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a task by its ID, returning nil when absent
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*entity.ReviewTask, error) {
	query := `SELECT ` + taskColumns + ` FROM review_tasks WHERE id = ?`

	task, err := scanTask(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get review task",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get review task: %w", err)
	}

	return task, nil
}

// ListByStep retrieves every task for one step of one submitted version
func (r *TaskRepository) ListByStep(ctx context.Context, documentID, versionID, stepKey string) ([]*entity.ReviewTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM review_tasks
		WHERE document_id = ? AND document_version_id = ? AND step_key = ?
		ORDER BY created_at
	`
	return r.queryTasks(ctx, query, documentID, versionID, stepKey)
}

// ListByDocument retrieves every task for a document, oldest first
func (r *TaskRepository) ListByDocument(ctx context.Context, documentID string) ([]*entity.ReviewTask, error) {
	query := `SELECT ` + taskColumns + ` FROM review_tasks WHERE document_id = ? ORDER BY created_at`
	return r.queryTasks(ctx, query, documentID)
}

// ListPendingByAssignee retrieves a reviewer's open tasks, oldest first
func (r *TaskRepository) ListPendingByAssignee(ctx context.Context, assigneeID string) ([]*entity.ReviewTask, error) {
	query := `SELECT ` + taskColumns + ` FROM review_tasks WHERE assignee_id = ? AND status = ? ORDER BY created_at`
	return r.queryTasks(ctx, query, assigneeID, string(entity.TaskPending))
}

// ListDocumentIDsByAssignee retrieves the distinct documents a reviewer has
// ever been assigned a task on
func (r *TaskRepository) ListDocumentIDsByAssignee(ctx context.Context, assigneeID string) ([]string, error) {
	query := `SELECT DISTINCT document_id FROM review_tasks WHERE assignee_id = ?`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, assigneeID)
	if err != nil {
		r.logger.Error("Failed to list assigned document ids",
			zap.String("assignee_id", assigneeID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list assigned document ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateIfAbsent inserts the task, treating a violation of the pending-task
// uniqueness constraint as a no-op. Two racing requests that both try to open
// the same task therefore both succeed, with exactly one row inserted.
// Unrelated persistence errors propagate untouched.
func (r *TaskRepository) CreateIfAbsent(ctx context.Context, task *entity.ReviewTask) (bool, error) {
	query := `
		INSERT INTO review_tasks (id, document_id, document_version_id, assignee_id, step_key, mode, status, acted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		task.ID,
		task.DocumentID,
		task.DocumentVersionID,
		task.AssigneeID,
		task.StepKey,
		string(task.Mode),
		string(task.Status),
		task.CreatedAt,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return false, nil
		}
		r.logger.Error("Failed to create review task",
			zap.String("document_id", task.DocumentID),
			zap.String("step_key", task.StepKey),
			zap.String("assignee_id", task.AssigneeID),
			zap.Error(err))
		return false, fmt.Errorf("failed to create review task: %w", err)
	}

	return true, nil
}

// MarkActed is the single-use guard: a conditional update that flips the task
// out of Pending only while it is still Pending and still assigned to
// assigneeID. The affected-row count tells the caller definitively whether it
// won the race.
func (r *TaskRepository) MarkActed(ctx context.Context, taskID, assigneeID string, to entity.TaskStatus, actedAt time.Time) (int64, error) {
	query := `
		UPDATE review_tasks
		SET status = ?, acted_at = ?
		WHERE id = ? AND assignee_id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		string(to),
		actedAt,
		taskID,
		assigneeID,
		string(entity.TaskPending),
	)
	if err != nil {
		r.logger.Error("Failed to mark review task acted",
			zap.String("id", taskID),
			zap.String("to", string(to)),
			zap.Error(err))
		return 0, fmt.Errorf("failed to mark review task acted: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected row count: %w", err)
	}
	return affected, nil
}

// CancelPendingSiblings cancels the other still-Pending tasks for the same
// step of the same submitted version
func (r *TaskRepository) CancelPendingSiblings(ctx context.Context, documentID, versionID, stepKey, excludeTaskID string, actedAt time.Time) (int64, error) {
	query := `
		UPDATE review_tasks
		SET status = ?, acted_at = ?
		WHERE document_id = ? AND document_version_id = ? AND step_key = ? AND status = ? AND id != ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		string(entity.TaskCancelled),
		actedAt,
		documentID,
		versionID,
		stepKey,
		string(entity.TaskPending),
		excludeTaskID,
	)
	if err != nil {
		r.logger.Error("Failed to cancel sibling review tasks",
			zap.String("document_id", documentID),
			zap.String("step_key", stepKey),
			zap.Error(err))
		return 0, fmt.Errorf("failed to cancel sibling review tasks: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected row count: %w", err)
	}
	return affected, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*entity.ReviewTask, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query review tasks", zap.Error(err))
		return nil, fmt.Errorf("failed to query review tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.ReviewTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (*entity.ReviewTask, error) {
	var task entity.ReviewTask
	var mode, status string
	var actedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.DocumentID,
		&task.DocumentVersionID,
		&task.AssigneeID,
		&task.StepKey,
		&mode,
		&status,
		&actedAt,
		&task.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Mode = flow.Mode(mode)
	task.Status = entity.TaskStatus(status)
	if actedAt.Valid {
		task.ActedAt = &actedAt.Time
	}
	return &task, nil
}

// Verify interface compliance
var _ port.TaskRepository = (*TaskRepository)(nil)
