package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/doc-approval/internal/application/port"
	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/infrastructure/persistence/sqlite"
)

// RecordRepository implements port.RecordRepository on SQLite
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new approval record repository
func NewRecordRepository(db *sql.DB, logger *zap.Logger) port.RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an approval record
func (r *RecordRepository) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	query := `
		INSERT INTO approval_records (id, document_id, document_version_id, review_task_id, actor_id, action, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		record.ID,
		record.DocumentID,
		record.DocumentVersionID,
		record.ReviewTaskID,
		record.ActorID,
		string(record.Action),
		record.Reason,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create approval record",
			zap.String("review_task_id", record.ReviewTaskID),
			zap.Error(err))
		return fmt.Errorf("failed to create approval record: %w", err)
	}

	return nil
}

// ListByDocument retrieves a document's decision history, oldest first
func (r *RecordRepository) ListByDocument(ctx context.Context, documentID string) ([]*entity.ApprovalRecord, error) {
	query := `
		SELECT id, document_id, document_version_id, review_task_id, actor_id, action, reason, created_at
		FROM approval_records
		WHERE document_id = ?
		ORDER BY created_at
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to list approval records",
			zap.String("document_id", documentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list approval records: %w", err)
	}
	defer rows.Close()

	var records []*entity.ApprovalRecord
	for rows.Next() {
		var record entity.ApprovalRecord
		var action string
		err := rows.Scan(
			&record.ID,
			&record.DocumentID,
			&record.DocumentVersionID,
			&record.ReviewTaskID,
			&record.ActorID,
			&action,
			&record.Reason,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		record.Action = entity.RecordAction(action)
		records = append(records, &record)
	}
	return records, rows.Err()
}

// Verify interface compliance
var _ port.RecordRepository = (*RecordRepository)(nil)
