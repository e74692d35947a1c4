package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/doc-approval/internal/application/port"
	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRecorder on SQLite. Metadata is stored
// as a JSON column. Entries ride the caller's transaction, so an operation
// that rolls back leaves no audit row.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit log repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) port.AuditRecorder {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends one audit entry
func (r *AuditRepository) Record(ctx context.Context, entry *entity.AuditEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, request_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.RequestID,
		nullableBytes(metadata),
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record audit entry",
			zap.String("action", entry.Action),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err))
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

// Verify interface compliance
var _ port.AuditRecorder = (*AuditRepository)(nil)
