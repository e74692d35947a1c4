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

// VersionRepository implements port.VersionRepository on SQLite
type VersionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVersionRepository creates a new document version repository
func NewVersionRepository(db *sql.DB, logger *zap.Logger) port.VersionRepository {
	return &VersionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new version snapshot. The (document_id, version_no)
// uniqueness constraint keeps the per-document numbering strictly monotonic.
func (r *VersionRepository) Create(ctx context.Context, version *entity.DocumentVersion) error {
	query := `
		INSERT INTO document_versions (id, document_id, version_no, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		version.ID,
		version.DocumentID,
		version.VersionNo,
		version.Content,
		version.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create document version",
			zap.String("document_id", version.DocumentID),
			zap.Int("version_no", version.VersionNo),
			zap.Error(err))
		return fmt.Errorf("failed to create document version: %w", err)
	}

	return nil
}

// GetByID retrieves a version by its ID, returning nil when absent
func (r *VersionRepository) GetByID(ctx context.Context, id string) (*entity.DocumentVersion, error) {
	query := `SELECT id, document_id, version_no, content, created_at FROM document_versions WHERE id = ?`

	var version entity.DocumentVersion
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&version.ID,
		&version.DocumentID,
		&version.VersionNo,
		&version.Content,
		&version.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document version",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get document version: %w", err)
	}

	return &version, nil
}

// MaxVersionNo returns the highest version number for a document, zero when
// the document has no versions yet
func (r *VersionRepository) MaxVersionNo(ctx context.Context, documentID string) (int, error) {
	query := `SELECT COALESCE(MAX(version_no), 0) FROM document_versions WHERE document_id = ?`

	var max int
	if err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, documentID).Scan(&max); err != nil {
		r.logger.Error("Failed to get max version no",
			zap.String("document_id", documentID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to get max version no: %w", err)
	}
	return max, nil
}

// CountByDocument returns the number of versions a document has
func (r *VersionRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	query := `SELECT COUNT(*) FROM document_versions WHERE document_id = ?`

	var count int
	if err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, documentID).Scan(&count); err != nil {
		r.logger.Error("Failed to count document versions",
			zap.String("document_id", documentID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count document versions: %w", err)
	}
	return count, nil
}

// UpdateContent replaces the content of a draft's working version. Submitted
// snapshots are never updated; the service layer only calls this for the
// current version of a Draft document.
func (r *VersionRepository) UpdateContent(ctx context.Context, id, content string) error {
	query := `UPDATE document_versions SET content = ? WHERE id = ?`

	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, content, id); err != nil {
		r.logger.Error("Failed to update version content",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to update version content: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.VersionRepository = (*VersionRepository)(nil)
