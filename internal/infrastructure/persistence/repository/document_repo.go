package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/doc-approval/internal/application/port"
	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/domain/lifecycle"
	"github.com/garyjia/doc-approval/internal/infrastructure/persistence/sqlite"
)

const documentColumns = `id, title, owner_id, status, current_version_id, flow_template_id, created_at, updated_at`

// DocumentRepository implements port.DocumentRepository on SQLite
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new document row
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO documents (id, title, owner_id, status, current_version_id, flow_template_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		doc.ID,
		doc.Title,
		doc.OwnerID,
		string(doc.Status),
		nullableString(doc.CurrentVersionID),
		nullableString(doc.FlowTemplateID),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create document",
			zap.String("id", doc.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by its ID, returning nil when absent
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`

	doc, err := scanDocument(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// ListByOwner retrieves the documents owned by a user, most recent first
func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = ? ORDER BY updated_at DESC`
	return r.queryDocuments(ctx, query, ownerID)
}

// ListAll retrieves every document, most recent first
func (r *DocumentRepository) ListAll(ctx context.Context) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY updated_at DESC`
	return r.queryDocuments(ctx, query)
}

// ListByIDs retrieves the documents matching the given ids
func (r *DocumentRepository) ListByIDs(ctx context.Context, ids []string) ([]*entity.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id IN (` + placeholders + `) ORDER BY updated_at DESC`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.queryDocuments(ctx, query, args...)
}

// UpdateTitle updates the document title
func (r *DocumentRepository) UpdateTitle(ctx context.Context, id, title string) error {
	query := `UPDATE documents SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, title, id); err != nil {
		r.logger.Error("Failed to update document title",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to update document title: %w", err)
	}
	return nil
}

// UpdateStatus updates the document status
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status lifecycle.Status) error {
	query := `UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, string(status), id); err != nil {
		r.logger.Error("Failed to update document status",
			zap.String("id", id),
			zap.String("status", status.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

// SetCurrentVersion points the document at a new current version
func (r *DocumentRepository) SetCurrentVersion(ctx context.Context, id, versionID string) error {
	query := `UPDATE documents SET current_version_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, versionID, id); err != nil {
		r.logger.Error("Failed to set current version",
			zap.String("id", id),
			zap.String("version_id", versionID),
			zap.Error(err))
		return fmt.Errorf("failed to set current version: %w", err)
	}
	return nil
}

// SetSubmitted records a submission: new status, submitted snapshot, bound template
func (r *DocumentRepository) SetSubmitted(ctx context.Context, id string, status lifecycle.Status, versionID, templateID string) error {
	query := `
		UPDATE documents
		SET status = ?, current_version_id = ?, flow_template_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, string(status), versionID, templateID, id); err != nil {
		r.logger.Error("Failed to mark document submitted",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to mark document submitted: %w", err)
	}
	return nil
}

// SetReopened records a reopen: back to Draft on a fresh version copy
func (r *DocumentRepository) SetReopened(ctx context.Context, id string, status lifecycle.Status, versionID string) error {
	query := `
		UPDATE documents
		SET status = ?, current_version_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, string(status), versionID, id); err != nil {
		r.logger.Error("Failed to reopen document",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to reopen document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) queryDocuments(ctx context.Context, query string, args ...interface{}) ([]*entity.Document, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query documents", zap.Error(err))
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	var status string
	var currentVersionID, flowTemplateID sql.NullString

	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.OwnerID,
		&status,
		&currentVersionID,
		&flowTemplateID,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Status = lifecycle.Status(status)
	if currentVersionID.Valid {
		doc.CurrentVersionID = currentVersionID.String
	}
	if flowTemplateID.Valid {
		doc.FlowTemplateID = flowTemplateID.String
	}
	return &doc, nil
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
