package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/doc-approval/internal/application/port"
	"github.com/garyjia/doc-approval/internal/domain/flow"
	"github.com/garyjia/doc-approval/internal/infrastructure/persistence/sqlite"
)

// TemplateRepository implements port.TemplateRepository on SQLite. Templates
// span three tables: the template row, its steps, and each step's ordered
// reviewer list.
type TemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new flow template repository
func NewTemplateRepository(db *sql.DB, logger *zap.Logger) port.TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a template with its steps and reviewer lists. Used by
// migrations-adjacent seeding and test fixtures; there is no authoring API.
func (r *TemplateRepository) Create(ctx context.Context, template *flow.Template) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	_, err := exec.ExecContext(ctx,
		`INSERT INTO approval_flow_templates (id, name) VALUES (?, ?)`,
		template.ID, template.Name,
	)
	if err != nil {
		r.logger.Error("Failed to create flow template",
			zap.String("id", template.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create flow template: %w", err)
	}

	for _, step := range template.Steps {
		stepRow, err := exec.ExecContext(ctx,
			`INSERT INTO approval_flow_steps (template_id, step_key, order_index, mode) VALUES (?, ?, ?, ?)`,
			template.ID, step.StepKey, step.OrderIndex, string(step.Mode),
		)
		if err != nil {
			return fmt.Errorf("failed to create flow step %q: %w", step.StepKey, err)
		}
		stepID, err := stepRow.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get flow step id: %w", err)
		}
		for pos, reviewerID := range step.ReviewerIDs {
			_, err := exec.ExecContext(ctx,
				`INSERT INTO approval_step_reviewers (step_id, reviewer_id, position) VALUES (?, ?, ?)`,
				stepID, reviewerID, pos,
			)
			if err != nil {
				return fmt.Errorf("failed to create step reviewer: %w", err)
			}
		}
	}

	return nil
}

// GetByID retrieves a template with its steps and reviewers, nil when absent
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*flow.Template, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	var template flow.Template
	err := exec.QueryRowContext(ctx,
		`SELECT id, name FROM approval_flow_templates WHERE id = ?`, id,
	).Scan(&template.ID, &template.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get flow template",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get flow template: %w", err)
	}

	steps, err := r.loadSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	template.Steps = steps

	return &template, nil
}

// List retrieves all templates with their steps
func (r *TemplateRepository) List(ctx context.Context) ([]*flow.Template, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	rows, err := exec.QueryContext(ctx, `SELECT id, name FROM approval_flow_templates ORDER BY name`)
	if err != nil {
		r.logger.Error("Failed to list flow templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list flow templates: %w", err)
	}
	defer rows.Close()

	var templates []*flow.Template
	for rows.Next() {
		var template flow.Template
		if err := rows.Scan(&template.ID, &template.Name); err != nil {
			return nil, fmt.Errorf("failed to scan flow template: %w", err)
		}
		templates = append(templates, &template)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, template := range templates {
		steps, err := r.loadSteps(ctx, template.ID)
		if err != nil {
			return nil, err
		}
		template.Steps = steps
	}

	return templates, nil
}

// loadSteps assembles a template's step definitions in order_index order,
// with each step's reviewers in position order
func (r *TemplateRepository) loadSteps(ctx context.Context, templateID string) ([]flow.StepDefinition, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	rows, err := exec.QueryContext(ctx,
		`SELECT id, step_key, order_index, mode FROM approval_flow_steps WHERE template_id = ? ORDER BY order_index`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow steps: %w", err)
	}
	defer rows.Close()

	var steps []flow.StepDefinition
	var stepIDs []int64
	for rows.Next() {
		var stepID int64
		var step flow.StepDefinition
		var mode string
		if err := rows.Scan(&stepID, &step.StepKey, &step.OrderIndex, &mode); err != nil {
			return nil, fmt.Errorf("failed to scan flow step: %w", err)
		}
		step.Mode = flow.Mode(mode)
		steps = append(steps, step)
		stepIDs = append(stepIDs, stepID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, stepID := range stepIDs {
		reviewerRows, err := exec.QueryContext(ctx,
			`SELECT reviewer_id FROM approval_step_reviewers WHERE step_id = ? ORDER BY position`,
			stepID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query step reviewers: %w", err)
		}
		var reviewers []string
		for reviewerRows.Next() {
			var reviewerID string
			if err := reviewerRows.Scan(&reviewerID); err != nil {
				reviewerRows.Close()
				return nil, fmt.Errorf("failed to scan step reviewer: %w", err)
			}
			reviewers = append(reviewers, reviewerID)
		}
		if err := reviewerRows.Err(); err != nil {
			reviewerRows.Close()
			return nil, err
		}
		reviewerRows.Close()
		steps[i].ReviewerIDs = reviewers
	}

	return steps, nil
}

// Verify interface compliance
var _ port.TemplateRepository = (*TemplateRepository)(nil)
