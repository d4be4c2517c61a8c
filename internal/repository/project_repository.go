package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// ProjectRepository provides data access for the project table.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new ProjectRepository with the provided database connection.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// GetProject retrieves a project by ID.
// Returns ErrProjectNotFound if no project matches.
func (r *ProjectRepository) GetProject(ctx context.Context, projectID string) (model.Project, error) {
	query := `
		SELECT id, name, status, approvals, rejection_reason, created_at, updated_at
		FROM project
		WHERE id = ?
	`

	var p model.Project
	var status, approvals, createdStr, updatedStr string
	var rejection sql.NullString

	err := r.db.QueryRowContext(ctx, query, projectID).Scan(
		&p.ID,
		&p.Name,
		&status,
		&approvals,
		&rejection,
		&createdStr,
		&updatedStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, apperrors.ErrProjectNotFound
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("failed to query project table: %w", err)
	}

	p.Status = model.ProjectStatus(status)
	p.RejectionReason = rejection.String
	if err := json.Unmarshal([]byte(approvals), &p.Approvals); err != nil {
		return model.Project{}, fmt.Errorf("failed to parse project approvals: %w", err)
	}
	if p.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.Project{}, err
	}
	if p.UpdatedAt, err = ParseTime(updatedStr); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// UpdateStatus writes the project's status, approvals and rejection reason,
// provided the stored status still equals from.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, p model.Project, from model.ProjectStatus) error {
	approvals, err := json.Marshal(p.Approvals)
	if err != nil {
		return fmt.Errorf("failed to encode project approvals: %w", err)
	}

	query := `
		UPDATE project SET status = ?, approvals = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(p.Status),
		string(approvals),
		nullString(p.RejectionReason),
		FormatTime(p.UpdatedAt),
		p.ID,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return checkAffected(result, apperrors.ErrConcurrentModification)
}
