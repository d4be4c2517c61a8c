package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// SPVRepository provides data access for the spv and investor tables.
type SPVRepository struct {
	db *sql.DB
}

// NewSPVRepository creates a new SPVRepository with the provided database connection.
func NewSPVRepository(db *sql.DB) *SPVRepository {
	return &SPVRepository{db: db}
}

// GetSPV retrieves an SPV by ID.
// Returns ErrSPVNotFound if no SPV matches.
func (r *SPVRepository) GetSPV(ctx context.Context, spvID string) (model.SPV, error) {
	query := `
		SELECT id, name, project_id, face_value_per_share, authorized_capital, max_investors, created_at
		FROM spv
		WHERE id = ?
	`

	var s model.SPV
	var projectID, faceValue, authorized sql.NullString
	var createdStr string

	err := r.db.QueryRowContext(ctx, query, spvID).Scan(
		&s.ID,
		&s.Name,
		&projectID,
		&faceValue,
		&authorized,
		&s.MaxInvestors,
		&createdStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SPV{}, apperrors.ErrSPVNotFound
	}
	if err != nil {
		return model.SPV{}, fmt.Errorf("failed to query spv table: %w", err)
	}

	if projectID.Valid {
		s.ProjectID = projectID.String
	}
	if s.FaceValuePerShare, err = parseNullDecimal("face_value_per_share", faceValue); err != nil {
		return model.SPV{}, err
	}
	if s.AuthorizedCapital, err = parseNullDecimal("authorized_capital", authorized); err != nil {
		return model.SPV{}, err
	}
	if s.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.SPV{}, err
	}
	return s, nil
}

// GetInvestor retrieves a live investor by ID.
// Returns ErrInvestorNotFound for unknown or soft-deleted investors.
func (r *SPVRepository) GetInvestor(ctx context.Context, investorID string) (model.Investor, error) {
	query := `
		SELECT id, name, email, kyc_verified, created_at
		FROM investor
		WHERE id = ? AND deleted_at IS NULL
	`

	var inv model.Investor
	var createdStr string

	err := r.db.QueryRowContext(ctx, query, investorID).Scan(
		&inv.ID,
		&inv.Name,
		&inv.Email,
		&inv.KYCVerified,
		&createdStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Investor{}, apperrors.ErrInvestorNotFound
	}
	if err != nil {
		return model.Investor{}, fmt.Errorf("failed to query investor table: %w", err)
	}

	if inv.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.Investor{}, err
	}
	return inv, nil
}
