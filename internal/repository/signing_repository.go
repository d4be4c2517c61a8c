package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// SigningRepository provides data access for the signing_request table.
type SigningRepository struct {
	db *sql.DB
}

// NewSigningRepository creates a new SigningRepository with the provided database connection.
func NewSigningRepository(db *sql.DB) *SigningRepository {
	return &SigningRepository{db: db}
}

const signingColumns = `id, request_id, spv_id, investor_id, document_url, signing_url, status, expires_at, signed_at, created_at`

// Insert stores a new signing request.
func (r *SigningRepository) Insert(ctx context.Context, s model.SigningRequest) error {
	query := `INSERT INTO signing_request (` + signingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.RequestID,
		s.SPVID,
		s.InvestorID,
		s.DocumentURL,
		s.SigningURL,
		string(s.Status),
		formatTimePtr(s.ExpiresAt),
		formatTimePtr(s.SignedAt),
		FormatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert signing_request: %w", err)
	}
	return nil
}

// GetByRequestID looks a request up by the provider's request ID.
func (r *SigningRepository) GetByRequestID(ctx context.Context, requestID string) (model.SigningRequest, error) {
	query := `SELECT ` + signingColumns + ` FROM signing_request WHERE request_id = ?`

	s, err := scanSigningRequest(r.db.QueryRowContext(ctx, query, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.SigningRequest{}, apperrors.ErrSigningRequestNotFound
	}
	return s, err
}

// HasOpenRequest reports whether the investor has a pending or signed request for the SPV.
func (r *SigningRepository) HasOpenRequest(ctx context.Context, spvID, investorID string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM signing_request
		WHERE spv_id = ? AND investor_id = ? AND status IN (?, ?)
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, spvID, investorID,
		string(model.SigningPending), string(model.SigningSigned)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count signing requests: %w", err)
	}
	return count > 0, nil
}

// Resolve moves a pending request to a final status.
// Returns ErrInvalidTransition if the request is no longer pending.
func (r *SigningRepository) Resolve(ctx context.Context, requestID string, status model.SigningStatus, signedAt *time.Time) error {
	query := `
		UPDATE signing_request SET status = ?, signed_at = ?
		WHERE request_id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, string(status), formatTimePtr(signedAt), requestID, string(model.SigningPending))
	if err != nil {
		return fmt.Errorf("failed to update signing_request: %w", err)
	}
	if err := checkAffected(result, apperrors.ErrInvalidTransition); err != nil {
		if _, getErr := r.GetByRequestID(ctx, requestID); getErr != nil {
			return getErr
		}
		return err
	}
	return nil
}

// ExpirePending marks every pending request whose deadline is before now as expired.
// Returns the number of requests expired.
func (r *SigningRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE signing_request SET status = ?
		WHERE status = ? AND expires_at IS NOT NULL AND expires_at < ?
	`

	result, err := r.db.ExecContext(ctx, query, string(model.SigningExpired), string(model.SigningPending), FormatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to expire signing requests: %w", err)
	}
	return result.RowsAffected()
}

// ExpireOpen marks the investor's pending requests for the SPV as expired,
// whatever their deadline. Returns the number of requests expired.
func (r *SigningRepository) ExpireOpen(ctx context.Context, spvID, investorID string) (int64, error) {
	query := `
		UPDATE signing_request SET status = ?
		WHERE spv_id = ? AND investor_id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, string(model.SigningExpired), spvID, investorID, string(model.SigningPending))
	if err != nil {
		return 0, fmt.Errorf("failed to expire signing requests: %w", err)
	}
	return result.RowsAffected()
}

func scanSigningRequest(row rowScanner) (model.SigningRequest, error) {
	var s model.SigningRequest
	var status, createdStr string
	var expiresAt, signedAt sql.NullString

	err := row.Scan(
		&s.ID,
		&s.RequestID,
		&s.SPVID,
		&s.InvestorID,
		&s.DocumentURL,
		&s.SigningURL,
		&status,
		&expiresAt,
		&signedAt,
		&createdStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if err != nil {
		return s, fmt.Errorf("failed to scan signing_request: %w", err)
	}

	s.Status = model.SigningStatus(status)
	if s.ExpiresAt, err = parseNullTime(expiresAt); err != nil {
		return s, err
	}
	if s.SignedAt, err = parseNullTime(signedAt); err != nil {
		return s, err
	}
	if s.CreatedAt, err = ParseTime(createdStr); err != nil {
		return s, err
	}
	return s, nil
}
