package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// DistributionRepository provides data access for the distribution and
// distribution_investor tables.
//
// Whole-record writes are a compare-and-swap on the revision column.
// Per-investor payment writes are row-level conditional updates and do not
// touch the revision, so reconciliation of one investor never clobbers another.
type DistributionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewDistributionRepository creates a new DistributionRepository with the provided database connection.
func NewDistributionRepository(db *sql.DB) *DistributionRepository {
	return &DistributionRepository{db: db}
}

// WithTx returns a copy of the repository that runs its statements inside tx.
func (r *DistributionRepository) WithTx(tx *sql.Tx) *DistributionRepository {
	return &DistributionRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *DistributionRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const distributionColumns = `
	id, spv_id, project_id, distribution_number, distribution_type, gross_proceeds,
	deductions, platform_fees, tds_rate, tds_amount, net_distributable_amount,
	distribution_per_share, total_shares, approvals, status, calculated_at, calculated_by,
	approved_at, processing_started_at, completed_at, closed_reason, batch_id, revision,
	created_at, updated_at`

const investorDistributionColumns = `
	investor_id, number_of_shares, ownership_percentage, gross_amount, tds_amount, net_amount,
	payment_status, transaction_id, utr, payment_date, payment_failure_reason`

// Insert stores a new distribution with its investor rows.
// Callers should pass a transaction-bound repository so both land together.
func (r *DistributionRepository) Insert(ctx context.Context, d *model.Distribution) error {
	deductions, platformFees, approvals, err := marshalDistributionJSON(d)
	if err != nil {
		return err
	}

	query := `INSERT INTO distribution (` + distributionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.getQuerier().ExecContext(ctx, query,
		d.ID,
		d.SPVID,
		d.ProjectID,
		d.DistributionNumber,
		string(d.DistributionType),
		d.GrossProceeds.String(),
		deductions,
		platformFees,
		d.TaxWithholding.TDSRate.String(),
		d.TaxWithholding.TDSAmount.String(),
		d.NetDistributableAmount.String(),
		d.DistributionPerShare.String(),
		d.TotalShares,
		approvals,
		string(d.Status),
		formatTimePtr(d.CalculatedAt),
		nullString(d.CalculatedBy),
		formatTimePtr(d.ApprovedAt),
		formatTimePtr(d.ProcessingStartedAt),
		formatTimePtr(d.CompletedAt),
		nullString(d.ClosedReason),
		nullString(d.BatchID),
		d.Revision,
		FormatTime(d.CreatedAt),
		FormatTime(d.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert distribution: %w", err)
	}

	return r.insertInvestors(ctx, d.ID, d.InvestorDistributions, d.UpdatedAt)
}

// Update writes every distribution field if the stored revision still equals
// d.Revision, then bumps d.Revision. Investor rows are not touched.
// Returns ErrConcurrentModification when another writer got there first.
func (r *DistributionRepository) Update(ctx context.Context, d *model.Distribution) error {
	deductions, platformFees, approvals, err := marshalDistributionJSON(d)
	if err != nil {
		return err
	}

	query := `
		UPDATE distribution SET
			distribution_type = ?, gross_proceeds = ?, deductions = ?, platform_fees = ?,
			tds_rate = ?, tds_amount = ?, net_distributable_amount = ?, distribution_per_share = ?,
			total_shares = ?, approvals = ?, status = ?, calculated_at = ?, calculated_by = ?,
			approved_at = ?, processing_started_at = ?, completed_at = ?, closed_reason = ?,
			batch_id = ?, revision = revision + 1, updated_at = ?
		WHERE id = ? AND revision = ?
	`

	result, err := r.getQuerier().ExecContext(ctx, query,
		string(d.DistributionType),
		d.GrossProceeds.String(),
		deductions,
		platformFees,
		d.TaxWithholding.TDSRate.String(),
		d.TaxWithholding.TDSAmount.String(),
		d.NetDistributableAmount.String(),
		d.DistributionPerShare.String(),
		d.TotalShares,
		approvals,
		string(d.Status),
		formatTimePtr(d.CalculatedAt),
		nullString(d.CalculatedBy),
		formatTimePtr(d.ApprovedAt),
		formatTimePtr(d.ProcessingStartedAt),
		formatTimePtr(d.CompletedAt),
		nullString(d.ClosedReason),
		nullString(d.BatchID),
		FormatTime(d.UpdatedAt),
		d.ID,
		d.Revision,
	)
	if err != nil {
		return fmt.Errorf("failed to update distribution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.getHeader(ctx, d.ID); err != nil {
			return err
		}
		return apperrors.ErrConcurrentModification
	}

	d.Revision++
	return nil
}

// ReplaceInvestors drops every investor row of the distribution and writes rows instead.
func (r *DistributionRepository) ReplaceInvestors(ctx context.Context, distributionID string, rows []model.InvestorDistribution, at time.Time) error {
	if _, err := r.getQuerier().ExecContext(ctx, `DELETE FROM distribution_investor WHERE distribution_id = ?`, distributionID); err != nil {
		return fmt.Errorf("failed to delete distribution_investor rows: %w", err)
	}
	return r.insertInvestors(ctx, distributionID, rows, at)
}

func (r *DistributionRepository) insertInvestors(ctx context.Context, distributionID string, rows []model.InvestorDistribution, at time.Time) error {
	query := `INSERT INTO distribution_investor (id, distribution_id, ` + investorDistributionColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, inv := range rows {
		_, err := r.getQuerier().ExecContext(ctx, query,
			uuid.New().String(),
			distributionID,
			inv.InvestorID,
			inv.NumberOfShares,
			inv.OwnershipPercentage.String(),
			inv.GrossAmount.String(),
			inv.TDSAmount.String(),
			inv.NetAmount.String(),
			string(inv.PaymentStatus),
			nullString(inv.TransactionID),
			nullString(inv.UTR),
			formatTimePtr(inv.PaymentDate),
			nullString(inv.PaymentFailureReason),
			FormatTime(at),
		)
		if err != nil {
			return fmt.Errorf("failed to insert distribution_investor for %s: %w", inv.InvestorID, err)
		}
	}
	return nil
}

// SetInvestorPayment writes the payment fields of one investor row, provided
// its current status is one of from. The match is on distribution and
// investor, so concurrent updates of different investors are independent.
//
// Returns ErrInvestorDistributionNotFound if the row does not exist and
// ErrInvalidTransition if it exists in another status.
func (r *DistributionRepository) SetInvestorPayment(ctx context.Context, distributionID string, inv model.InvestorDistribution, from ...model.PaymentStatus) error {
	if len(from) == 0 {
		return fmt.Errorf("at least one source payment status is required")
	}

	placeholders := make([]string, len(from))
	args := []any{
		string(inv.PaymentStatus),
		nullString(inv.TransactionID),
		nullString(inv.UTR),
		formatTimePtr(inv.PaymentDate),
		nullString(inv.PaymentFailureReason),
		FormatTime(time.Now()),
		distributionID,
		inv.InvestorID,
	}
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, string(s))
	}

	//#nosec G202 -- Safe: placeholders are generated programmatically, not from user input
	query := `
		UPDATE distribution_investor SET
			payment_status = ?, transaction_id = ?, utr = ?, payment_date = ?,
			payment_failure_reason = ?, updated_at = ?
		WHERE distribution_id = ? AND investor_id = ?
			AND payment_status IN (` + strings.Join(placeholders, ",") + `)
	`

	result, err := r.getQuerier().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update distribution_investor: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		current, err := r.GetInvestor(ctx, distributionID, inv.InvestorID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: payment for investor %s is %s", apperrors.ErrInvalidTransition, inv.InvestorID, current.PaymentStatus)
	}
	return nil
}

// GetInvestor returns one investor row of a distribution.
func (r *DistributionRepository) GetInvestor(ctx context.Context, distributionID, investorID string) (model.InvestorDistribution, error) {
	query := `SELECT ` + investorDistributionColumns + ` FROM distribution_investor WHERE distribution_id = ? AND investor_id = ?`

	inv, err := scanInvestorDistribution(r.getQuerier().QueryRowContext(ctx, query, distributionID, investorID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.InvestorDistribution{}, apperrors.ErrInvestorDistributionNotFound
	}
	if err != nil {
		return model.InvestorDistribution{}, err
	}
	return inv, nil
}

// Get retrieves a distribution with its investor rows, largest holding first.
// Returns ErrDistributionNotFound if no distribution matches.
func (r *DistributionRepository) Get(ctx context.Context, distributionID string) (*model.Distribution, error) {
	d, err := r.getHeader(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	if d.InvestorDistributions, err = r.listInvestors(ctx, d.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// ListBySPV returns the SPV's distributions, newest first, with their investor rows.
func (r *DistributionRepository) ListBySPV(ctx context.Context, spvID string) ([]model.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distribution WHERE spv_id = ? ORDER BY created_at DESC, id`

	rows, err := r.getQuerier().QueryContext(ctx, query, spvID)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution table: %w", err)
	}

	distributions := []model.Distribution{}
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		distributions = append(distributions, *d)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating distribution table: %w", err)
	}
	rows.Close()

	// Investor rows are loaded after the cursor is closed; a single-connection
	// pool cannot serve a nested query while rows are open.
	for i := range distributions {
		if distributions[i].InvestorDistributions, err = r.listInvestors(ctx, distributions[i].ID); err != nil {
			return nil, err
		}
	}
	return distributions, nil
}

func (r *DistributionRepository) getHeader(ctx context.Context, distributionID string) (*model.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distribution WHERE id = ?`

	d, err := scanDistribution(r.getQuerier().QueryRowContext(ctx, query, distributionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrDistributionNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DistributionRepository) listInvestors(ctx context.Context, distributionID string) ([]model.InvestorDistribution, error) {
	query := `SELECT ` + investorDistributionColumns + `
		FROM distribution_investor
		WHERE distribution_id = ?
		ORDER BY number_of_shares DESC, investor_id`

	rows, err := r.getQuerier().QueryContext(ctx, query, distributionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution_investor table: %w", err)
	}
	defer rows.Close()

	investors := []model.InvestorDistribution{}
	for rows.Next() {
		inv, err := scanInvestorDistribution(rows)
		if err != nil {
			return nil, err
		}
		investors = append(investors, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distribution_investor table: %w", err)
	}
	return investors, nil
}

func marshalDistributionJSON(d *model.Distribution) (string, string, string, error) {
	deductions, err := json.Marshal(d.Deductions)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode deductions: %w", err)
	}
	platformFees, err := json.Marshal(d.PlatformFees)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode platform fees: %w", err)
	}
	approvals, err := json.Marshal(d.Approvals)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode approvals: %w", err)
	}
	return string(deductions), string(platformFees), string(approvals), nil
}

func scanDistribution(row rowScanner) (*model.Distribution, error) {
	var d model.Distribution
	var distType, gross, deductions, platformFees, tdsRate, tdsAmount, net, perShare, approvals, status string
	var calculatedAt, calculatedBy, approvedAt, processingAt, completedAt, closedReason, batchID sql.NullString
	var createdStr, updatedStr string

	err := row.Scan(
		&d.ID,
		&d.SPVID,
		&d.ProjectID,
		&d.DistributionNumber,
		&distType,
		&gross,
		&deductions,
		&platformFees,
		&tdsRate,
		&tdsAmount,
		&net,
		&perShare,
		&d.TotalShares,
		&approvals,
		&status,
		&calculatedAt,
		&calculatedBy,
		&approvedAt,
		&processingAt,
		&completedAt,
		&closedReason,
		&batchID,
		&d.Revision,
		&createdStr,
		&updatedStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan distribution: %w", err)
	}

	d.DistributionType = model.DistributionType(distType)
	d.Status = model.DistributionStatus(status)
	d.CalculatedBy = calculatedBy.String
	d.ClosedReason = closedReason.String
	d.BatchID = batchID.String

	if d.GrossProceeds, err = parseDecimal("gross_proceeds", gross); err != nil {
		return nil, err
	}
	if d.TaxWithholding.TDSRate, err = parseDecimal("tds_rate", tdsRate); err != nil {
		return nil, err
	}
	if d.TaxWithholding.TDSAmount, err = parseDecimal("tds_amount", tdsAmount); err != nil {
		return nil, err
	}
	if d.NetDistributableAmount, err = parseDecimal("net_distributable_amount", net); err != nil {
		return nil, err
	}
	if d.DistributionPerShare, err = parseDecimal("distribution_per_share", perShare); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(deductions), &d.Deductions); err != nil {
		return nil, fmt.Errorf("%w: distribution %s deductions: %v", apperrors.ErrDataInconsistency, d.ID, err)
	}
	if err := json.Unmarshal([]byte(platformFees), &d.PlatformFees); err != nil {
		return nil, fmt.Errorf("%w: distribution %s platform fees: %v", apperrors.ErrDataInconsistency, d.ID, err)
	}
	if err := json.Unmarshal([]byte(approvals), &d.Approvals); err != nil {
		return nil, fmt.Errorf("%w: distribution %s approvals: %v", apperrors.ErrDataInconsistency, d.ID, err)
	}

	if d.CalculatedAt, err = parseNullTime(calculatedAt); err != nil {
		return nil, err
	}
	if d.ApprovedAt, err = parseNullTime(approvedAt); err != nil {
		return nil, err
	}
	if d.ProcessingStartedAt, err = parseNullTime(processingAt); err != nil {
		return nil, err
	}
	if d.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = ParseTime(createdStr); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = ParseTime(updatedStr); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanInvestorDistribution(row rowScanner) (model.InvestorDistribution, error) {
	var inv model.InvestorDistribution
	var ownership, gross, tds, net, status string
	var transactionID, utr, paymentDate, failureReason sql.NullString

	err := row.Scan(
		&inv.InvestorID,
		&inv.NumberOfShares,
		&ownership,
		&gross,
		&tds,
		&net,
		&status,
		&transactionID,
		&utr,
		&paymentDate,
		&failureReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return inv, err
	}
	if err != nil {
		return inv, fmt.Errorf("failed to scan distribution_investor: %w", err)
	}

	inv.PaymentStatus = model.PaymentStatus(status)
	inv.TransactionID = transactionID.String
	inv.UTR = utr.String
	inv.PaymentFailureReason = failureReason.String

	if inv.OwnershipPercentage, err = parseDecimal("ownership_percentage", ownership); err != nil {
		return inv, err
	}
	if inv.GrossAmount, err = parseDecimal("gross_amount", gross); err != nil {
		return inv, err
	}
	if inv.TDSAmount, err = parseDecimal("tds_amount", tds); err != nil {
		return inv, err
	}
	if inv.NetAmount, err = parseDecimal("net_amount", net); err != nil {
		return inv, err
	}
	if inv.PaymentDate, err = parseNullTime(paymentDate); err != nil {
		return inv, err
	}
	return inv, nil
}
