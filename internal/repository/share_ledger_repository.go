package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// ShareLedgerRepository provides data access for the share_ledger table.
// Entries are keyed by (spv_id, investor_id) and updated in place.
type ShareLedgerRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewShareLedgerRepository creates a new ShareLedgerRepository with the provided database connection.
func NewShareLedgerRepository(db *sql.DB) *ShareLedgerRepository {
	return &ShareLedgerRepository{db: db}
}

// WithTx returns a copy of the repository that runs its statements inside tx.
func (r *ShareLedgerRepository) WithTx(tx *sql.Tx) *ShareLedgerRepository {
	return &ShareLedgerRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *ShareLedgerRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const shareLedgerColumns = `
	id, spv_id, project_id, investor_id, investment_amount, equity_percentage,
	number_of_shares, face_value_per_share, premium_per_share, total_investment_pool,
	status, created_at, updated_at`

// Upsert creates the entry for (SPVID, InvestorID) or overwrites its figures in place.
//
// The update only fires when a stored figure differs, so re-running an
// unchanged allocation leaves the row (including updated_at) untouched.
// Status is never written on conflict: re-allocation must not undo a signed agreement.
func (r *ShareLedgerRepository) Upsert(ctx context.Context, e *model.ShareLedgerEntry) error {
	query := `
		INSERT INTO share_ledger (` + shareLedgerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(spv_id, investor_id) DO UPDATE SET
			project_id = excluded.project_id,
			investment_amount = excluded.investment_amount,
			equity_percentage = excluded.equity_percentage,
			number_of_shares = excluded.number_of_shares,
			face_value_per_share = excluded.face_value_per_share,
			premium_per_share = excluded.premium_per_share,
			total_investment_pool = excluded.total_investment_pool,
			updated_at = excluded.updated_at
		WHERE share_ledger.project_id IS NOT excluded.project_id
			OR share_ledger.investment_amount IS NOT excluded.investment_amount
			OR share_ledger.equity_percentage IS NOT excluded.equity_percentage
			OR share_ledger.number_of_shares IS NOT excluded.number_of_shares
			OR share_ledger.face_value_per_share IS NOT excluded.face_value_per_share
			OR share_ledger.premium_per_share IS NOT excluded.premium_per_share
			OR share_ledger.total_investment_pool IS NOT excluded.total_investment_pool
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		e.ID,
		e.SPVID,
		e.ProjectID,
		e.InvestorID,
		e.InvestmentAmount.String(),
		e.EquityPercentage.String(),
		e.NumberOfShares,
		e.FaceValuePerShare.String(),
		e.PremiumPerShare.String(),
		e.TotalInvestmentPool.String(),
		string(e.Status),
		FormatTime(e.CreatedAt),
		FormatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert share_ledger entry: %w", err)
	}
	return nil
}

// Get returns the entry for one SPV/investor pair.
func (r *ShareLedgerRepository) Get(ctx context.Context, spvID, investorID string) (model.ShareLedgerEntry, error) {
	query := `SELECT ` + shareLedgerColumns + ` FROM share_ledger WHERE spv_id = ? AND investor_id = ?`

	entry, err := scanShareLedgerEntry(r.getQuerier().QueryRowContext(ctx, query, spvID, investorID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ShareLedgerEntry{}, apperrors.ErrShareholdingNotFound
	}
	if err != nil {
		return model.ShareLedgerEntry{}, err
	}
	return entry, nil
}

// ListBySPV returns every entry for the SPV, largest equity first.
// Ties are broken by investor ID so the order is stable.
func (r *ShareLedgerRepository) ListBySPV(ctx context.Context, spvID string) ([]model.ShareLedgerEntry, error) {
	query := `SELECT ` + shareLedgerColumns + ` FROM share_ledger WHERE spv_id = ?`

	entries, err := r.list(ctx, query, spvID)
	if err != nil {
		return nil, err
	}

	// equity_percentage is stored as decimal text, so it cannot be ordered in SQL.
	sort.SliceStable(entries, func(i, j int) bool {
		if c := entries[i].EquityPercentage.Cmp(entries[j].EquityPercentage); c != 0 {
			return c > 0
		}
		return entries[i].InvestorID < entries[j].InvestorID
	})
	return entries, nil
}

// ListBySPVProject returns the entries written by allocations of projectID into spvID.
func (r *ShareLedgerRepository) ListBySPVProject(ctx context.Context, spvID, projectID string) ([]model.ShareLedgerEntry, error) {
	query := `SELECT ` + shareLedgerColumns + ` FROM share_ledger WHERE spv_id = ? AND project_id = ? ORDER BY investor_id`
	return r.list(ctx, query, spvID, projectID)
}

// ListByInvestor returns the investor's holdings across SPVs, newest first.
func (r *ShareLedgerRepository) ListByInvestor(ctx context.Context, investorID string) ([]model.ShareLedgerEntry, error) {
	query := `SELECT ` + shareLedgerColumns + ` FROM share_ledger WHERE investor_id = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, investorID)
}

// ListShareholders returns the ledger rows of (spvID, projectID) in shareholder form.
// InvestorID is empty for rows whose investor no longer exists.
func (r *ShareLedgerRepository) ListShareholders(ctx context.Context, spvID, projectID string) ([]model.Shareholder, error) {
	query := `
		SELECT COALESCE(i.id, ''), sl.number_of_shares, sl.equity_percentage
		FROM share_ledger sl
		LEFT JOIN investor i ON i.id = sl.investor_id AND i.deleted_at IS NULL
		WHERE sl.spv_id = ? AND sl.project_id = ?
		ORDER BY sl.investor_id
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, spvID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query share_ledger shareholders: %w", err)
	}
	defer rows.Close()

	holders := []model.Shareholder{}
	for rows.Next() {
		var h model.Shareholder
		var equityStr string
		if err := rows.Scan(&h.InvestorID, &h.NumberOfShares, &equityStr); err != nil {
			return nil, fmt.Errorf("failed to scan share_ledger shareholder: %w", err)
		}
		equity, err := parseDecimal("equity_percentage", equityStr)
		if err != nil {
			return nil, err
		}
		h.EquityPercentage = &equity
		holders = append(holders, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating share_ledger shareholders: %w", err)
	}
	return holders, nil
}

// Delete removes the entry for (spvID, investorID) while it is still in status.
// Returns ErrShareholdingNotFound if no such entry exists and
// ErrInvalidTransition if it has moved on.
func (r *ShareLedgerRepository) Delete(ctx context.Context, spvID, investorID string, status model.ShareholdingStatus) error {
	query := `DELETE FROM share_ledger WHERE spv_id = ? AND investor_id = ? AND status = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, spvID, investorID, string(status))
	if err != nil {
		return fmt.Errorf("failed to delete share_ledger entry: %w", err)
	}
	if err := checkAffected(result, apperrors.ErrInvalidTransition); err != nil {
		if _, getErr := r.Get(ctx, spvID, investorID); getErr != nil {
			return getErr
		}
		return err
	}
	return nil
}

// AdvanceStatus moves an entry from one status to the next. The update only
// applies when the stored status equals from, so concurrent callers cannot
// skip or repeat a step.
func (r *ShareLedgerRepository) AdvanceStatus(ctx context.Context, spvID, investorID string, from, to model.ShareholdingStatus, at time.Time) error {
	query := `
		UPDATE share_ledger SET status = ?, updated_at = ?
		WHERE spv_id = ? AND investor_id = ? AND status = ?
	`

	result, err := r.getQuerier().ExecContext(ctx, query, string(to), FormatTime(at), spvID, investorID, string(from))
	if err != nil {
		return fmt.Errorf("failed to update share_ledger status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.Get(ctx, spvID, investorID); err != nil {
			return err
		}
		return fmt.Errorf("%w: shareholding is not %s", apperrors.ErrInvalidTransition, from)
	}
	return nil
}

func (r *ShareLedgerRepository) list(ctx context.Context, query string, args ...any) ([]model.ShareLedgerEntry, error) {
	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query share_ledger table: %w", err)
	}
	defer rows.Close()

	entries := []model.ShareLedgerEntry{}
	for rows.Next() {
		e, err := scanShareLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating share_ledger table: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShareLedgerEntry(row rowScanner) (model.ShareLedgerEntry, error) {
	var e model.ShareLedgerEntry
	var investment, equity, faceValue, premium, pool, status, createdStr, updatedStr string

	err := row.Scan(
		&e.ID,
		&e.SPVID,
		&e.ProjectID,
		&e.InvestorID,
		&investment,
		&equity,
		&e.NumberOfShares,
		&faceValue,
		&premium,
		&pool,
		&status,
		&createdStr,
		&updatedStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return e, err
	}
	if err != nil {
		return e, fmt.Errorf("failed to scan share_ledger entry: %w", err)
	}

	e.Status = model.ShareholdingStatus(status)
	if e.InvestmentAmount, err = parseDecimal("investment_amount", investment); err != nil {
		return e, err
	}
	if e.EquityPercentage, err = parseDecimal("equity_percentage", equity); err != nil {
		return e, err
	}
	if e.FaceValuePerShare, err = parseDecimal("face_value_per_share", faceValue); err != nil {
		return e, err
	}
	if e.PremiumPerShare, err = parseDecimal("premium_per_share", premium); err != nil {
		return e, err
	}
	if e.TotalInvestmentPool, err = parseDecimal("total_investment_pool", pool); err != nil {
		return e, err
	}
	if e.CreatedAt, err = ParseTime(createdStr); err != nil {
		return e, err
	}
	if e.UpdatedAt, err = ParseTime(updatedStr); err != nil {
		return e, err
	}
	return e, nil
}
