package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// CapTableRepository reads the legacy spv_cap_table, which predates the share
// ledger and stores share counts only.
type CapTableRepository struct {
	db *sql.DB
}

// NewCapTableRepository creates a new CapTableRepository with the provided database connection.
func NewCapTableRepository(db *sql.DB) *CapTableRepository {
	return &CapTableRepository{db: db}
}

// ListShareholders returns the cap table rows of the SPV. EquityPercentage is
// always nil; InvestorID is empty when the row has no live investor.
func (r *CapTableRepository) ListShareholders(ctx context.Context, spvID string) ([]model.Shareholder, error) {
	query := `
		SELECT COALESCE(i.id, ''), c.number_of_shares
		FROM spv_cap_table c
		LEFT JOIN investor i ON i.id = c.investor_id AND i.deleted_at IS NULL
		WHERE c.spv_id = ?
		ORDER BY c.created_at, c.id
	`

	rows, err := r.db.QueryContext(ctx, query, spvID)
	if err != nil {
		return nil, fmt.Errorf("failed to query spv_cap_table: %w", err)
	}
	defer rows.Close()

	holders := []model.Shareholder{}
	for rows.Next() {
		var h model.Shareholder
		if err := rows.Scan(&h.InvestorID, &h.NumberOfShares); err != nil {
			return nil, fmt.Errorf("failed to scan spv_cap_table row: %w", err)
		}
		holders = append(holders, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spv_cap_table: %w", err)
	}
	return holders, nil
}
