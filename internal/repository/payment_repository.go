package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// PaymentRepository reads subscription payments recorded by the payment gateway.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new PaymentRepository with the provided database connection.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListSettledPayments returns the captured payments of a project in settlement order.
func (r *PaymentRepository) ListSettledPayments(ctx context.Context, projectID string) ([]model.InvestorPayment, error) {
	query := `
		SELECT id, investor_id, project_id, amount_settled, settled_at
		FROM investor_payment
		WHERE project_id = ? AND status = ?
		ORDER BY settled_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, projectID, model.PaymentCaptureCaptured)
	if err != nil {
		return nil, fmt.Errorf("failed to query investor_payment table: %w", err)
	}
	defer rows.Close()

	payments := []model.InvestorPayment{}
	for rows.Next() {
		var p model.InvestorPayment
		var amountStr string
		var settledStr sql.NullString

		if err := rows.Scan(&p.ID, &p.InvestorID, &p.ProjectID, &amountStr, &settledStr); err != nil {
			return nil, fmt.Errorf("failed to scan investor_payment results: %w", err)
		}

		if p.AmountSettled, err = parseDecimal("amount_settled", amountStr); err != nil {
			return nil, err
		}
		settled, err := parseNullTime(settledStr)
		if err != nil {
			return nil, err
		}
		if settled != nil {
			p.SettledAt = *settled
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investor_payment table: %w", err)
	}
	return payments, nil
}
