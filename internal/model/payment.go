package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCaptureStatus values written by the payment-gateway integration.
// Only captured payments count towards equity.
const (
	PaymentCaptureCreated  = "created"
	PaymentCaptureCaptured = "captured"
	PaymentCaptureFailed   = "failed"
)

// InvestorPayment is a settled subscription payment. Immutable once captured.
type InvestorPayment struct {
	ID            string          `json:"id"`
	InvestorID    string          `json:"investorId"`
	ProjectID     string          `json:"projectId"`
	AmountSettled decimal.Decimal `json:"amountSettled"`
	SettledAt     time.Time       `json:"settledAt"`
}
