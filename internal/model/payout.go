package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankDetails is an investor's active payout account, decrypted.
type BankDetails struct {
	InvestorID        string `json:"investorId"`
	AccountNumber     string `json:"accountNumber"`
	IFSC              string `json:"ifsc"`
	AccountHolderName string `json:"accountHolderName"`
	BankName          string `json:"bankName"`
}

// PayoutInstruction is one line of a bank batch.
type PayoutInstruction struct {
	InvestorID        string          `json:"investorId"`
	Amount            decimal.Decimal `json:"amount"`
	AccountNumber     string          `json:"accountNumber"`
	IFSC              string          `json:"ifsc"`
	AccountHolderName string          `json:"accountHolderName"`
	BankName          string          `json:"bankName"`
	Reference         string          `json:"reference"`
}

// PayoutResultStatus is the bank's verdict on one payout line.
type PayoutResultStatus string

const (
	PayoutSuccess PayoutResultStatus = "success"
	PayoutFailed  PayoutResultStatus = "failed"
	PayoutPending PayoutResultStatus = "pending"
)

// PayoutResult is the bank's per-investor response.
type PayoutResult struct {
	InvestorID    string             `json:"investorId"`
	Status        PayoutResultStatus `json:"status"`
	UTR           string             `json:"utr,omitempty"`
	TransactionID string             `json:"transactionId,omitempty"`
	FailureReason string             `json:"failureReason,omitempty"`
	ProcessedAt   time.Time          `json:"processedAt"`
}

// BatchSubmission is the bank's response to a batch call.
type BatchSubmission struct {
	BatchID string         `json:"batchId"`
	Results []PayoutResult `json:"results"`
}

// PayoutOutcome is the reconciled state of one investor after a batch.
type PayoutOutcome struct {
	InvestorID    string        `json:"investorId"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	UTR           string        `json:"utr,omitempty"`
	FailureReason string        `json:"failureReason,omitempty"`
}

// BatchResult summarises one ProcessBatch call. Submitted is zero when no
// investor row was eligible.
type BatchResult struct {
	DistributionID string             `json:"distributionId"`
	BatchID        string             `json:"batchId,omitempty"`
	Submitted      int                `json:"submitted"`
	Succeeded      int                `json:"succeeded"`
	Failed         int                `json:"failed"`
	Outcomes       []PayoutOutcome    `json:"outcomes"`
	Status         DistributionStatus `json:"status"`
}
