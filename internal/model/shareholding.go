package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShareholdingStatus tracks a ledger entry through agreement signing.
// Status only moves forward: distributed -> agreement_signed -> completed.
type ShareholdingStatus string

const (
	ShareholdingDistributed     ShareholdingStatus = "distributed"
	ShareholdingAgreementSigned ShareholdingStatus = "agreement_signed"
	ShareholdingCompleted       ShareholdingStatus = "completed"
)

// ShareLedgerEntry is the equity one investor holds in one SPV.
// (SPVID, InvestorID) is unique; re-allocation overwrites the entry in place.
type ShareLedgerEntry struct {
	ID                  string             `json:"id"`
	SPVID               string             `json:"spvId"`
	ProjectID           string             `json:"projectId"`
	InvestorID          string             `json:"investorId"`
	InvestmentAmount    decimal.Decimal    `json:"investmentAmount"`
	EquityPercentage    decimal.Decimal    `json:"equityPercentage"`    // investmentAmount / totalInvestmentPool * 100, unrounded
	NumberOfShares      int64              `json:"numberOfShares"`      // floor(investmentAmount / faceValuePerShare)
	FaceValuePerShare   decimal.Decimal    `json:"faceValuePerShare"`   // Nominal price per share
	PremiumPerShare     decimal.Decimal    `json:"premiumPerShare"`     // Derived, informational only
	TotalInvestmentPool decimal.Decimal    `json:"totalInvestmentPool"` // Denominator shared by every entry of one allocation run
	Status              ShareholdingStatus `json:"status"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// Shareholder is the uniform shape every shareholder source yields to the
// distribution calculator. InvestorID is empty when the stored reference
// could not be resolved to a live investor. EquityPercentage is nil when the
// source does not store one.
type Shareholder struct {
	InvestorID       string
	NumberOfShares   int64
	EquityPercentage *decimal.Decimal
}

// AllocationOutcome distinguishes a completed allocation from the two
// empty-input no-ops.
type AllocationOutcome string

const (
	AllocationAllocated   AllocationOutcome = "allocated"
	AllocationNoInvestors AllocationOutcome = "no_investors"
	AllocationZeroPool    AllocationOutcome = "zero_pool"
)

// AgreementStatus is the per-investor result of the agreement/e-sign step.
type AgreementStatus string

const (
	AgreementInitiated AgreementStatus = "initiated"
	AgreementSkipped   AgreementStatus = "skipped"
	AgreementFailed    AgreementStatus = "failed"
)

// AgreementOutcome reports what happened to one investor's agreement.
type AgreementOutcome struct {
	InvestorID string          `json:"investorId"`
	Status     AgreementStatus `json:"status"`
	RequestID  string          `json:"requestId,omitempty"`
	SigningURL string          `json:"signingUrl,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// AllocationResult is returned by the equity allocator. Entries is empty for
// the no-op outcomes; Agreements holds one outcome per allocated investor.
type AllocationResult struct {
	SPVID               string             `json:"spvId"`
	ProjectID           string             `json:"projectId"`
	Outcome             AllocationOutcome  `json:"outcome"`
	TotalInvestmentPool decimal.Decimal    `json:"totalInvestmentPool"`
	Entries             []ShareLedgerEntry `json:"entries"`
	Agreements          []AgreementOutcome `json:"agreements"`
	// RemovedInvestors lists investors whose entries this run deleted because
	// they no longer hold settled payments.
	RemovedInvestors    []string           `json:"removedInvestors,omitempty"`
}

// AgreementFailures counts investors whose agreement step failed.
func (r AllocationResult) AgreementFailures() int {
	n := 0
	for _, a := range r.Agreements {
		if a.Status == AgreementFailed {
			n++
		}
	}
	return n
}
