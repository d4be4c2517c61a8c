package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistributionType classifies the proceeds event being distributed.
type DistributionType string

const (
	DistributionSaleProceeds    DistributionType = "sale_proceeds"
	DistributionDividend        DistributionType = "dividend"
	DistributionRentalIncome    DistributionType = "rental_income"
	DistributionReturnOfCapital DistributionType = "return_of_capital"
	DistributionLiquidation     DistributionType = "liquidation"
	DistributionOther           DistributionType = "other"
)

// ValidDistributionTypes contains the allowed distribution type values.
var ValidDistributionTypes = map[DistributionType]bool{
	DistributionSaleProceeds:    true,
	DistributionDividend:        true,
	DistributionRentalIncome:    true,
	DistributionReturnOfCapital: true,
	DistributionLiquidation:     true,
	DistributionOther:           true,
}

// DistributionStatus is the aggregate state of a distribution.
type DistributionStatus string

const (
	DistributionStatusDraft       DistributionStatus = "draft"
	DistributionStatusCalculated  DistributionStatus = "calculated"
	DistributionStatusUnderReview DistributionStatus = "under_review"
	DistributionStatusApproved    DistributionStatus = "approved"
	DistributionStatusProcessing  DistributionStatus = "processing"
	DistributionStatusCompleted   DistributionStatus = "completed"
	DistributionStatusFailed      DistributionStatus = "failed"
	DistributionStatusCancelled   DistributionStatus = "cancelled"
)

// PaymentStatus is the payout state of a single investor row.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentInitiated  PaymentStatus = "initiated"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

// Deductions are the cost buckets taken off gross proceeds.
// Total is derived from the buckets and recomputed on every mutation.
type Deductions struct {
	BrokerageFees    decimal.Decimal `json:"brokerageFees"`
	LegalFees        decimal.Decimal `json:"legalFees"`
	StampDuty        decimal.Decimal `json:"stampDuty"`
	RegistrationFees decimal.Decimal `json:"registrationFees"`
	CapitalGainsTax  decimal.Decimal `json:"capitalGainsTax"`
	OtherExpenses    decimal.Decimal `json:"otherExpenses"`
	TotalDeductions  decimal.Decimal `json:"totalDeductions"`
}

// Sum adds up the buckets, ignoring any stored total.
func (d Deductions) Sum() decimal.Decimal {
	return decimal.Sum(d.BrokerageFees, d.LegalFees, d.StampDuty,
		d.RegistrationFees, d.CapitalGainsTax, d.OtherExpenses)
}

// WithTotal returns a copy whose TotalDeductions equals Sum().
func (d Deductions) WithTotal() Deductions {
	d.TotalDeductions = d.Sum()
	return d
}

// PlatformFees are the platform's charges on a distribution.
type PlatformFees struct {
	ManagementFee     decimal.Decimal `json:"managementFee"`
	PerformanceFee    decimal.Decimal `json:"performanceFee"`
	TransactionFee    decimal.Decimal `json:"transactionFee"`
	OtherFees         decimal.Decimal `json:"otherFees"`
	TotalPlatformFees decimal.Decimal `json:"totalPlatformFees"`
}

// Sum adds up the fee buckets, ignoring any stored total.
func (f PlatformFees) Sum() decimal.Decimal {
	return decimal.Sum(f.ManagementFee, f.PerformanceFee, f.TransactionFee, f.OtherFees)
}

// WithTotal returns a copy whose TotalPlatformFees equals Sum().
func (f PlatformFees) WithTotal() PlatformFees {
	f.TotalPlatformFees = f.Sum()
	return f
}

// TaxWithholding holds the TDS rate (percent) and the aggregate TDS amount.
type TaxWithholding struct {
	TDSRate   decimal.Decimal `json:"tdsRate"`
	TDSAmount decimal.Decimal `json:"tdsAmount"`
}

// Approval is one sign-off in a multi-role gate.
type Approval struct {
	Approved   bool       `json:"approved"`
	ApprovedBy string     `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	Comments   string     `json:"comments,omitempty"`
}

// ApprovalRole names a role allowed to sign off a gate.
type ApprovalRole string

const (
	RoleAssetManager ApprovalRole = "asset_manager"
	RoleCompliance   ApprovalRole = "compliance"
	RoleAdmin        ApprovalRole = "admin"
)

// ValidApprovalRoles contains the roles accepted by the approval endpoints.
var ValidApprovalRoles = map[ApprovalRole]bool{
	RoleAssetManager: true,
	RoleCompliance:   true,
	RoleAdmin:        true,
}

// DistributionApprovals are the three independent distribution sign-offs.
type DistributionApprovals struct {
	AssetManager Approval `json:"assetManagerApproval"`
	Compliance   Approval `json:"complianceApproval"`
	Admin        Approval `json:"adminApproval"`
}

// AllGranted reports whether all three approvals are granted.
func (a DistributionApprovals) AllGranted() bool {
	return a.AssetManager.Approved && a.Compliance.Approved && a.Admin.Approved
}

// For returns a pointer to the approval slot for role, or nil for an unknown role.
func (a *DistributionApprovals) For(role ApprovalRole) *Approval {
	switch role {
	case RoleAssetManager:
		return &a.AssetManager
	case RoleCompliance:
		return &a.Compliance
	case RoleAdmin:
		return &a.Admin
	}
	return nil
}

// AnyGranted reports whether at least one approval is granted.
func (a DistributionApprovals) AnyGranted() bool {
	return a.AssetManager.Approved || a.Compliance.Approved || a.Admin.Approved
}

// InvestorDistribution is one investor's share of a distribution and its payout state.
type InvestorDistribution struct {
	InvestorID           string          `json:"investorId"`
	NumberOfShares       int64           `json:"numberOfShares"`
	OwnershipPercentage  decimal.Decimal `json:"ownershipPercentage"`
	GrossAmount          decimal.Decimal `json:"grossAmount"` // numberOfShares * distributionPerShare
	TDSAmount            decimal.Decimal `json:"tdsAmount"`   // grossAmount * tdsRate / 100
	NetAmount            decimal.Decimal `json:"netAmount"`
	PaymentStatus        PaymentStatus   `json:"paymentStatus"`
	TransactionID        string          `json:"transactionId,omitempty"`
	UTR                  string          `json:"utr,omitempty"`
	PaymentDate          *time.Time      `json:"paymentDate,omitempty"`
	PaymentFailureReason string          `json:"paymentFailureReason,omitempty"`
}

// Distribution is one proceeds event for an SPV and its waterfall.
type Distribution struct {
	ID                     string                 `json:"id"`
	SPVID                  string                 `json:"spvId"`
	ProjectID              string                 `json:"projectId"`
	DistributionNumber     string                 `json:"distributionNumber"`
	DistributionType       DistributionType       `json:"distributionType"`
	GrossProceeds          decimal.Decimal        `json:"grossProceeds"`
	Deductions             Deductions             `json:"deductions"`
	PlatformFees           PlatformFees           `json:"platformFees"`
	TaxWithholding         TaxWithholding         `json:"taxWithholding"`
	NetDistributableAmount decimal.Decimal        `json:"netDistributableAmount"`
	DistributionPerShare   decimal.Decimal        `json:"distributionPerShare"`
	TotalShares            int64                  `json:"totalShares"`
	InvestorDistributions  []InvestorDistribution `json:"investorDistributions"`
	Approvals              DistributionApprovals  `json:"approvals"`
	Status                 DistributionStatus     `json:"status"`
	CalculatedAt           *time.Time             `json:"calculatedAt,omitempty"`
	CalculatedBy           string                 `json:"calculatedBy,omitempty"`
	ApprovedAt             *time.Time             `json:"approvedAt,omitempty"`
	ProcessingStartedAt    *time.Time             `json:"processingStartedAt,omitempty"`
	CompletedAt            *time.Time             `json:"completedAt,omitempty"`
	ClosedReason           string                 `json:"closedReason,omitempty"` // Cancellation or failure reason
	BatchID                string                 `json:"batchId,omitempty"`      // Last bank batch submitted
	Revision               int64                  `json:"revision"`
	CreatedAt              time.Time              `json:"createdAt"`
	UpdatedAt              time.Time              `json:"updatedAt"`
}

// AreAllApprovalsGranted reports whether asset manager, compliance and admin all approved.
func (d *Distribution) AreAllApprovalsGranted() bool {
	return d.Approvals.AllGranted()
}

// AllPaymentsCompleted reports whether every investor row is paid.
// A distribution without investor rows is never complete.
func (d *Distribution) AllPaymentsCompleted() bool {
	if len(d.InvestorDistributions) == 0 {
		return false
	}
	for _, inv := range d.InvestorDistributions {
		if inv.PaymentStatus != PaymentCompleted {
			return false
		}
	}
	return true
}
