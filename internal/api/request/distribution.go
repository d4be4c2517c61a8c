package request

import (
	"github.com/shopspring/decimal"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// CreateDistributionRequest represents the request body for calculating a new distribution.
// Deduction and fee buckets default to zero; TDSRate defaults to the configured rate.
type CreateDistributionRequest struct {
	SPVID            string             `json:"spvId"`
	DistributionType string             `json:"distributionType"`
	GrossProceeds    decimal.Decimal    `json:"grossProceeds"`
	Deductions       model.Deductions   `json:"deductions"`
	PlatformFees     model.PlatformFees `json:"platformFees"`
	TDSRate          *decimal.Decimal   `json:"tdsRate,omitempty"`
	CalculatedBy     string             `json:"calculatedBy"`
}

// UpdateDistributionRequest represents the request body for recalculating a distribution.
// All fields are optional (use pointers). Only provided fields will be updated.
// Revision, when set, must equal the stored revision.
type UpdateDistributionRequest struct {
	DistributionType *string             `json:"distributionType,omitempty"`
	GrossProceeds    *decimal.Decimal    `json:"grossProceeds,omitempty"`
	Deductions       *model.Deductions   `json:"deductions,omitempty"`
	PlatformFees     *model.PlatformFees `json:"platformFees,omitempty"`
	TDSRate          *decimal.Decimal    `json:"tdsRate,omitempty"`
	CalculatedBy     string              `json:"calculatedBy"`
	Revision         *int64              `json:"revision,omitempty"`
}

// ApproveRequest is one role's sign-off.
type ApproveRequest struct {
	ApprovedBy string `json:"approvedBy"`
	Comments   string `json:"comments,omitempty"`
	Revision   *int64 `json:"revision,omitempty"`
}

// CloseDistributionRequest cancels or fails a distribution.
type CloseDistributionRequest struct {
	Reason      string `json:"reason"`
	PerformedBy string `json:"performedBy"`
	Revision    *int64 `json:"revision,omitempty"`
}

// OperatorRequest carries the operator behind an action without other input.
type OperatorRequest struct {
	PerformedBy string `json:"performedBy"`
}
