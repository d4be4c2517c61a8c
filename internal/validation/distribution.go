package validation

import (
	"strings"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/request"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// ValidateCreateDistribution validates a distribution calculation request.
//
// Required fields:
//   - spvId: Must be a valid UUID
//   - distributionType: Must be one of the known types
//   - grossProceeds: Must not be negative
//   - calculatedBy: Must not be blank
//
// Amount buckets and the TDS rate are range-checked by the calculator.
func ValidateCreateDistribution(req request.CreateDistributionRequest) error {
	errors := make(map[string]string)

	if err := ValidateUUID(req.SPVID); err != nil {
		errors["spvId"] = err.Error()
	}
	if !model.ValidDistributionTypes[model.DistributionType(req.DistributionType)] {
		errors["distributionType"] = "invalid distribution type: " + req.DistributionType
	}
	if req.GrossProceeds.IsNegative() {
		errors["grossProceeds"] = "grossProceeds must not be negative"
	}
	if strings.TrimSpace(req.CalculatedBy) == "" {
		errors["calculatedBy"] = "calculatedBy is required"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateUpdateDistribution validates a recalculation request. Every field
// is optional, but those provided must be well formed.
func ValidateUpdateDistribution(req request.UpdateDistributionRequest) error {
	errors := make(map[string]string)

	if req.DistributionType != nil && !model.ValidDistributionTypes[model.DistributionType(*req.DistributionType)] {
		errors["distributionType"] = "invalid distribution type: " + *req.DistributionType
	}
	if req.GrossProceeds != nil && req.GrossProceeds.IsNegative() {
		errors["grossProceeds"] = "grossProceeds must not be negative"
	}
	if req.Revision != nil && *req.Revision < 1 {
		errors["revision"] = "revision must be at least 1"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateApprove validates a role's sign-off.
func ValidateApprove(role string, req request.ApproveRequest) error {
	errors := make(map[string]string)

	if !model.ValidApprovalRoles[model.ApprovalRole(role)] {
		errors["role"] = "invalid role: " + role
	}
	if strings.TrimSpace(req.ApprovedBy) == "" {
		errors["approvedBy"] = "approvedBy is required"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateClose validates a cancel or fail request.
func ValidateClose(req request.CloseDistributionRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Reason) == "" {
		errors["reason"] = "reason is required"
	}
	if strings.TrimSpace(req.PerformedBy) == "" {
		errors["performedBy"] = "performedBy is required"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateOperator requires the acting operator to be named.
func ValidateOperator(performedBy string) error {
	if strings.TrimSpace(performedBy) == "" {
		return &Error{Fields: map[string]string{"performedBy": "performedBy is required"}}
	}
	return nil
}

// ValidateAllocate validates an allocation request.
func ValidateAllocate(req request.AllocateRequest) error {
	errors := make(map[string]string)

	if req.ProjectID != "" {
		if err := ValidateUUID(req.ProjectID); err != nil {
			errors["projectId"] = err.Error()
		}
	}
	if strings.TrimSpace(req.PerformedBy) == "" {
		errors["performedBy"] = "performedBy is required"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateProjectAction validates a project listing request. Rejections
// need a reason.
func ValidateProjectAction(req request.ProjectActionRequest, rejecting bool) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.PerformedBy) == "" {
		errors["performedBy"] = "performedBy is required"
	}
	if rejecting && strings.TrimSpace(req.Reason) == "" {
		errors["reason"] = "reason is required"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
