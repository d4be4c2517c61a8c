package workflow

import "github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"

// DistributionEvent drives a distribution through its lifecycle.
type DistributionEvent string

const (
	EventCalculate         DistributionEvent = "calculate"
	EventRecalculate       DistributionEvent = "recalculate"
	EventApproveAsset      DistributionEvent = "approve_asset_manager"
	EventApproveCompliance DistributionEvent = "approve_compliance"
	EventApproveAdmin      DistributionEvent = "approve_admin"
	EventFinalizeApproval  DistributionEvent = "finalize_approval"
	EventStartProcessing   DistributionEvent = "start_processing"
	EventComplete          DistributionEvent = "complete"
	EventCancel            DistributionEvent = "cancel"
	EventFail              DistributionEvent = "fail"
)

// Distribution is the distribution lifecycle:
//
//	draft -> calculated -> under_review -> approved -> processing -> completed
//
// Admin approval is recorded from calculated or under_review without moving
// the status; the status only reaches approved through EventFinalizeApproval,
// which the caller fires once every approval is granted. Cancel and fail are
// reachable before processing starts. Edits and cancellation additionally
// require zero approvals, which the caller checks against the record.
var Distribution = NewMachine("distribution", []Transition[model.DistributionStatus, DistributionEvent]{
	{model.DistributionStatusDraft, EventCalculate, model.DistributionStatusCalculated},
	{model.DistributionStatusDraft, EventRecalculate, model.DistributionStatusCalculated},
	{model.DistributionStatusCalculated, EventRecalculate, model.DistributionStatusCalculated},

	{model.DistributionStatusCalculated, EventApproveAsset, model.DistributionStatusUnderReview},
	{model.DistributionStatusUnderReview, EventApproveCompliance, model.DistributionStatusUnderReview},
	{model.DistributionStatusCalculated, EventApproveAdmin, model.DistributionStatusCalculated},
	{model.DistributionStatusUnderReview, EventApproveAdmin, model.DistributionStatusUnderReview},
	{model.DistributionStatusUnderReview, EventFinalizeApproval, model.DistributionStatusApproved},

	{model.DistributionStatusApproved, EventStartProcessing, model.DistributionStatusProcessing},
	{model.DistributionStatusProcessing, EventStartProcessing, model.DistributionStatusProcessing},
	{model.DistributionStatusProcessing, EventComplete, model.DistributionStatusCompleted},

	{model.DistributionStatusDraft, EventCancel, model.DistributionStatusCancelled},
	{model.DistributionStatusCalculated, EventCancel, model.DistributionStatusCancelled},

	{model.DistributionStatusDraft, EventFail, model.DistributionStatusFailed},
	{model.DistributionStatusCalculated, EventFail, model.DistributionStatusFailed},
	{model.DistributionStatusUnderReview, EventFail, model.DistributionStatusFailed},
	{model.DistributionStatusApproved, EventFail, model.DistributionStatusFailed},
},
	model.DistributionStatusCompleted,
	model.DistributionStatusFailed,
	model.DistributionStatusCancelled,
)

// ApprovalEvent maps an approver role to its distribution event.
func ApprovalEvent(role model.ApprovalRole) (DistributionEvent, bool) {
	switch role {
	case model.RoleAssetManager:
		return EventApproveAsset, true
	case model.RoleCompliance:
		return EventApproveCompliance, true
	case model.RoleAdmin:
		return EventApproveAdmin, true
	}
	return "", false
}
