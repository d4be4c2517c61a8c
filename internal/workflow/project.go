package workflow

import "github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"

// ProjectEvent drives a project through the listing gate.
type ProjectEvent string

const (
	EventSubmit              ProjectEvent = "submit"
	EventProjectAssetApprove ProjectEvent = "approve_asset_manager"
	EventProjectComplianceOK ProjectEvent = "approve_compliance"
	EventProjectAdminApprove ProjectEvent = "approve_admin"
	EventReject              ProjectEvent = "reject"
)

// Project is the four-stage listing gate. Each approval advances exactly one
// stage; rejection is possible from any pending stage.
var Project = NewMachine("project", []Transition[model.ProjectStatus, ProjectEvent]{
	{model.ProjectStatusDraft, EventSubmit, model.ProjectStatusPendingAssetManager},
	{model.ProjectStatusPendingAssetManager, EventProjectAssetApprove, model.ProjectStatusPendingCompliance},
	{model.ProjectStatusPendingCompliance, EventProjectComplianceOK, model.ProjectStatusPendingAdmin},
	{model.ProjectStatusPendingAdmin, EventProjectAdminApprove, model.ProjectStatusListed},

	{model.ProjectStatusPendingAssetManager, EventReject, model.ProjectStatusRejected},
	{model.ProjectStatusPendingCompliance, EventReject, model.ProjectStatusRejected},
	{model.ProjectStatusPendingAdmin, EventReject, model.ProjectStatusRejected},
},
	model.ProjectStatusListed,
	model.ProjectStatusRejected,
)

// ProjectApprovalEvent maps an approver role to its listing event.
func ProjectApprovalEvent(role model.ApprovalRole) (ProjectEvent, bool) {
	switch role {
	case model.RoleAssetManager:
		return EventProjectAssetApprove, true
	case model.RoleCompliance:
		return EventProjectComplianceOK, true
	case model.RoleAdmin:
		return EventProjectAdminApprove, true
	}
	return "", false
}
