package model

import "time"

// ProjectStatus is the listing state of a land project.
type ProjectStatus string

const (
	ProjectStatusDraft               ProjectStatus = "draft"
	ProjectStatusPendingAssetManager ProjectStatus = "pending_asset_manager"
	ProjectStatusPendingCompliance   ProjectStatus = "pending_compliance"
	ProjectStatusPendingAdmin        ProjectStatus = "pending_admin"
	ProjectStatusListed              ProjectStatus = "listed"
	ProjectStatusRejected            ProjectStatus = "rejected"
)

// ProjectApprovals records who moved the project through each listing stage.
type ProjectApprovals struct {
	Submission   Approval `json:"submission"`
	AssetManager Approval `json:"assetManager"`
	Compliance   Approval `json:"compliance"`
	Admin        Approval `json:"admin"`
}

// Project is a land asset offered for fractional investment.
type Project struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Status          ProjectStatus    `json:"status"`
	Approvals       ProjectApprovals `json:"approvals"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}
