package request

// AllocateRequest represents the request body for allocating equity.
// ProjectID is optional and defaults to the project the SPV is linked to.
type AllocateRequest struct {
	ProjectID   string `json:"projectId,omitempty"`
	PerformedBy string `json:"performedBy"`
}

// ProjectActionRequest is the body of the project listing endpoints.
// Comments apply to approvals, Reason to rejections.
type ProjectActionRequest struct {
	PerformedBy string `json:"performedBy"`
	Comments    string `json:"comments,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
