package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/request"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/response"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/service"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/validation"
)

// ProjectHandler handles the project listing approval endpoints.
type ProjectHandler struct {
	projectService *service.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// GetProject handles GET requests for one project.
//
// Endpoint: GET /api/project/{uuid}
// Response: 200 OK with Project
// Error: 404 Not Found if the project does not exist
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.projectService.Get(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveProject)
		return
	}

	response.RespondJSON(w, http.StatusOK, p)
}

// Submit handles POST requests moving a draft project into review.
//
// Endpoint: POST /api/project/{uuid}/submit
// Request Body: ProjectActionRequest (performedBy)
// Response: 200 OK with Project
// Error: 409 Conflict if the project is not a draft
func (h *ProjectHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseAction(w, r, false)
	if !ok {
		return
	}

	p, err := h.projectService.Submit(r.Context(), chi.URLParam(r, "uuid"), req.PerformedBy)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateProject)
		return
	}

	response.RespondJSON(w, http.StatusOK, p)
}

// Approve handles POST requests granting one stage of the listing gate.
// Stages run asset_manager, compliance, admin in that order.
//
// Endpoint: POST /api/project/{uuid}/approve/{role}
// Request Body: ProjectActionRequest (performedBy, optional comments)
// Response: 200 OK with Project
// Error: 400 Bad Request if the role is unknown
// Error: 409 Conflict if the project is not waiting for that role
func (h *ProjectHandler) Approve(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseAction(w, r, false)
	if !ok {
		return
	}

	role := model.ApprovalRole(chi.URLParam(r, "role"))
	p, err := h.projectService.Approve(r.Context(), chi.URLParam(r, "uuid"), role, req.PerformedBy, validation.SanitizeText(req.Comments))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateProject)
		return
	}

	response.RespondJSON(w, http.StatusOK, p)
}

// Reject handles POST requests rejecting a project under review.
//
// Endpoint: POST /api/project/{uuid}/reject
// Request Body: ProjectActionRequest (performedBy, reason)
// Response: 200 OK with Project
// Error: 409 Conflict if the project is not under review
func (h *ProjectHandler) Reject(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseAction(w, r, true)
	if !ok {
		return
	}

	p, err := h.projectService.Reject(r.Context(), chi.URLParam(r, "uuid"), req.PerformedBy, validation.SanitizeText(req.Reason))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateProject)
		return
	}

	response.RespondJSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) parseAction(w http.ResponseWriter, r *http.Request, rejecting bool) (request.ProjectActionRequest, bool) {
	req, err := parseJSON[request.ProjectActionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return req, false
	}
	if err := validation.ValidateProjectAction(req, rejecting); err != nil {
		respondValidationError(w, err)
		return req, false
	}
	return req, true
}
