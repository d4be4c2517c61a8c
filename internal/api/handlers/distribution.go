package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/request"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/response"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/service"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/validation"
)

// DistributionHandler handles HTTP requests for distribution endpoints:
// calculation, approval, closing and payout.
type DistributionHandler struct {
	distributionService *service.DistributionService
	approvalService     *service.ApprovalService
	payoutService       *service.PayoutService
}

// NewDistributionHandler creates a new DistributionHandler with the provided service dependencies.
func NewDistributionHandler(
	distributionService *service.DistributionService,
	approvalService *service.ApprovalService,
	payoutService *service.PayoutService,
) *DistributionHandler {
	return &DistributionHandler{
		distributionService: distributionService,
		approvalService:     approvalService,
		payoutService:       payoutService,
	}
}

// CreateDistribution handles POST requests to calculate a new distribution.
//
// Endpoint: POST /api/distribution
// Request Body: CreateDistributionRequest
// Response: 201 Created with Distribution
// Error: 400 Bad Request if validation fails or an amount is out of range
// Error: 404 Not Found if the SPV does not exist
// Error: 422 Unprocessable Entity if the SPV is unlinked or has no usable shareholders
// Error: 500 Internal Server Error if calculation fails
func (h *DistributionHandler) CreateDistribution(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateDistributionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateCreateDistribution(req); err != nil {
		respondValidationError(w, err)
		return
	}

	d, err := h.distributionService.Calculate(r.Context(), service.CalculateInput{
		SPVID:            req.SPVID,
		DistributionType: model.DistributionType(req.DistributionType),
		GrossProceeds:    req.GrossProceeds,
		Deductions:       req.Deductions,
		PlatformFees:     req.PlatformFees,
		TDSRate:          req.TDSRate,
		CalculatedBy:     req.CalculatedBy,
	})
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToCalculate)
		return
	}

	response.RespondJSON(w, http.StatusCreated, d)
}

// GetDistribution handles GET requests for one distribution with its investor rows.
//
// Endpoint: GET /api/distribution/{uuid}
// Response: 200 OK with Distribution
// Error: 404 Not Found if the distribution does not exist
func (h *DistributionHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	d, err := h.distributionService.Get(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveDistribution)
		return
	}

	response.RespondJSON(w, http.StatusOK, d)
}

// SPVDistributions handles GET requests for every distribution of an SPV.
//
// Endpoint: GET /api/spv/{uuid}/distributions
// Response: 200 OK with array of Distribution, newest first
// Error: 404 Not Found if the SPV does not exist
func (h *DistributionHandler) SPVDistributions(w http.ResponseWriter, r *http.Request) {
	list, err := h.distributionService.ListBySPV(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveDistribution)
		return
	}

	response.RespondJSON(w, http.StatusOK, list)
}

// UpdateDistribution handles PUT requests to recalculate a distribution that
// has no approvals yet.
//
// Endpoint: PUT /api/distribution/{uuid}
// Request Body: UpdateDistributionRequest (all fields optional)
// Response: 200 OK with Distribution
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if the distribution does not exist
// Error: 409 Conflict if the distribution is locked or the revision is stale
func (h *DistributionHandler) UpdateDistribution(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.UpdateDistributionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateUpdateDistribution(req); err != nil {
		respondValidationError(w, err)
		return
	}

	in := service.RecalculateInput{
		GrossProceeds:    req.GrossProceeds,
		Deductions:       req.Deductions,
		PlatformFees:     req.PlatformFees,
		TDSRate:          req.TDSRate,
		CalculatedBy:     req.CalculatedBy,
		ExpectedRevision: req.Revision,
	}
	if req.DistributionType != nil {
		t := model.DistributionType(*req.DistributionType)
		in.DistributionType = &t
	}

	d, err := h.distributionService.Recalculate(r.Context(), chi.URLParam(r, "uuid"), in)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateDistribution)
		return
	}

	response.RespondJSON(w, http.StatusOK, d)
}

// Approve handles POST requests granting one role's approval.
//
// Endpoint: POST /api/distribution/{uuid}/approve/{role}
// Request Body: ApproveRequest (approvedBy, optional comments and revision)
// Response: 200 OK with Distribution
// Error: 400 Bad Request if the role or body is invalid
// Error: 409 Conflict if the role already approved or the status does not allow it
func (h *DistributionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")

	req, err := parseJSON[request.ApproveRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateApprove(role, req); err != nil {
		respondValidationError(w, err)
		return
	}

	d, err := h.approvalService.Approve(r.Context(), chi.URLParam(r, "uuid"), service.ApprovalInput{
		Role:             model.ApprovalRole(role),
		ApprovedBy:       req.ApprovedBy,
		Comments:         validation.SanitizeText(req.Comments),
		ExpectedRevision: req.Revision,
	})
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToApprove)
		return
	}

	response.RespondJSON(w, http.StatusOK, d)
}

// Cancel handles POST requests to cancel a distribution without approvals.
//
// Endpoint: POST /api/distribution/{uuid}/cancel
// Request Body: CloseDistributionRequest (reason, performedBy)
// Response: 200 OK with Distribution
// Error: 409 Conflict if an approval exists or the status does not allow it
func (h *DistributionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, h.distributionService.Cancel)
}

// Fail handles POST requests to mark a distribution that has not started
// processing as failed.
//
// Endpoint: POST /api/distribution/{uuid}/fail
// Request Body: CloseDistributionRequest (reason, performedBy)
// Response: 200 OK with Distribution
// Error: 409 Conflict if the status does not allow it
func (h *DistributionHandler) Fail(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, h.distributionService.MarkFailed)
}

type closeFunc func(ctx context.Context, distributionID, reason, performedBy string, expectedRevision *int64) (*model.Distribution, error)

func (h *DistributionHandler) close(w http.ResponseWriter, r *http.Request, fn closeFunc) {
	req, err := parseJSON[request.CloseDistributionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateClose(req); err != nil {
		respondValidationError(w, err)
		return
	}

	d, err := fn(r.Context(), chi.URLParam(r, "uuid"), validation.SanitizeText(req.Reason), req.PerformedBy, req.Revision)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateDistribution)
		return
	}

	response.RespondJSON(w, http.StatusOK, d)
}

// ProcessBatch handles POST requests to pay every pending investor row of an
// approved distribution. Per-investor bank failures are reported in the
// result with 200; the distribution completes once every row is paid.
//
// Endpoint: POST /api/distribution/{uuid}/process
// Request Body: OperatorRequest (performedBy)
// Response: 200 OK with BatchResult
// Error: 409 Conflict if approvals are incomplete or a batch is already running
// Error: 422 Unprocessable Entity if an investor has no active bank account
func (h *DistributionHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.OperatorRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateOperator(req.PerformedBy); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.payoutService.ProcessBatch(r.Context(), chi.URLParam(r, "uuid"), req.PerformedBy)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToProcessBatch)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// ResetPayment handles POST requests returning one failed investor row to
// pending so the next batch retries it.
//
// Endpoint: POST /api/distribution/{uuid}/investors/{investorId}/reset
// Request Body: OperatorRequest (performedBy)
// Response: 200 OK with InvestorDistribution
// Error: 404 Not Found if the investor row does not exist
// Error: 409 Conflict if the row has not failed
func (h *DistributionHandler) ResetPayment(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.OperatorRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateOperator(req.PerformedBy); err != nil {
		respondValidationError(w, err)
		return
	}

	row, err := h.payoutService.ResetFailedPayment(r.Context(), chi.URLParam(r, "uuid"), chi.URLParam(r, "investorId"), req.PerformedBy)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToResetPayment)
		return
	}

	response.RespondJSON(w, http.StatusOK, row)
}
