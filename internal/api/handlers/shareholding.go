package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/request"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/response"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/service"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/validation"
)

// ShareholdingHandler handles HTTP requests for equity allocation and the
// share ledger. It serves as the HTTP layer adapter, parsing requests and
// delegating business logic to the allocation and signing services.
type ShareholdingHandler struct {
	allocationService *service.AllocationService
	signingService    *service.SigningService
}

// NewShareholdingHandler creates a new ShareholdingHandler with the provided service dependencies.
func NewShareholdingHandler(allocationService *service.AllocationService, signingService *service.SigningService) *ShareholdingHandler {
	return &ShareholdingHandler{
		allocationService: allocationService,
		signingService:    signingService,
	}
}

// Allocate handles POST requests to allocate an SPV's equity from settled payments.
// No settled payments and a zero pool are reported in the result's outcome
// with 200; per-investor agreement failures are listed in its agreements.
//
// Endpoint: POST /api/spv/{uuid}/allocate
// Request Body: AllocateRequest (performedBy, optional projectId)
// Response: 200 OK with AllocationResult
// Error: 400 Bad Request if the SPV ID (validated by middleware) or body is invalid
// Error: 404 Not Found if the SPV does not exist
// Error: 422 Unprocessable Entity if the SPV is unlinked or over its investor limit
// Error: 500 Internal Server Error if allocation fails
func (h *ShareholdingHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	spvID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.AllocateRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateAllocate(req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.allocationService.Allocate(r.Context(), spvID, req.ProjectID, req.PerformedBy)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToAllocate)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// SPVShareholdings handles GET requests for an SPV's share ledger, largest holding first.
//
// Endpoint: GET /api/spv/{uuid}/shareholdings
// Response: 200 OK with array of ShareLedgerEntry
// Error: 404 Not Found if the SPV does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *ShareholdingHandler) SPVShareholdings(w http.ResponseWriter, r *http.Request) {
	entries, err := h.allocationService.ListBySPV(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveShareholdings)
		return
	}

	response.RespondJSON(w, http.StatusOK, entries)
}

// InvestorShareholdings handles GET requests for every ledger entry held by an investor.
//
// Endpoint: GET /api/investor/{uuid}/shareholdings
// Response: 200 OK with array of ShareLedgerEntry
// Error: 500 Internal Server Error if retrieval fails
func (h *ShareholdingHandler) InvestorShareholdings(w http.ResponseWriter, r *http.Request) {
	entries, err := h.allocationService.ListByInvestor(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveShareholdings)
		return
	}

	response.RespondJSON(w, http.StatusOK, entries)
}

// Complete handles POST requests to mark a signed shareholding completed.
//
// Endpoint: POST /api/spv/{uuid}/shareholdings/{investorId}/complete
// Request Body: OperatorRequest (performedBy)
// Response: 200 OK with ShareLedgerEntry
// Error: 404 Not Found if the shareholding does not exist
// Error: 409 Conflict if the agreement is not signed yet
func (h *ShareholdingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	spvID := chi.URLParam(r, "uuid")
	investorID := chi.URLParam(r, "investorId")

	req, err := parseJSON[request.OperatorRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateOperator(req.PerformedBy); err != nil {
		respondValidationError(w, err)
		return
	}

	entry, err := h.signingService.CompleteShareholding(r.Context(), spvID, investorID, req.PerformedBy)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToCompleteShareholding)
		return
	}

	response.RespondJSON(w, http.StatusOK, entry)
}
