package handlers

import (
	"io"
	"net/http"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/response"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/service"
)

// signatureHeader carries the provider's HMAC of the raw callback body.
const signatureHeader = "X-Signature"

// ESignHandler receives e-sign provider callbacks.
type ESignHandler struct {
	signingService *service.SigningService
}

// NewESignHandler creates a new ESignHandler.
func NewESignHandler(signingService *service.SigningService) *ESignHandler {
	return &ESignHandler{signingService: signingService}
}

// Callback handles signing status callbacks from the e-sign provider. The
// body is verified against the signature header before it is parsed.
//
// Endpoint: POST /api/esign/callback
// Response: 200 OK with SigningRequest
// Error: 401 Unauthorized if the signature does not match
// Error: 404 Not Found if the signing request is unknown
// Error: 409 Conflict if the request was already resolved differently
func (h *ESignHandler) Callback(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	req, err := h.signingService.HandleCallback(r.Context(), payload, r.Header.Get(signatureHeader))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToHandleCallback)
		return
	}

	response.RespondJSON(w, http.StatusOK, req)
}
