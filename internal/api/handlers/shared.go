package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/response"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logrus.WithError(err).Error("failed to encode JSON")
		}
	}
}

// parseJSON decodes the request body into T, rejecting unknown fields.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil {
		return v, fmt.Errorf("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}

// errorStatuses maps sentinel errors to HTTP status codes. The first match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	{apperrors.ErrSPVNotFound, http.StatusNotFound},
	{apperrors.ErrProjectNotFound, http.StatusNotFound},
	{apperrors.ErrDistributionNotFound, http.StatusNotFound},
	{apperrors.ErrInvestorDistributionNotFound, http.StatusNotFound},
	{apperrors.ErrInvestorNotFound, http.StatusNotFound},
	{apperrors.ErrShareholdingNotFound, http.StatusNotFound},
	{apperrors.ErrSigningRequestNotFound, http.StatusNotFound},

	{apperrors.ErrInvalidTransition, http.StatusConflict},
	{apperrors.ErrAlreadyApproved, http.StatusConflict},
	{apperrors.ErrConcurrentModification, http.StatusConflict},
	{apperrors.ErrBatchInProgress, http.StatusConflict},
	{apperrors.ErrDistributionLocked, http.StatusConflict},
	{apperrors.ErrApprovalsIncomplete, http.StatusConflict},
	{apperrors.ErrShareholdingSigned, http.StatusConflict},

	{apperrors.ErrSPVNotLinked, http.StatusUnprocessableEntity},
	{apperrors.ErrNoShareholders, http.StatusUnprocessableEntity},
	{apperrors.ErrInvalidInvestorData, http.StatusUnprocessableEntity},
	{apperrors.ErrMissingBankDetails, http.StatusUnprocessableEntity},
	{apperrors.ErrMaxInvestorsExceeded, http.StatusUnprocessableEntity},

	{apperrors.ErrInvalidUUID, http.StatusBadRequest},
	{apperrors.ErrNegativeAmount, http.StatusBadRequest},
	{apperrors.ErrInvalidRole, http.StatusBadRequest},
	{apperrors.ErrInvalidDistributionType, http.StatusBadRequest},
	{apperrors.ErrInvalidTDSRate, http.StatusBadRequest},

	{apperrors.ErrInvalidSignature, http.StatusUnauthorized},
}

// respondServiceError writes err using the status of the first sentinel it
// wraps. Unknown errors become 500 with fallback as the message.
func respondServiceError(w http.ResponseWriter, err error, fallback error) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			response.RespondError(w, m.status, m.err.Error(), err.Error())
			return
		}
	}
	logrus.WithError(err).Error(fallback.Error())
	response.RespondError(w, http.StatusInternalServerError, fallback.Error(), err.Error())
}

// respondValidationError writes a 400 for a failed request validation.
func respondValidationError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		response.RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
		return
	}
	response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
}
