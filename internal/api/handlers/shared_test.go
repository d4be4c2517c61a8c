package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/request"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/response"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/testutil"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/validation"
)

// TestRespondJSON tests the respondJSON helper function.
// This is an internal test (package handlers, not handlers_test) because
// respondJSON is unexported.
func TestRespondJSON(t *testing.T) {
	t.Run("sets content-type and status code correctly", func(t *testing.T) {
		w := httptest.NewRecorder()

		respondJSON(w, http.StatusOK, map[string]string{"message": "success"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"message":"success"}`, w.Body.String())
	})

	t.Run("handles nil data without error", func(t *testing.T) {
		w := httptest.NewRecorder()

		respondJSON(w, http.StatusNoContent, nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Zero(t, w.Body.Len())
	})

	t.Run("handles un-encodable data gracefully", func(t *testing.T) {
		w := httptest.NewRecorder()

		// Channels cannot be JSON encoded
		respondJSON(w, http.StatusOK, map[string]interface{}{"channel": make(chan int)})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})
}

func TestParseJSON(t *testing.T) {
	t.Run("decodes a valid body", func(t *testing.T) {
		r := testutil.NewJSONRequest(t, http.MethodPost, "/", `{"performedBy":"ops"}`, nil)

		req, err := parseJSON[request.OperatorRequest](r)

		require.NoError(t, err)
		assert.Equal(t, "ops", req.PerformedBy)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := testutil.NewJSONRequest(t, http.MethodPost, "/", `{"performedBy":"ops","role":"admin"}`, nil)

		_, err := parseJSON[request.OperatorRequest](r)

		assert.Error(t, err)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		r := testutil.NewJSONRequest(t, http.MethodPost, "/", `{"performedBy":`, nil)

		_, err := parseJSON[request.OperatorRequest](r)

		assert.Error(t, err)
	})

	t.Run("rejects bodies over the size cap", func(t *testing.T) {
		body := `{"performedBy":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		r := testutil.NewJSONRequest(t, http.MethodPost, "/", body, nil)

		_, err := parseJSON[request.OperatorRequest](r)

		assert.Error(t, err)
	})
}

// TestRespondServiceError verifies the sentinel to status mapping.
//
// WHY: Clients branch on status codes, so a wrapped sentinel must surface
// with its own status, and unknown failures must never leak as 4xx.
func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("lookup: %w", apperrors.ErrDistributionNotFound), http.StatusNotFound},
		{"invalid transition", fmt.Errorf("%w: completed -> cancel", apperrors.ErrInvalidTransition), http.StatusConflict},
		{"stale revision", apperrors.ErrConcurrentModification, http.StatusConflict},
		{"batch locked", apperrors.ErrBatchInProgress, http.StatusConflict},
		{"signed shareholding", fmt.Errorf("wrap: %w", apperrors.ErrShareholdingSigned), http.StatusConflict},
		{"missing bank details", fmt.Errorf("%w: investor x", apperrors.ErrMissingBankDetails), http.StatusUnprocessableEntity},
		{"unlinked spv", apperrors.ErrSPVNotLinked, http.StatusUnprocessableEntity},
		{"negative amount", apperrors.ErrNegativeAmount, http.StatusBadRequest},
		{"bad signature", apperrors.ErrInvalidSignature, http.StatusUnauthorized},
		{"unknown", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			respondServiceError(w, tt.err, apperrors.ErrFailedToCalculate)

			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("uses the fallback message for unknown errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		respondServiceError(w, fmt.Errorf("disk full"), apperrors.ErrFailedToProcessBatch)

		resp := testutil.DecodeJSON[response.ErrorResponse](t, w)
		assert.Equal(t, apperrors.ErrFailedToProcessBatch.Error(), resp.Error)
		assert.Equal(t, "disk full", resp.Details)
	})
}

func TestRespondValidationError(t *testing.T) {
	w := httptest.NewRecorder()

	respondValidationError(w, &validation.Error{Fields: map[string]string{"reason": "reason is required"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "reason is required")
}
