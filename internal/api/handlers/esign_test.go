package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/testutil"
)

func callbackRequest(t *testing.T, body []byte, signature string) *http.Request {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/esign/callback", body, nil)
	req.Header.Set(signatureHeader, signature)
	return req
}

// TestESignHandler_Callback verifies provider callbacks.
//
// WHY: The callback endpoint is reachable without operator credentials, so
// the signature is the only thing standing between it and the share ledger.
func TestESignHandler_Callback(t *testing.T) {
	t.Run("applies a signed callback", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.Allocation.Allocate(t.Context(), f.spv.ID, f.project.ID, "ops")
		require.NoError(t, err)
		agreement := res.Agreements[0]

		body, sig := f.svc.ESign.SignedCallback(agreement.RequestID, model.SigningSigned)
		w := httptest.NewRecorder()
		f.esign.Callback(w, callbackRequest(t, body, sig))

		requireStatus(t, w, http.StatusOK)
		got := testutil.DecodeJSON[model.SigningRequest](t, w)
		assert.Equal(t, model.SigningSigned, got.Status)

		entries, err := f.svc.Allocation.ListByInvestor(t.Context(), agreement.InvestorID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, model.ShareholdingAgreementSigned, entries[0].Status)
	})

	t.Run("returns 401 for a forged signature", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.Allocation.Allocate(t.Context(), f.spv.ID, f.project.ID, "ops")
		require.NoError(t, err)

		body, _ := f.svc.ESign.SignedCallback(res.Agreements[0].RequestID, model.SigningSigned)
		w := httptest.NewRecorder()
		f.esign.Callback(w, callbackRequest(t, body, "deadbeef"))

		requireStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("returns 404 for an unknown request", func(t *testing.T) {
		f := newFixture(t)

		body, sig := f.svc.ESign.SignedCallback("REQ-404", model.SigningSigned)
		w := httptest.NewRecorder()
		f.esign.Callback(w, callbackRequest(t, body, sig))

		requireStatus(t, w, http.StatusNotFound)
	})
}
