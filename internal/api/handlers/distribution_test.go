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

func TestDistributionHandler_CreateDistribution(t *testing.T) {
	t.Run("calculates and returns 201", func(t *testing.T) {
		f := newFixture(t)
		f.allocate(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/distribution", map[string]any{
			"spvId":            f.spv.ID,
			"distributionType": "sale_proceeds",
			"grossProceeds":    "10000000",
			"deductions":       map[string]string{"legalFees": "100000"},
			"calculatedBy":     "finance",
		}, nil)
		w := httptest.NewRecorder()

		f.distributions.CreateDistribution(w, req)

		requireStatus(t, w, http.StatusCreated)
		d := testutil.DecodeJSON[model.Distribution](t, w)
		assert.Equal(t, model.DistributionStatusCalculated, d.Status)
		assert.Equal(t, "100000", d.Deductions.TotalDeductions.String())
		assert.Equal(t, "1980000", d.TaxWithholding.TDSAmount.String())
		assert.Equal(t, "7920000", d.NetDistributableAmount.String())
		assert.Len(t, d.InvestorDistributions, 2)
	})

	t.Run("returns 400 with field errors for an invalid body", func(t *testing.T) {
		f := newFixture(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/distribution", map[string]any{
			"spvId":            "nope",
			"distributionType": "bonus",
			"grossProceeds":    "-5",
		}, nil)
		w := httptest.NewRecorder()

		f.distributions.CreateDistribution(w, req)

		requireStatus(t, w, http.StatusBadRequest)
		assert.Contains(t, w.Body.String(), "distributionType")
		assert.Contains(t, w.Body.String(), "calculatedBy")
	})

	t.Run("returns 400 for unknown fields", func(t *testing.T) {
		f := newFixture(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/distribution", `{"spvId":"x","netAmount":"1"}`, nil)
		w := httptest.NewRecorder()

		f.distributions.CreateDistribution(w, req)

		requireStatus(t, w, http.StatusBadRequest)
	})

	t.Run("returns 422 when the SPV has no shareholders", func(t *testing.T) {
		f := newFixture(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/distribution", map[string]any{
			"spvId":            f.spv.ID,
			"distributionType": "dividend",
			"grossProceeds":    "1000",
			"calculatedBy":     "finance",
		}, nil)
		w := httptest.NewRecorder()

		f.distributions.CreateDistribution(w, req)

		requireStatus(t, w, http.StatusUnprocessableEntity)
	})

	t.Run("returns 404 for an unknown SPV", func(t *testing.T) {
		f := newFixture(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/distribution", map[string]any{
			"spvId":            testutil.MakeID(),
			"distributionType": "dividend",
			"grossProceeds":    "1000",
			"calculatedBy":     "finance",
		}, nil)
		w := httptest.NewRecorder()

		f.distributions.CreateDistribution(w, req)

		requireStatus(t, w, http.StatusNotFound)
	})
}

func TestDistributionHandler_GetAndList(t *testing.T) {
	f := newFixture(t)
	d := f.calculated(t)

	t.Run("gets a distribution with its investor rows", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.distributions.GetDistribution(w, testutil.NewRequestWithURLParams(http.MethodGet, "/api/distribution/"+d.ID, map[string]string{"uuid": d.ID}))

		requireStatus(t, w, http.StatusOK)
		got := testutil.DecodeJSON[model.Distribution](t, w)
		assert.Equal(t, d.DistributionNumber, got.DistributionNumber)
		assert.Len(t, got.InvestorDistributions, 2)
	})

	t.Run("returns 404 for an unknown distribution", func(t *testing.T) {
		id := testutil.MakeID()
		w := httptest.NewRecorder()
		f.distributions.GetDistribution(w, testutil.NewRequestWithURLParams(http.MethodGet, "/api/distribution/"+id, map[string]string{"uuid": id}))

		requireStatus(t, w, http.StatusNotFound)
	})

	t.Run("lists an SPV's distributions", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.distributions.SPVDistributions(w, testutil.NewRequestWithURLParams(http.MethodGet, "/api/spv/"+f.spv.ID+"/distributions", map[string]string{"uuid": f.spv.ID}))

		requireStatus(t, w, http.StatusOK)
		list := testutil.DecodeJSON[[]model.Distribution](t, w)
		require.Len(t, list, 1)
		assert.Equal(t, d.ID, list[0].ID)
	})
}

// TestDistributionHandler_UpdateDistribution verifies recalculation over HTTP.
//
// WHY: Operators correct figures before sign-off; a client holding an old
// revision must get 409 rather than silently overwrite newer numbers.
func TestDistributionHandler_UpdateDistribution(t *testing.T) {
	t.Run("recalculates with new gross proceeds", func(t *testing.T) {
		f := newFixture(t)
		d := f.calculated(t)

		req := testutil.NewJSONRequest(t, http.MethodPut, "/api/distribution/"+d.ID, map[string]any{
			"grossProceeds": "5000000",
			"calculatedBy":  "finance",
			"revision":      d.Revision,
		}, map[string]string{"uuid": d.ID})
		w := httptest.NewRecorder()

		f.distributions.UpdateDistribution(w, req)

		requireStatus(t, w, http.StatusOK)
		got := testutil.DecodeJSON[model.Distribution](t, w)
		assert.Equal(t, "4000000", got.NetDistributableAmount.String())
		assert.Equal(t, d.Revision+1, got.Revision)
	})

	t.Run("returns 409 for a stale revision", func(t *testing.T) {
		f := newFixture(t)
		d := f.calculated(t)

		req := testutil.NewJSONRequest(t, http.MethodPut, "/api/distribution/"+d.ID, map[string]any{
			"grossProceeds": "5000000",
			"calculatedBy":  "finance",
			"revision":      d.Revision + 5,
		}, map[string]string{"uuid": d.ID})
		w := httptest.NewRecorder()

		f.distributions.UpdateDistribution(w, req)

		requireStatus(t, w, http.StatusConflict)
	})
}

func TestDistributionHandler_Approve(t *testing.T) {
	t.Run("records an approval and strips markup from comments", func(t *testing.T) {
		f := newFixture(t)
		d := f.calculated(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/distribution/"+d.ID+"/approve/asset_manager", map[string]any{
			"approvedBy": "am",
			"comments":   "<script>x</script>looks right",
		}, map[string]string{"uuid": d.ID, "role": "asset_manager"})
		w := httptest.NewRecorder()

		f.distributions.Approve(w, req)

		requireStatus(t, w, http.StatusOK)
		got := testutil.DecodeJSON[model.Distribution](t, w)
		assert.Equal(t, model.DistributionStatusUnderReview, got.Status)
		assert.True(t, got.Approvals.AssetManager.Approved)
		assert.Equal(t, "looks right", got.Approvals.AssetManager.Comments)
	})

	t.Run("returns 400 for an unknown role", func(t *testing.T) {
		f := newFixture(t)
		d := f.calculated(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"approvedBy": "x"},
			map[string]string{"uuid": d.ID, "role": "auditor"})
		w := httptest.NewRecorder()

		f.distributions.Approve(w, req)

		requireStatus(t, w, http.StatusBadRequest)
	})

	t.Run("returns 409 when the role already approved", func(t *testing.T) {
		f := newFixture(t)
		d := f.calculated(t)
		params := map[string]string{"uuid": d.ID, "role": "admin"}

		w := httptest.NewRecorder()
		f.distributions.Approve(w, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"approvedBy": "adm"}, params))
		requireStatus(t, w, http.StatusOK)

		w = httptest.NewRecorder()
		f.distributions.Approve(w, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"approvedBy": "adm"}, params))

		requireStatus(t, w, http.StatusConflict)
	})
}

func TestDistributionHandler_CancelAndFail(t *testing.T) {
	t.Run("cancels a calculated distribution", func(t *testing.T) {
		f := newFixture(t)
		d := f.calculated(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"reason": "wrong figures", "performedBy": "ops"},
			map[string]string{"uuid": d.ID})
		w := httptest.NewRecorder()

		f.distributions.Cancel(w, req)

		requireStatus(t, w, http.StatusOK)
		got := testutil.DecodeJSON[model.Distribution](t, w)
		assert.Equal(t, model.DistributionStatusCancelled, got.Status)
		assert.Equal(t, "wrong figures", got.ClosedReason)
	})

	t.Run("requires a reason", func(t *testing.T) {
		f := newFixture(t)
		d := f.calculated(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"performedBy": "ops"}, map[string]string{"uuid": d.ID})
		w := httptest.NewRecorder()

		f.distributions.Cancel(w, req)

		requireStatus(t, w, http.StatusBadRequest)
	})

	t.Run("returns 409 when cancelling after an approval", func(t *testing.T) {
		f := newFixture(t)
		d := f.approved(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"reason": "late", "performedBy": "ops"},
			map[string]string{"uuid": d.ID})
		w := httptest.NewRecorder()

		f.distributions.Cancel(w, req)

		requireStatus(t, w, http.StatusConflict)
	})

	t.Run("fails an approved distribution", func(t *testing.T) {
		f := newFixture(t)
		d := f.approved(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"reason": "buyer defaulted", "performedBy": "ops"},
			map[string]string{"uuid": d.ID})
		w := httptest.NewRecorder()

		f.distributions.Fail(w, req)

		requireStatus(t, w, http.StatusOK)
		got := testutil.DecodeJSON[model.Distribution](t, w)
		assert.Equal(t, model.DistributionStatusFailed, got.Status)
	})
}

// TestDistributionHandler_ProcessBatch verifies payout over HTTP.
//
// WHY: A partial bank failure is a normal outcome, not an error; the
// operator needs the per-investor results with 200 to decide on resets.
func TestDistributionHandler_ProcessBatch(t *testing.T) {
	t.Run("pays every investor and completes", func(t *testing.T) {
		f := newFixture(t)
		d := f.approved(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"performedBy": "ops"}, map[string]string{"uuid": d.ID})
		w := httptest.NewRecorder()

		f.distributions.ProcessBatch(w, req)

		requireStatus(t, w, http.StatusOK)
		res := testutil.DecodeJSON[model.BatchResult](t, w)
		assert.Equal(t, model.DistributionStatusCompleted, res.Status)
		assert.Len(t, res.Outcomes, 2)
	})

	t.Run("reports a failed investor and allows a reset", func(t *testing.T) {
		f := newFixture(t)
		d := f.approved(t)
		f.svc.Bank.WithFailure(f.b.ID, "invalid IFSC")

		w := httptest.NewRecorder()
		f.distributions.ProcessBatch(w, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"performedBy": "ops"}, map[string]string{"uuid": d.ID}))

		requireStatus(t, w, http.StatusOK)
		res := testutil.DecodeJSON[model.BatchResult](t, w)
		assert.Equal(t, model.DistributionStatusProcessing, res.Status)

		w = httptest.NewRecorder()
		f.distributions.ResetPayment(w, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"performedBy": "ops"},
			map[string]string{"uuid": d.ID, "investorId": f.b.ID}))

		requireStatus(t, w, http.StatusOK)
		row := testutil.DecodeJSON[model.InvestorDistribution](t, w)
		assert.Equal(t, model.PaymentPending, row.PaymentStatus)
		assert.Empty(t, row.PaymentFailureReason)
	})

	t.Run("returns 409 before every approval is granted", func(t *testing.T) {
		f := newFixture(t)
		d := f.calculated(t)

		w := httptest.NewRecorder()
		f.distributions.ProcessBatch(w, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"performedBy": "ops"}, map[string]string{"uuid": d.ID}))

		requireStatus(t, w, http.StatusConflict)
	})

	t.Run("returns 409 when resetting a row that has not failed", func(t *testing.T) {
		f := newFixture(t)
		d := f.approved(t)

		w := httptest.NewRecorder()
		f.distributions.ResetPayment(w, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"performedBy": "ops"},
			map[string]string{"uuid": d.ID, "investorId": f.a.ID}))

		requireStatus(t, w, http.StatusConflict)
	})
}
