package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/service"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/testutil"
)

// TestAllocationService_Allocate covers turning settled payments into ledger entries.
//
// WHY: The ledger is the source of truth for every later distribution. Its
// figures must sum to the pool, floor share counts and converge when the
// allocation is re-run.
func TestAllocationService_Allocate(t *testing.T) {
	ctx := context.Background()

	t.Run("splits equity and shares pro rata", func(t *testing.T) {
		s := newScenario(t)

		res := s.allocate(t)

		assert.Equal(t, model.AllocationAllocated, res.Outcome)
		assertDec(t, "1000000", res.TotalInvestmentPool, "pool")
		require.Len(t, res.Entries, 2)

		a := entryFor(t, res.Entries, s.a.ID)
		assertDec(t, "700000", a.InvestmentAmount, "A investment")
		assertDec(t, "70", a.EquityPercentage, "A equity")
		assert.Equal(t, int64(70000), a.NumberOfShares)
		assertDec(t, "10", a.FaceValuePerShare, "A face value")
		assertDec(t, "-3", a.PremiumPerShare, "A premium")
		assertDec(t, "1000000", a.TotalInvestmentPool, "A pool")
		assert.Equal(t, model.ShareholdingDistributed, a.Status)
		assert.Equal(t, s.project.ID, a.ProjectID)

		b := entryFor(t, res.Entries, s.b.ID)
		assertDec(t, "30", b.EquityPercentage, "B equity")
		assert.Equal(t, int64(30000), b.NumberOfShares)
	})

	t.Run("sums several payments per investor", func(t *testing.T) {
		s := newScenario(t)
		testutil.CreatePayment(t, s.db, s.a.ID, s.project.ID, "100000")

		res := s.allocate(t)

		a := entryFor(t, res.Entries, s.a.ID)
		assertDec(t, "800000", a.InvestmentAmount, "A investment")
		assertDec(t, "1100000", res.TotalInvestmentPool, "pool")
	})

	t.Run("ignores payments that were not captured", func(t *testing.T) {
		s := newScenario(t)
		testutil.NewPayment(s.a.ID, s.project.ID).WithAmount("5000000").WithStatus(model.PaymentCaptureFailed).Build(t, s.db)

		res := s.allocate(t)

		assertDec(t, "1000000", res.TotalInvestmentPool, "pool")
	})

	t.Run("equity sums to 100 within 1e-9 for an uneven split", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db)
		project := testutil.NewProject().Build(t, db)
		spv := testutil.NewSPV().WithProject(project.ID).Build(t, db)
		for _, amount := range []string{"100000", "100000", "100000", "123456.78"} {
			inv := testutil.NewInvestor().Build(t, db)
			testutil.CreatePayment(t, db, inv.ID, project.ID, amount)
		}

		res, err := svc.Allocation.Allocate(ctx, spv.ID, project.ID, "ops")
		require.NoError(t, err)

		totalEquity := decimal.Zero
		totalInvestment := decimal.Zero
		for _, e := range res.Entries {
			totalEquity = totalEquity.Add(e.EquityPercentage)
			totalInvestment = totalInvestment.Add(e.InvestmentAmount)
		}
		assert.True(t, totalInvestment.Equal(res.TotalInvestmentPool))
		diff := totalEquity.Sub(decimal.NewFromInt(100)).Abs()
		assert.True(t, diff.LessThan(testutil.Dec("0.000000001")), "equity sums to %s", totalEquity)
	})

	t.Run("floors fractional shares", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db)
		project := testutil.NewProject().Build(t, db)
		spv := testutil.NewSPV().WithProject(project.ID).WithFaceValue("10").Build(t, db)
		exact := testutil.NewInvestor().Build(t, db)
		remainder := testutil.NewInvestor().Build(t, db)
		testutil.CreatePayment(t, db, exact.ID, project.ID, "1000000")
		testutil.CreatePayment(t, db, remainder.ID, project.ID, "1000005")

		res, err := svc.Allocation.Allocate(ctx, spv.ID, project.ID, "ops")
		require.NoError(t, err)

		assert.Equal(t, int64(100000), entryFor(t, res.Entries, exact.ID).NumberOfShares)
		assert.Equal(t, int64(100000), entryFor(t, res.Entries, remainder.ID).NumberOfShares)
	})

	t.Run("uses the default face value when the spv has none", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db)
		project := testutil.NewProject().Build(t, db)
		spv := testutil.NewSPV().WithProject(project.ID).Build(t, db)
		inv := testutil.NewInvestor().Build(t, db)
		testutil.CreatePayment(t, db, inv.ID, project.ID, "2500")

		res, err := svc.Allocation.Allocate(ctx, spv.ID, project.ID, "ops")
		require.NoError(t, err)

		e := entryFor(t, res.Entries, inv.ID)
		assertDec(t, "10", e.FaceValuePerShare, "face value")
		assert.Equal(t, int64(250), e.NumberOfShares)
	})

	t.Run("derives premium from authorized capital", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db)
		project := testutil.NewProject().Build(t, db)
		spv := testutil.NewSPV().WithProject(project.ID).WithFaceValue("10").WithAuthorizedCapital("500000").Build(t, db)
		inv := testutil.NewInvestor().Build(t, db)
		testutil.CreatePayment(t, db, inv.ID, project.ID, "1000000")

		res, err := svc.Allocation.Allocate(ctx, spv.ID, project.ID, "ops")
		require.NoError(t, err)

		// (1,000,000 / 500,000) * 10 - 10
		assertDec(t, "10", entryFor(t, res.Entries, inv.ID).PremiumPerShare, "premium")
	})

	t.Run("re-running leaves entries byte-identical", func(t *testing.T) {
		s := newScenario(t)
		s.allocate(t)
		first, err := s.svc.Allocation.ListBySPV(ctx, s.spv.ID)
		require.NoError(t, err)

		s.allocate(t)
		second, err := s.svc.Allocation.ListBySPV(ctx, s.spv.ID)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		testutil.AssertRowCount(t, s.db, "share_ledger", 2)
	})

	t.Run("re-running after a new payment overwrites in place", func(t *testing.T) {
		s := newScenario(t)
		first := s.allocate(t)
		testutil.CreatePayment(t, s.db, s.b.ID, s.project.ID, "700000")

		second := s.allocate(t)

		testutil.AssertRowCount(t, s.db, "share_ledger", 2)
		assert.Equal(t, entryFor(t, first.Entries, s.a.ID).ID, entryFor(t, second.Entries, s.a.ID).ID)
		assertDec(t, "41.1764705882352941", entryFor(t, second.Entries, s.a.ID).EquityPercentage, "A equity")
		assertDec(t, "1000000", entryFor(t, second.Entries, s.b.ID).InvestmentAmount, "B investment")
	})

	t.Run("re-running drops an investor whose payments are gone", func(t *testing.T) {
		s := newScenario(t)
		s.allocate(t)
		_, err := s.db.Exec(`UPDATE investor_payment SET status = ? WHERE investor_id = ?`, model.PaymentCaptureFailed, s.b.ID)
		require.NoError(t, err)

		res := s.allocate(t)

		assert.Equal(t, []string{s.b.ID}, res.RemovedInvestors)
		entries, err := s.svc.Allocation.ListBySPV(ctx, s.spv.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, s.a.ID, entries[0].InvestorID)
		assertDec(t, "100", entries[0].EquityPercentage, "A equity")
		assertDec(t, "700000", entries[0].TotalInvestmentPool, "A pool")

		var status string
		require.NoError(t, s.db.QueryRow(`SELECT status FROM signing_request WHERE investor_id = ?`, s.b.ID).Scan(&status))
		assert.Equal(t, string(model.SigningExpired), status)

		d, err := s.svc.Distribution.Calculate(ctx, service.CalculateInput{
			SPVID:            s.spv.ID,
			DistributionType: model.DistributionSaleProceeds,
			GrossProceeds:    testutil.Dec("10000000"),
		})
		require.NoError(t, err)
		require.Len(t, d.InvestorDistributions, 1)
		assert.Equal(t, s.a.ID, d.InvestorDistributions[0].InvestorID)
	})

	t.Run("re-running cannot drop an investor who already signed", func(t *testing.T) {
		s := newScenario(t)
		first := s.allocate(t)
		body, sig := s.svc.ESign.SignedCallback(agreementFor(t, first, s.b.ID).RequestID, model.SigningSigned)
		_, err := s.svc.Signing.HandleCallback(ctx, body, sig)
		require.NoError(t, err)
		_, err = s.db.Exec(`UPDATE investor_payment SET status = ? WHERE investor_id = ?`, model.PaymentCaptureFailed, s.b.ID)
		require.NoError(t, err)

		_, err = s.svc.Allocation.Allocate(ctx, s.spv.ID, s.project.ID, "ops")

		require.ErrorIs(t, err, apperrors.ErrShareholdingSigned)
		entries, err := s.svc.Allocation.ListBySPV(ctx, s.spv.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		assertDec(t, "70", entryFor(t, entries, s.a.ID).EquityPercentage, "A equity unchanged")
	})

	t.Run("reports no investors as an outcome", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db)
		project := testutil.NewProject().Build(t, db)
		spv := testutil.NewSPV().WithProject(project.ID).Build(t, db)

		res, err := svc.Allocation.Allocate(ctx, spv.ID, project.ID, "ops")

		require.NoError(t, err)
		assert.Equal(t, model.AllocationNoInvestors, res.Outcome)
		assert.Empty(t, res.Entries)
		testutil.AssertRowCount(t, db, "share_ledger", 0)
	})

	t.Run("reports a zero pool as an outcome", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db)
		project := testutil.NewProject().Build(t, db)
		spv := testutil.NewSPV().WithProject(project.ID).Build(t, db)
		inv := testutil.NewInvestor().Build(t, db)
		testutil.CreatePayment(t, db, inv.ID, project.ID, "0")

		res, err := svc.Allocation.Allocate(ctx, spv.ID, project.ID, "ops")

		require.NoError(t, err)
		assert.Equal(t, model.AllocationZeroPool, res.Outcome)
		testutil.AssertRowCount(t, db, "share_ledger", 0)
	})

	t.Run("rejects more investors than the spv allows before writing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db)
		project := testutil.NewProject().Build(t, db)
		spv := testutil.NewSPV().WithProject(project.ID).WithMaxInvestors(1).Build(t, db)
		for i := 0; i < 2; i++ {
			inv := testutil.NewInvestor().Build(t, db)
			testutil.CreatePayment(t, db, inv.ID, project.ID, "1000")
		}

		_, err := svc.Allocation.Allocate(ctx, spv.ID, project.ID, "ops")

		assert.ErrorIs(t, err, apperrors.ErrMaxInvestorsExceeded)
		testutil.AssertRowCount(t, db, "share_ledger", 0)
	})

	t.Run("defaults to the linked project", func(t *testing.T) {
		s := newScenario(t)

		res, err := s.svc.Allocation.Allocate(ctx, s.spv.ID, "", "ops")
		require.NoError(t, err)

		assert.Equal(t, s.project.ID, res.ProjectID)
		assert.Len(t, res.Entries, 2)
	})

	t.Run("an unlinked spv needs an explicit project", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db)
		spv := testutil.NewSPV().Build(t, db)

		_, err := svc.Allocation.Allocate(ctx, spv.ID, "", "ops")

		assert.ErrorIs(t, err, apperrors.ErrSPVNotLinked)
	})

	t.Run("unknown spv", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db)

		_, err := svc.Allocation.Allocate(ctx, testutil.MakeID(), testutil.MakeID(), "ops")

		assert.ErrorIs(t, err, apperrors.ErrSPVNotFound)
	})

	t.Run("records an audit event", func(t *testing.T) {
		s := newScenario(t)
		s.allocate(t)

		events, err := s.svc.Audit.ListByTarget(ctx, "spv", s.spv.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "equity_allocated", events[0].EventType)
		assert.Equal(t, "ops", events[0].PerformedBy)
	})
}

// TestAllocationService_Agreements covers the per-investor agreement step.
//
// WHY: Agreement generation talks to external providers. One investor's
// failure must be reported for that investor only, and a re-run must not
// send a second signing request.
func TestAllocationService_Agreements(t *testing.T) {
	t.Run("sends every verified investor an agreement", func(t *testing.T) {
		s := newScenario(t)

		res := s.allocate(t)

		for _, inv := range []model.Investor{s.a, s.b} {
			out := agreementFor(t, res, inv.ID)
			assert.Equal(t, model.AgreementInitiated, out.Status)
			assert.NotEmpty(t, out.RequestID)
			assert.Contains(t, out.SigningURL, out.RequestID)
		}
		assert.Equal(t, 2, s.svc.Store.Len())
		assert.Len(t, s.svc.Notifier.OfType(model.NotifyReadyToSign), 2)
		testutil.AssertRowCount(t, s.db, "signing_request", 2)

		doc, ok := s.svc.Store.Get("agreements/" + s.spv.ID + "/" + s.a.ID + ".txt")
		require.True(t, ok)
		assert.Contains(t, string(doc), "allots 70000 equity shares")
	})

	t.Run("an unverified investor fails alone", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db)
		project := testutil.NewProject().Build(t, db)
		spv := testutil.NewSPV().WithProject(project.ID).Build(t, db)
		verified := testutil.NewInvestor().Build(t, db)
		unverified := testutil.NewInvestor().Unverified().Build(t, db)
		testutil.CreatePayment(t, db, verified.ID, project.ID, "1000")
		testutil.CreatePayment(t, db, unverified.ID, project.ID, "1000")

		res, err := svc.Allocation.Allocate(context.Background(), spv.ID, project.ID, "ops")
		require.NoError(t, err)

		assert.Len(t, res.Entries, 2)
		assert.Equal(t, model.AgreementInitiated, agreementFor(t, res, verified.ID).Status)
		failed := agreementFor(t, res, unverified.ID)
		assert.Equal(t, model.AgreementFailed, failed.Status)
		assert.Contains(t, failed.Reason, "KYC")
		assert.Equal(t, 1, res.AgreementFailures())
	})

	t.Run("an e-sign outage for one investor does not stop the others", func(t *testing.T) {
		s := newScenario(t)
		s.svc.ESign.FailFor[s.a.ID] = errors.New("provider unavailable")

		res := s.allocate(t)

		failed := agreementFor(t, res, s.a.ID)
		assert.Equal(t, model.AgreementFailed, failed.Status)
		assert.Contains(t, failed.Reason, "provider unavailable")
		assert.Equal(t, model.AgreementInitiated, agreementFor(t, res, s.b.ID).Status)
		testutil.AssertRowCount(t, s.db, "share_ledger", 2)
	})

	t.Run("re-running skips investors with an open request", func(t *testing.T) {
		s := newScenario(t)
		s.allocate(t)

		res := s.allocate(t)

		for _, inv := range []model.Investor{s.a, s.b} {
			assert.Equal(t, model.AgreementSkipped, agreementFor(t, res, inv.ID).Status)
		}
		assert.Equal(t, 2, s.svc.ESign.CallCount())
	})

	t.Run("re-running retries an investor whose earlier attempt failed", func(t *testing.T) {
		s := newScenario(t)
		s.svc.ESign.FailFor[s.a.ID] = errors.New("provider unavailable")
		s.allocate(t)
		delete(s.svc.ESign.FailFor, s.a.ID)

		res := s.allocate(t)

		assert.Equal(t, model.AgreementInitiated, agreementFor(t, res, s.a.ID).Status)
		assert.Equal(t, model.AgreementSkipped, agreementFor(t, res, s.b.ID).Status)
	})
}
