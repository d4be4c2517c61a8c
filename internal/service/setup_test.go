package service_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/service"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/testutil"
)

// scenario is the two-investor SPV used throughout: A pays 700,000 and B
// pays 300,000 into a project whose SPV has face value 10.
type scenario struct {
	db      *sql.DB
	svc     *testutil.Services
	project model.Project
	spv     model.SPV
	a, b    model.Investor
}

func newScenario(t *testing.T) *scenario {
	t.Helper()

	db := testutil.SetupTestDB(t)
	s := &scenario{db: db, svc: testutil.NewTestServices(t, db)}
	s.project = testutil.NewProject().Build(t, db)
	s.spv = testutil.NewSPV().WithProject(s.project.ID).WithFaceValue("10").Build(t, db)
	s.a = testutil.CreateInvestor(t, db, "Asha")
	s.b = testutil.CreateInvestor(t, db, "Bharat")
	testutil.CreatePayment(t, db, s.a.ID, s.project.ID, "700000")
	testutil.CreatePayment(t, db, s.b.ID, s.project.ID, "300000")
	return s
}

func (s *scenario) allocate(t *testing.T) *model.AllocationResult {
	t.Helper()
	res, err := s.svc.Allocation.Allocate(context.Background(), s.spv.ID, s.project.ID, "ops")
	require.NoError(t, err)
	return res
}

// calculate allocates and then calculates a 10,000,000 distribution with no
// deductions or fees at the default 20% TDS.
func (s *scenario) calculate(t *testing.T) *model.Distribution {
	t.Helper()
	s.allocate(t)
	d, err := s.svc.Distribution.Calculate(context.Background(), service.CalculateInput{
		SPVID:            s.spv.ID,
		DistributionType: model.DistributionSaleProceeds,
		GrossProceeds:    testutil.Dec("10000000"),
		CalculatedBy:     "finance",
	})
	require.NoError(t, err)
	return d
}

// approved calculates a distribution, grants every approval and registers
// bank accounts for both investors.
func (s *scenario) approved(t *testing.T) *model.Distribution {
	t.Helper()
	d := s.calculate(t)
	for _, role := range []model.ApprovalRole{model.RoleAssetManager, model.RoleCompliance, model.RoleAdmin} {
		var err error
		d, err = s.svc.Approval.Approve(context.Background(), d.ID, service.ApprovalInput{Role: role, ApprovedBy: string(role) + "-user"})
		require.NoError(t, err)
	}
	require.Equal(t, model.DistributionStatusApproved, d.Status)
	testutil.CreateBankDetails(t, s.svc.BankAccounts, s.a.ID)
	testutil.CreateBankDetails(t, s.svc.BankAccounts, s.b.ID)
	return d
}

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, testutil.Dec(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func entryFor(t *testing.T, entries []model.ShareLedgerEntry, investorID string) model.ShareLedgerEntry {
	t.Helper()
	for _, e := range entries {
		if e.InvestorID == investorID {
			return e
		}
	}
	t.Fatalf("no ledger entry for investor %s", investorID)
	return model.ShareLedgerEntry{}
}

func rowFor(t *testing.T, d *model.Distribution, investorID string) model.InvestorDistribution {
	t.Helper()
	for _, r := range d.InvestorDistributions {
		if r.InvestorID == investorID {
			return r
		}
	}
	t.Fatalf("no distribution row for investor %s", investorID)
	return model.InvestorDistribution{}
}

func agreementFor(t *testing.T, res *model.AllocationResult, investorID string) model.AgreementOutcome {
	t.Helper()
	for _, a := range res.Agreements {
		if a.InvestorID == investorID {
			return a
		}
	}
	t.Fatalf("no agreement outcome for investor %s", investorID)
	return model.AgreementOutcome{}
}
