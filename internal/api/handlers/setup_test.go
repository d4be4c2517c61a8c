package handlers

import (
	"database/sql"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/service"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/testutil"
)

// fixture is a listed project with one SPV (face value 10) and two
// investors who paid 700,000 and 300,000.
type fixture struct {
	db      *sql.DB
	svc     *testutil.Services
	project model.Project
	spv     model.SPV
	a, b    model.Investor

	shareholdings *ShareholdingHandler
	distributions *DistributionHandler
	projects      *ProjectHandler
	esign         *ESignHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	f := &fixture{db: db, svc: testutil.NewTestServices(t, db)}
	f.project = testutil.NewProject().Build(t, db)
	f.spv = testutil.NewSPV().WithProject(f.project.ID).WithFaceValue("10").Build(t, db)
	f.a = testutil.CreateInvestor(t, db, "Asha")
	f.b = testutil.CreateInvestor(t, db, "Bharat")
	testutil.CreatePayment(t, db, f.a.ID, f.project.ID, "700000")
	testutil.CreatePayment(t, db, f.b.ID, f.project.ID, "300000")

	f.shareholdings = NewShareholdingHandler(f.svc.Allocation, f.svc.Signing)
	f.distributions = NewDistributionHandler(f.svc.Distribution, f.svc.Approval, f.svc.Payout)
	f.projects = NewProjectHandler(f.svc.Project)
	f.esign = NewESignHandler(f.svc.Signing)
	return f
}

func (f *fixture) allocate(t *testing.T) {
	t.Helper()
	_, err := f.svc.Allocation.Allocate(t.Context(), f.spv.ID, f.project.ID, "ops")
	require.NoError(t, err)
}

// calculated allocates and calculates a 10,000,000 sale distribution at the
// default 20% TDS.
func (f *fixture) calculated(t *testing.T) *model.Distribution {
	t.Helper()
	f.allocate(t)
	d, err := f.svc.Distribution.Calculate(t.Context(), service.CalculateInput{
		SPVID:            f.spv.ID,
		DistributionType: model.DistributionSaleProceeds,
		GrossProceeds:    testutil.Dec("10000000"),
		CalculatedBy:     "finance",
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) approved(t *testing.T) *model.Distribution {
	t.Helper()
	d := f.calculated(t)
	for _, role := range []model.ApprovalRole{model.RoleAssetManager, model.RoleCompliance, model.RoleAdmin} {
		var err error
		d, err = f.svc.Approval.Approve(t.Context(), d.ID, service.ApprovalInput{Role: role, ApprovedBy: string(role) + "-user"})
		require.NoError(t, err)
	}
	testutil.CreateBankDetails(t, f.svc.BankAccounts, f.a.ID)
	testutil.CreateBankDetails(t, f.svc.BankAccounts, f.b.ID)
	return d
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}
