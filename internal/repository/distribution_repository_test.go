package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/testutil"
)

// TestDistributionRepository_Update verifies the revision compare-and-swap.
//
// WHY: An approval racing a recalculation must not silently overwrite the
// other writer's figures; the loser has to see ErrConcurrentModification.
func TestDistributionRepository_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewDistributionRepository(db)
	project := testutil.NewProject().Build(t, db)
	spv := testutil.NewSPV().WithProject(project.ID).Build(t, db)

	t.Run("bumps the revision on success", func(t *testing.T) {
		d := testutil.NewDistribution(spv.ID, project.ID).Build(t, db)
		d.GrossProceeds = testutil.Dec("1000")
		d.UpdatedAt = time.Now().UTC()

		require.NoError(t, repo.Update(t.Context(), d))
		assert.Equal(t, int64(2), d.Revision)

		got, err := repo.Get(t.Context(), d.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Revision)
		assert.True(t, got.GrossProceeds.Equal(testutil.Dec("1000")))
	})

	t.Run("rejects a stale writer", func(t *testing.T) {
		d := testutil.NewDistribution(spv.ID, project.ID).Build(t, db)
		first, err := repo.Get(t.Context(), d.ID)
		require.NoError(t, err)
		second, err := repo.Get(t.Context(), d.ID)
		require.NoError(t, err)

		first.Status = model.DistributionStatusCancelled
		require.NoError(t, repo.Update(t.Context(), first))

		second.GrossProceeds = testutil.Dec("5")
		err = repo.Update(t.Context(), second)

		assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)
		got, err := repo.Get(t.Context(), d.ID)
		require.NoError(t, err)
		assert.Equal(t, model.DistributionStatusCancelled, got.Status)
	})

	t.Run("reports a missing distribution", func(t *testing.T) {
		d := testutil.NewDistribution(spv.ID, project.ID).Build(t, db)
		d.ID = testutil.MakeID()

		assert.ErrorIs(t, repo.Update(t.Context(), d), apperrors.ErrDistributionNotFound)
	})
}

func TestDistributionRepository_SetInvestorPayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewDistributionRepository(db)
	project := testutil.NewProject().Build(t, db)
	spv := testutil.NewSPV().WithProject(project.ID).Build(t, db)
	inv := testutil.CreateInvestor(t, db, "Chitra")
	d := testutil.NewDistribution(spv.ID, project.ID).WithInvestor(inv.ID, 100, "800").Build(t, db)

	row := model.InvestorDistribution{InvestorID: inv.ID, PaymentStatus: model.PaymentProcessing}
	require.NoError(t, repo.SetInvestorPayment(t.Context(), d.ID, row, model.PaymentPending))

	t.Run("refuses a row in another status", func(t *testing.T) {
		err := repo.SetInvestorPayment(t.Context(), d.ID, row, model.PaymentPending)

		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	t.Run("reports a missing row", func(t *testing.T) {
		missing := model.InvestorDistribution{InvestorID: testutil.MakeID(), PaymentStatus: model.PaymentCompleted}

		err := repo.SetInvestorPayment(t.Context(), d.ID, missing, model.PaymentPending)

		assert.ErrorIs(t, err, apperrors.ErrInvestorDistributionNotFound)
	})

	t.Run("leaves the distribution revision alone", func(t *testing.T) {
		got, err := repo.Get(t.Context(), d.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(1), got.Revision)
		require.Len(t, got.InvestorDistributions, 1)
		assert.Equal(t, model.PaymentProcessing, got.InvestorDistributions[0].PaymentStatus)
	})
}

func TestDistributionRepository_CorruptColumns(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewDistributionRepository(db)
	project := testutil.NewProject().Build(t, db)
	spv := testutil.NewSPV().WithProject(project.ID).Build(t, db)
	d := testutil.NewDistribution(spv.ID, project.ID).Build(t, db)

	_, err := db.Exec(`UPDATE distribution SET approvals = '{' WHERE id = ?`, d.ID)
	require.NoError(t, err)

	_, err = repo.Get(t.Context(), d.ID)

	assert.ErrorIs(t, err, apperrors.ErrDataInconsistency)
}

func TestDistributionRepository_ListBySPV(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewDistributionRepository(db)
	project := testutil.NewProject().Build(t, db)
	spv := testutil.NewSPV().WithProject(project.ID).Build(t, db)
	inv := testutil.CreateInvestor(t, db, "Esha")
	testutil.NewDistribution(spv.ID, project.ID).WithInvestor(inv.ID, 10, "80").Build(t, db)
	testutil.NewDistribution(spv.ID, project.ID).Build(t, db)

	list, err := repo.ListBySPV(t.Context(), spv.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	rows := 0
	for _, d := range list {
		rows += len(d.InvestorDistributions)
	}
	assert.Equal(t, 1, rows)

	testutil.CleanDatabase(t, db)
	assert.Equal(t, 0, testutil.CountRows(t, db, "distribution_investor"))

	list, err = repo.ListBySPV(t.Context(), spv.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
