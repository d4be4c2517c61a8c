package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// TestComputeWaterfall exercises the waterfall arithmetic without storage.
//
// WHY: The waterfall decides how much money each investor receives. Its
// conservation properties must hold for awkward share counts, not just
// round numbers.
func TestComputeWaterfall(t *testing.T) {
	t.Run("conserves gross across every bucket", func(t *testing.T) {
		holders := []model.Shareholder{
			{InvestorID: "a", NumberOfShares: 1},
			{InvestorID: "b", NumberOfShares: 1},
			{InvestorID: "c", NumberOfShares: 1},
		}
		wf, err := computeWaterfall(dec("1000"),
			model.Deductions{BrokerageFees: dec("12.34"), OtherExpenses: dec("0.66")},
			model.PlatformFees{PerformanceFee: dec("50"), TransactionFee: dec("7")},
			dec("10"), holders)
		require.NoError(t, err)

		assert.True(t, wf.Deductions.TotalDeductions.Equal(dec("13")))
		assert.True(t, wf.PlatformFees.TotalPlatformFees.Equal(dec("57")))
		assert.True(t, wf.TaxWithholding.TDSAmount.Equal(dec("93")))
		assert.True(t, wf.NetDistributableAmount.Equal(dec("837")))
		assert.True(t, wf.DistributionPerShare.Equal(dec("279")))

		sum := decimal.Sum(wf.Deductions.TotalDeductions, wf.PlatformFees.TotalPlatformFees,
			wf.TaxWithholding.TDSAmount, wf.NetDistributableAmount)
		assert.True(t, sum.Equal(dec("1000")))

		// Investor tax is taken again from each gross share.
		gross, net := decimal.Zero, decimal.Zero
		for _, inv := range wf.Investors {
			gross = gross.Add(inv.GrossAmount)
			net = net.Add(inv.NetAmount)
		}
		assert.True(t, gross.Equal(dec("837")))
		assert.True(t, net.Equal(dec("753.3")))
	})

	t.Run("derives ownership when the source has none", func(t *testing.T) {
		holders := []model.Shareholder{
			{InvestorID: "a", NumberOfShares: 1},
			{InvestorID: "b", NumberOfShares: 2},
		}
		wf, err := computeWaterfall(dec("300"), model.Deductions{}, model.PlatformFees{}, decimal.Zero, holders)
		require.NoError(t, err)

		assert.True(t, wf.Investors[0].OwnershipPercentage.Equal(dec("33.3333333333333333")), wf.Investors[0].OwnershipPercentage.String())
		assert.True(t, wf.Investors[1].GrossAmount.Equal(dec("200")))
		assert.True(t, wf.Investors[1].NetAmount.Equal(dec("200")))
	})

	t.Run("keeps ownership from the ledger", func(t *testing.T) {
		equity := dec("70")
		wf, err := computeWaterfall(dec("100"), model.Deductions{}, model.PlatformFees{}, decimal.Zero,
			[]model.Shareholder{{InvestorID: "a", NumberOfShares: 5, EquityPercentage: &equity}})
		require.NoError(t, err)

		assert.True(t, wf.Investors[0].OwnershipPercentage.Equal(equity))
	})

	t.Run("a full tax rate leaves nothing to pay", func(t *testing.T) {
		wf, err := computeWaterfall(dec("100"), model.Deductions{}, model.PlatformFees{}, dec("100"),
			[]model.Shareholder{{InvestorID: "a", NumberOfShares: 1}})
		require.NoError(t, err)

		assert.True(t, wf.NetDistributableAmount.IsZero())
		assert.True(t, wf.Investors[0].NetAmount.IsZero())
	})

	t.Run("errors", func(t *testing.T) {
		one := []model.Shareholder{{InvestorID: "a", NumberOfShares: 1}}
		tests := []struct {
			name    string
			gross   string
			fees    model.PlatformFees
			rate    string
			holders []model.Shareholder
			want    error
		}{
			{"negative tds", "100", model.PlatformFees{}, "-1", one, apperrors.ErrInvalidTDSRate},
			{"fees above gross", "100", model.PlatformFees{ManagementFee: dec("100.01")}, "0", one, apperrors.ErrNegativeAmount},
			{"no holders", "100", model.PlatformFees{}, "0", nil, apperrors.ErrNoShareholders},
			{"zero shares", "100", model.PlatformFees{}, "0", []model.Shareholder{{InvestorID: "a"}}, apperrors.ErrNoShareholders},
			{"dangling holder", "100", model.PlatformFees{}, "0", []model.Shareholder{{NumberOfShares: 1}}, apperrors.ErrInvalidInvestorData},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := computeWaterfall(dec(tt.gross), model.Deductions{}, tt.fees, dec(tt.rate), tt.holders)
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})
}

func TestDistributionNumber(t *testing.T) {
	at := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)

	a := distributionNumber(at)
	b := distributionNumber(at)

	assert.Regexp(t, regexp.MustCompile(`^DIST-20260309-[0-9A-F]{8}$`), a)
	assert.NotEqual(t, a, b)
}
