package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Waterfall is the result of taking gross proceeds down to per-investor payouts.
type Waterfall struct {
	Deductions             model.Deductions
	PlatformFees           model.PlatformFees
	TaxWithholding         model.TaxWithholding
	NetDistributableAmount decimal.Decimal
	DistributionPerShare   decimal.Decimal
	TotalShares            int64
	Investors              []model.InvestorDistribution
}

// computeWaterfall applies deductions, platform fees and TDS to gross and
// splits the remainder across holders by share count.
//
// TDS is taken once on the aggregate and again on each investor's gross
// share. Investor gross amounts therefore sum to the net distributable
// amount, and investor net amounts sum to net * (1 - rate/100).
func computeWaterfall(gross decimal.Decimal, deductions model.Deductions, fees model.PlatformFees, tdsRate decimal.Decimal, holders []model.Shareholder) (Waterfall, error) {
	if err := validateWaterfallInputs(gross, deductions, fees, tdsRate); err != nil {
		return Waterfall{}, err
	}

	deductions = deductions.WithTotal()
	fees = fees.WithTotal()

	afterCosts := gross.Sub(deductions.TotalDeductions).Sub(fees.TotalPlatformFees)
	if afterCosts.IsNegative() {
		return Waterfall{}, fmt.Errorf("%w: deductions and platform fees exceed gross proceeds", apperrors.ErrNegativeAmount)
	}
	tdsAmount := afterCosts.Mul(tdsRate).Div(hundred)
	net := gross.Sub(deductions.TotalDeductions).Sub(fees.TotalPlatformFees).Sub(tdsAmount)

	var totalShares int64
	for _, h := range holders {
		if h.InvestorID == "" {
			return Waterfall{}, apperrors.ErrInvalidInvestorData
		}
		totalShares += h.NumberOfShares
	}
	if totalShares <= 0 {
		return Waterfall{}, apperrors.ErrNoShareholders
	}
	total := decimal.NewFromInt(totalShares)
	perShare := net.Div(total)

	investors := make([]model.InvestorDistribution, 0, len(holders))
	for _, h := range holders {
		shares := decimal.NewFromInt(h.NumberOfShares)
		grossAmount := shares.Mul(perShare)
		investorTDS := grossAmount.Mul(tdsRate).Div(hundred)

		ownership := shares.Mul(hundred).Div(total)
		if h.EquityPercentage != nil {
			ownership = *h.EquityPercentage
		}

		investors = append(investors, model.InvestorDistribution{
			InvestorID:          h.InvestorID,
			NumberOfShares:      h.NumberOfShares,
			OwnershipPercentage: ownership,
			GrossAmount:         grossAmount,
			TDSAmount:           investorTDS,
			NetAmount:           grossAmount.Sub(investorTDS),
			PaymentStatus:       model.PaymentPending,
		})
	}

	return Waterfall{
		Deductions:             deductions,
		PlatformFees:           fees,
		TaxWithholding:         model.TaxWithholding{TDSRate: tdsRate, TDSAmount: tdsAmount},
		NetDistributableAmount: net,
		DistributionPerShare:   perShare,
		TotalShares:            totalShares,
		Investors:              investors,
	}, nil
}

func validateWaterfallInputs(gross decimal.Decimal, d model.Deductions, f model.PlatformFees, tdsRate decimal.Decimal) error {
	if gross.IsNegative() {
		return fmt.Errorf("%w: grossProceeds", apperrors.ErrNegativeAmount)
	}
	buckets := map[string]decimal.Decimal{
		"brokerageFees":    d.BrokerageFees,
		"legalFees":        d.LegalFees,
		"stampDuty":        d.StampDuty,
		"registrationFees": d.RegistrationFees,
		"capitalGainsTax":  d.CapitalGainsTax,
		"otherExpenses":    d.OtherExpenses,
		"managementFee":    f.ManagementFee,
		"performanceFee":   f.PerformanceFee,
		"transactionFee":   f.TransactionFee,
		"otherFees":        f.OtherFees,
	}
	for name, v := range buckets {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s", apperrors.ErrNegativeAmount, name)
		}
	}
	if tdsRate.IsNegative() || tdsRate.GreaterThan(hundred) {
		return apperrors.ErrInvalidTDSRate
	}
	return nil
}
