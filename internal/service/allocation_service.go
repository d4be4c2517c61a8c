package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
)

// AllocationService turns a project's settled payments into share ledger
// entries and starts the agreement signing for each investor.
type AllocationService struct {
	db          *sql.DB
	paymentRepo *repository.PaymentRepository
	ledgerRepo  *repository.ShareLedgerRepository
	spvService  *SPVService
	signing     *SigningService
	events      *Events
	log         *logrus.Entry
	now         func() time.Time
}

// NewAllocationService creates a new AllocationService with the provided dependencies.
func NewAllocationService(
	db *sql.DB,
	paymentRepo *repository.PaymentRepository,
	ledgerRepo *repository.ShareLedgerRepository,
	spvService *SPVService,
	signing *SigningService,
	events *Events,
	log *logrus.Entry,
) *AllocationService {
	return &AllocationService{
		db:          db,
		paymentRepo: paymentRepo,
		ledgerRepo:  ledgerRepo,
		spvService:  spvService,
		signing:     signing,
		events:      events,
		log:         log,
		now:         time.Now,
	}
}

type investment struct {
	investorID string
	amount     decimal.Decimal
}

// groupPayments sums settled amounts per investor, keeping the order in
// which investors first appear.
func groupPayments(payments []model.InvestorPayment) ([]investment, decimal.Decimal) {
	index := make(map[string]int)
	var out []investment
	pool := decimal.Zero
	for _, p := range payments {
		i, ok := index[p.InvestorID]
		if !ok {
			i = len(out)
			index[p.InvestorID] = i
			out = append(out, investment{investorID: p.InvestorID, amount: decimal.Zero})
		}
		out[i].amount = out[i].amount.Add(p.AmountSettled)
		pool = pool.Add(p.AmountSettled)
	}
	return out, pool
}

// computeEntries derives each investor's ledger figures from the pool.
// Percentages keep full precision; share counts are floored.
func computeEntries(spvID, projectID string, investments []investment, pool decimal.Decimal, ss model.ShareStructure, at time.Time) []model.ShareLedgerEntry {
	authorized := pool
	if ss.AuthorizedCapital != nil && ss.AuthorizedCapital.IsPositive() {
		authorized = *ss.AuthorizedCapital
	}
	fv := ss.FaceValuePerShare

	entries := make([]model.ShareLedgerEntry, 0, len(investments))
	for _, inv := range investments {
		shares, _ := inv.amount.QuoRem(fv, 0)
		entries = append(entries, model.ShareLedgerEntry{
			ID:                  uuid.New().String(),
			SPVID:               spvID,
			ProjectID:           projectID,
			InvestorID:          inv.investorID,
			InvestmentAmount:    inv.amount,
			EquityPercentage:    inv.amount.Mul(hundred).Div(pool),
			NumberOfShares:      shares.IntPart(),
			FaceValuePerShare:   fv,
			PremiumPerShare:     inv.amount.Div(authorized).Mul(fv).Sub(fv),
			TotalInvestmentPool: pool,
			Status:              model.ShareholdingDistributed,
			CreatedAt:           at,
			UpdatedAt:           at,
		})
	}
	return entries
}

// pruneDeparted deletes the project's ledger entries for investors that no
// longer hold settled payments, so the remaining entries sum to the new pool.
// An entry past distributed blocks the whole run.
func pruneDeparted(ctx context.Context, ledger *repository.ShareLedgerRepository, spvID, projectID string, investments []investment) ([]string, error) {
	current := make(map[string]bool, len(investments))
	for _, inv := range investments {
		current[inv.investorID] = true
	}

	existing, err := ledger.ListBySPVProject(ctx, spvID, projectID)
	if err != nil {
		return nil, err
	}
	var departed []model.ShareLedgerEntry
	for _, e := range existing {
		if current[e.InvestorID] {
			continue
		}
		if e.Status != model.ShareholdingDistributed {
			return nil, fmt.Errorf("%w: investor %s is %s but has no settled payments", apperrors.ErrShareholdingSigned, e.InvestorID, e.Status)
		}
		departed = append(departed, e)
	}

	removed := make([]string, 0, len(departed))
	for _, e := range departed {
		if err := ledger.Delete(ctx, spvID, e.InvestorID, model.ShareholdingDistributed); err != nil {
			return nil, err
		}
		removed = append(removed, e.InvestorID)
	}
	return removed, nil
}

// Allocate computes and stores the share ledger for spvID from projectID's
// settled payments, then initiates agreement signing per investor. An empty
// projectID selects the project the SPV is linked to.
//
// No settled payments and a zero pool are reported through the result's
// Outcome, not as errors. Agreement failures are per investor and never
// fail the allocation.
func (s *AllocationService) Allocate(ctx context.Context, spvID, projectID, performedBy string) (*model.AllocationResult, error) {
	spv, err := s.spvService.GetSPV(ctx, spvID)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		projectID = spv.ProjectID
	}
	if projectID == "" {
		return nil, apperrors.ErrSPVNotLinked
	}
	log := s.log.WithFields(logrus.Fields{"spv_id": spvID, "project_id": projectID})

	result := &model.AllocationResult{
		SPVID:               spvID,
		ProjectID:           projectID,
		TotalInvestmentPool: decimal.Zero,
		Entries:             []model.ShareLedgerEntry{},
		Agreements:          []model.AgreementOutcome{},
	}

	payments, err := s.paymentRepo.ListSettledPayments(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		log.Info(apperrors.ErrNoInvestors.Error())
		result.Outcome = model.AllocationNoInvestors
		return result, nil
	}

	investments, pool := groupPayments(payments)
	result.TotalInvestmentPool = pool
	if pool.IsZero() {
		log.Info(apperrors.ErrZeroPool.Error())
		result.Outcome = model.AllocationZeroPool
		return result, nil
	}
	if spv.MaxInvestors > 0 && len(investments) > spv.MaxInvestors {
		return nil, fmt.Errorf("%w: %d investors, limit %d", apperrors.ErrMaxInvestorsExceeded, len(investments), spv.MaxInvestors)
	}

	now := s.now().UTC()
	entries := computeEntries(spvID, projectID, investments, pool, s.spvService.ShareStructure(spv), now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op.

	ledger := s.ledgerRepo.WithTx(tx)
	removed, err := pruneDeparted(ctx, ledger, spvID, projectID, investments)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if err := ledger.Upsert(ctx, &entries[i]); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}
	result.RemovedInvestors = removed
	for _, investorID := range removed {
		s.signing.WithdrawAgreement(ctx, spvID, investorID)
	}

	// Reload so callers see stored IDs, timestamps and status.
	stored := make([]model.ShareLedgerEntry, 0, len(entries))
	for _, e := range entries {
		entry, err := s.ledgerRepo.Get(ctx, spvID, e.InvestorID)
		if err != nil {
			return nil, err
		}
		stored = append(stored, entry)
	}
	result.Entries = stored
	result.Outcome = model.AllocationAllocated

	for _, entry := range stored {
		result.Agreements = append(result.Agreements, s.signing.InitiateAgreement(ctx, spv, entry))
	}

	log.WithFields(logrus.Fields{
		"investors":          len(stored),
		"pool":               pool.String(),
		"agreement_failures": result.AgreementFailures(),
		"removed":            len(removed),
	}).Info("equity allocated")

	s.events.Audit(ctx, "equity_allocated", performedBy, targetSPV, spvID, "allocate", map[string]any{
		"projectId":         projectID,
		"investors":         len(stored),
		"totalPool":         pool.String(),
		"agreementFailures": result.AgreementFailures(),
		"removedInvestors":  removed,
	})
	return result, nil
}

// ListBySPV returns the SPV's shareholdings, largest equity first.
func (s *AllocationService) ListBySPV(ctx context.Context, spvID string) ([]model.ShareLedgerEntry, error) {
	if _, err := s.spvService.GetSPV(ctx, spvID); err != nil {
		return nil, err
	}
	return s.ledgerRepo.ListBySPV(ctx, spvID)
}

// ListByInvestor returns an investor's shareholdings, newest first.
func (s *AllocationService) ListByInvestor(ctx context.Context, investorID string) ([]model.ShareLedgerEntry, error) {
	return s.ledgerRepo.ListByInvestor(ctx, investorID)
}
