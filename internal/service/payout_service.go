package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/bank"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/lock"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/workflow"
)

// bankLookupConcurrency bounds parallel bank-detail lookups per batch.
const bankLookupConcurrency = 4

// PayoutService submits approved distributions to the bank and reconciles
// the per-investor results.
type PayoutService struct {
	distRepo *repository.DistributionRepository
	bankRepo *repository.BankAccountRepository
	bank     bank.Client
	locker   lock.Locker
	lockTTL  time.Duration
	events   *Events
	log      *logrus.Entry
	now      func() time.Time
}

// NewPayoutService creates a new PayoutService with the provided dependencies.
func NewPayoutService(
	distRepo *repository.DistributionRepository,
	bankRepo *repository.BankAccountRepository,
	bankClient bank.Client,
	locker lock.Locker,
	lockTTL time.Duration,
	events *Events,
	log *logrus.Entry,
) *PayoutService {
	return &PayoutService{
		distRepo: distRepo,
		bankRepo: bankRepo,
		bank:     bankClient,
		locker:   locker,
		lockTTL:  lockTTL,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// ProcessBatch pays every pending or processing investor row of an approved
// distribution in one bank batch.
//
// Missing approvals or bank details abort before anything is submitted.
// Rows with nothing to pay complete without a bank instruction and need
// no bank account.
// Once submitted, each row is reconciled on its own: a bank failure marks
// that row failed and the rest proceed. Failed rows stay failed until
// ResetFailedPayment is called.
func (s *PayoutService) ProcessBatch(ctx context.Context, distributionID, performedBy string) (*model.BatchResult, error) {
	release, ok, err := s.locker.TryLock(ctx, "distribution:"+distributionID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrBatchInProgress
	}
	defer release()

	d, err := s.distRepo.Get(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	if !d.AreAllApprovalsGranted() {
		return nil, apperrors.ErrApprovalsIncomplete
	}
	if !workflow.Distribution.Can(d.Status, workflow.EventStartProcessing) {
		return nil, fmt.Errorf("%w: cannot process a %s distribution", apperrors.ErrInvalidTransition, d.Status)
	}

	log := s.log.WithField("distribution_id", d.ID)
	result := &model.BatchResult{DistributionID: d.ID, Outcomes: []model.PayoutOutcome{}, Status: d.Status}

	selected := selectPayable(d.InvestorDistributions)
	if len(selected) == 0 {
		log.Info("no payable investor rows")
		return result, nil
	}
	payable, nothingOwed := splitZeroAmount(selected)

	details, err := s.resolveBankDetails(ctx, payable)
	if err != nil {
		return nil, err
	}

	if d.Status == model.DistributionStatusApproved {
		now := s.now().UTC()
		d.Status, _ = workflow.Distribution.Next(d.Status, workflow.EventStartProcessing)
		d.ProcessingStartedAt = &now
		d.UpdatedAt = now
		if err := s.distRepo.Update(ctx, d); err != nil {
			return nil, err
		}
	}

	result.Outcomes = append(result.Outcomes, s.settleZeroAmount(ctx, d.ID, nothingOwed, log)...)

	if len(payable) > 0 {
		instructions := make([]model.PayoutInstruction, 0, len(payable))
		for _, row := range payable {
			if row.PaymentStatus == model.PaymentPending {
				row.PaymentStatus = model.PaymentProcessing
				if err := s.distRepo.SetInvestorPayment(ctx, d.ID, row, model.PaymentPending); err != nil {
					return nil, err
				}
			}
			bd := details[row.InvestorID]
			instructions = append(instructions, model.PayoutInstruction{
				InvestorID:        row.InvestorID,
				Amount:            row.NetAmount,
				AccountNumber:     bd.AccountNumber,
				IFSC:              bd.IFSC,
				AccountHolderName: bd.AccountHolderName,
				BankName:          bd.BankName,
				Reference:         d.DistributionNumber + "/" + row.InvestorID,
			})
		}
		result.Submitted = len(instructions)

		sub, err := s.bank.SubmitBatch(ctx, d.DistributionNumber, instructions)
		if err != nil {
			log.WithError(err).Error("bank batch submission failed")
			sub = failedSubmission(payable, err, s.now().UTC())
		}
		result.BatchID = sub.BatchID
		result.Outcomes = append(result.Outcomes, s.reconcile(ctx, d, payable, sub.Results, log)...)
	}

	for _, o := range result.Outcomes {
		switch o.PaymentStatus {
		case model.PaymentCompleted:
			result.Succeeded++
		case model.PaymentFailed:
			result.Failed++
		}
	}

	final, err := s.finish(ctx, d.ID, result.BatchID)
	if err != nil {
		return nil, err
	}
	result.Status = final.Status

	log.WithFields(logrus.Fields{
		"batch_id":  result.BatchID,
		"submitted": result.Submitted,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"status":    result.Status,
	}).Info("payout batch processed")
	s.events.Audit(ctx, "payout_batch_processed", performedBy, targetDistribution, d.ID, "process_batch", map[string]any{
		"batchId":   result.BatchID,
		"submitted": result.Submitted,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	return result, nil
}

func selectPayable(rows []model.InvestorDistribution) []model.InvestorDistribution {
	var out []model.InvestorDistribution
	for _, row := range rows {
		if row.PaymentStatus == model.PaymentPending || row.PaymentStatus == model.PaymentProcessing {
			out = append(out, row)
		}
	}
	return out
}

// splitZeroAmount separates rows that owe the investor nothing. A holding
// below one share's face value yields such a row.
func splitZeroAmount(rows []model.InvestorDistribution) (payable, nothingOwed []model.InvestorDistribution) {
	for _, row := range rows {
		if row.NetAmount.IsPositive() {
			payable = append(payable, row)
		} else {
			nothingOwed = append(nothingOwed, row)
		}
	}
	return payable, nothingOwed
}

// settleZeroAmount completes rows with nothing to pay without involving the bank.
func (s *PayoutService) settleZeroAmount(ctx context.Context, distributionID string, rows []model.InvestorDistribution, log *logrus.Entry) []model.PayoutOutcome {
	outcomes := make([]model.PayoutOutcome, 0, len(rows))
	for _, row := range rows {
		now := s.now().UTC()
		update := model.InvestorDistribution{
			InvestorID:    row.InvestorID,
			PaymentStatus: model.PaymentCompleted,
			PaymentDate:   &now,
		}
		outcome := model.PayoutOutcome{InvestorID: row.InvestorID, PaymentStatus: row.PaymentStatus}
		if err := s.distRepo.SetInvestorPayment(ctx, distributionID, update, model.PaymentPending, model.PaymentProcessing); err != nil {
			log.WithError(err).WithField("investor_id", row.InvestorID).Error("failed to settle zero-amount payout")
			outcome.FailureReason = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.PaymentStatus = model.PaymentCompleted
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// resolveBankDetails looks up every selected investor's active account.
// Any missing account fails the whole batch, naming every investor affected.
func (s *PayoutService) resolveBankDetails(ctx context.Context, rows []model.InvestorDistribution) (map[string]model.BankDetails, error) {
	var (
		mu      sync.Mutex
		details = make(map[string]model.BankDetails, len(rows))
		missing []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bankLookupConcurrency)
	for _, row := range rows {
		investorID := row.InvestorID
		g.Go(func() error {
			bd, err := s.bankRepo.GetActiveBankDetails(gctx, investorID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, apperrors.ErrBankDetailsNotFound):
				missing = append(missing, investorID)
				return nil
			case err != nil:
				return err
			}
			details[investorID] = bd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", apperrors.ErrMissingBankDetails, strings.Join(missing, ", "))
	}
	return details, nil
}

// failedSubmission turns a rejected batch call into a failed result per row.
func failedSubmission(rows []model.InvestorDistribution, cause error, at time.Time) model.BatchSubmission {
	sub := model.BatchSubmission{Results: make([]model.PayoutResult, 0, len(rows))}
	for _, row := range rows {
		sub.Results = append(sub.Results, model.PayoutResult{
			InvestorID:    row.InvestorID,
			Status:        model.PayoutFailed,
			FailureReason: fmt.Sprintf("bank submission failed: %v", cause),
			ProcessedAt:   at,
		})
	}
	return sub
}

// reconcile applies each bank result to its investor row. Rows are updated
// independently; an update error is logged and leaves that row processing.
func (s *PayoutService) reconcile(ctx context.Context, d *model.Distribution, selected []model.InvestorDistribution, results []model.PayoutResult, log *logrus.Entry) []model.PayoutOutcome {
	byInvestor := make(map[string]model.PayoutResult, len(results))
	for _, r := range results {
		byInvestor[r.InvestorID] = r
	}

	outcomes := make([]model.PayoutOutcome, 0, len(selected))
	for _, row := range selected {
		outcome := model.PayoutOutcome{InvestorID: row.InvestorID, PaymentStatus: model.PaymentProcessing}
		res, ok := byInvestor[row.InvestorID]
		delete(byInvestor, row.InvestorID)

		if !ok || res.Status == model.PayoutPending {
			outcomes = append(outcomes, outcome)
			continue
		}

		update := model.InvestorDistribution{InvestorID: row.InvestorID}
		switch res.Status {
		case model.PayoutSuccess:
			paidAt := res.ProcessedAt.UTC()
			if res.ProcessedAt.IsZero() {
				paidAt = s.now().UTC()
			}
			update.PaymentStatus = model.PaymentCompleted
			update.UTR = res.UTR
			update.TransactionID = res.TransactionID
			update.PaymentDate = &paidAt
		default:
			update.PaymentStatus = model.PaymentFailed
			update.TransactionID = res.TransactionID
			update.PaymentFailureReason = res.FailureReason
			if update.PaymentFailureReason == "" {
				update.PaymentFailureReason = "payout rejected by bank"
			}
		}

		if err := s.distRepo.SetInvestorPayment(ctx, d.ID, update, model.PaymentProcessing); err != nil {
			log.WithError(err).WithField("investor_id", row.InvestorID).Error("failed to reconcile payout")
			outcome.FailureReason = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}

		outcome.PaymentStatus = update.PaymentStatus
		outcome.UTR = update.UTR
		outcome.FailureReason = update.PaymentFailureReason
		outcomes = append(outcomes, outcome)

		if update.PaymentStatus == model.PaymentCompleted {
			s.events.Notify(ctx, model.Notification{
				Type:       model.NotifyPaymentCompleted,
				InvestorID: row.InvestorID,
				Subject:    "Your distribution payment has been sent",
				Data: map[string]string{
					"distributionId": d.ID,
					"amount":         row.NetAmount.StringFixed(2),
					"utr":            update.UTR,
				},
			})
		}
	}

	for investorID := range byInvestor {
		log.WithField("investor_id", investorID).Warn("bank returned a result for an investor not in the batch")
	}
	return outcomes
}

// finish records the batch ID and completes the distribution once every
// investor row is paid.
func (s *PayoutService) finish(ctx context.Context, distributionID, batchID string) (*model.Distribution, error) {
	d, err := s.distRepo.Get(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if batchID != "" {
		d.BatchID = batchID
	}
	if d.AllPaymentsCompleted() {
		d.Status, err = workflow.Distribution.Next(d.Status, workflow.EventComplete)
		if err != nil {
			return nil, err
		}
		d.CompletedAt = &now
	}
	d.UpdatedAt = now
	if err := s.distRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ResetFailedPayment returns one failed investor row to pending so the next
// batch picks it up again.
func (s *PayoutService) ResetFailedPayment(ctx context.Context, distributionID, investorID, performedBy string) (model.InvestorDistribution, error) {
	d, err := s.distRepo.Get(ctx, distributionID)
	if err != nil {
		return model.InvestorDistribution{}, err
	}
	if workflow.Distribution.IsTerminal(d.Status) {
		return model.InvestorDistribution{}, fmt.Errorf("%w: distribution is %s", apperrors.ErrInvalidTransition, d.Status)
	}

	prev, err := s.distRepo.GetInvestor(ctx, distributionID, investorID)
	if err != nil {
		return model.InvestorDistribution{}, err
	}
	reset := model.InvestorDistribution{InvestorID: investorID, PaymentStatus: model.PaymentPending}
	if err := s.distRepo.SetInvestorPayment(ctx, distributionID, reset, model.PaymentFailed); err != nil {
		return model.InvestorDistribution{}, err
	}

	row, err := s.distRepo.GetInvestor(ctx, distributionID, investorID)
	if err != nil {
		return model.InvestorDistribution{}, err
	}
	s.events.Audit(ctx, "payout_reset", performedBy, targetDistribution, distributionID, "reset_payment", map[string]any{
		"investorId":     investorID,
		"previousReason": prev.PaymentFailureReason,
	})
	return row, nil
}
