package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/workflow"
)

// CalculateInput is the input of DistributionService.Calculate.
// A nil TDSRate selects the configured default.
type CalculateInput struct {
	SPVID            string
	DistributionType model.DistributionType
	GrossProceeds    decimal.Decimal
	Deductions       model.Deductions
	PlatformFees     model.PlatformFees
	TDSRate          *decimal.Decimal
	CalculatedBy     string
}

// RecalculateInput carries the fields to change; nil fields keep their
// stored value. ExpectedRevision, when set, must match the stored revision.
type RecalculateInput struct {
	DistributionType *model.DistributionType
	GrossProceeds    *decimal.Decimal
	Deductions       *model.Deductions
	PlatformFees     *model.PlatformFees
	TDSRate          *decimal.Decimal
	CalculatedBy     string
	ExpectedRevision *int64
}

// DistributionService calculates distributions and manages their
// pre-approval lifecycle.
type DistributionService struct {
	db             *sql.DB
	spvRepo        *repository.SPVRepository
	distRepo       *repository.DistributionRepository
	sources        []ShareholderSource
	defaultTDSRate decimal.Decimal
	events         *Events
	log            *logrus.Entry
	now            func() time.Time
}

// NewDistributionService creates a new DistributionService. sources are
// consulted in order; the first one with rows for the SPV wins.
func NewDistributionService(
	db *sql.DB,
	spvRepo *repository.SPVRepository,
	distRepo *repository.DistributionRepository,
	sources []ShareholderSource,
	defaultTDSRate decimal.Decimal,
	events *Events,
	log *logrus.Entry,
) *DistributionService {
	return &DistributionService{
		db:             db,
		spvRepo:        spvRepo,
		distRepo:       distRepo,
		sources:        sources,
		defaultTDSRate: defaultTDSRate,
		events:         events,
		log:            log,
		now:            time.Now,
	}
}

// distributionNumber formats DIST-YYYYMMDD-XXXXXXXX.
func distributionNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("DIST-%s-%s", at.Format("20060102"), suffix)
}

// loadLinkedShareholders resolves the SPV, requires its project link and
// reads its shareholders.
func (s *DistributionService) loadLinkedShareholders(ctx context.Context, spvID string) (model.SPV, []model.Shareholder, error) {
	spv, err := s.spvRepo.GetSPV(ctx, spvID)
	if err != nil {
		return model.SPV{}, nil, err
	}
	if spv.ProjectID == "" {
		return model.SPV{}, nil, apperrors.ErrSPVNotLinked
	}
	holders, source, err := loadShareholders(ctx, s.sources, spv)
	if err != nil {
		return model.SPV{}, nil, err
	}
	s.log.WithFields(logrus.Fields{"spv_id": spvID, "source": source, "holders": len(holders)}).Debug("shareholders loaded")
	return spv, holders, nil
}

// Calculate computes a new distribution and stores it as calculated.
func (s *DistributionService) Calculate(ctx context.Context, in CalculateInput) (*model.Distribution, error) {
	if !model.ValidDistributionTypes[in.DistributionType] {
		return nil, apperrors.ErrInvalidDistributionType
	}
	tdsRate := s.defaultTDSRate
	if in.TDSRate != nil {
		tdsRate = *in.TDSRate
	}
	if err := validateWaterfallInputs(in.GrossProceeds, in.Deductions, in.PlatformFees, tdsRate); err != nil {
		return nil, err
	}

	spv, holders, err := s.loadLinkedShareholders(ctx, in.SPVID)
	if err != nil {
		return nil, err
	}
	wf, err := computeWaterfall(in.GrossProceeds, in.Deductions, in.PlatformFees, tdsRate, holders)
	if err != nil {
		return nil, err
	}

	status, err := workflow.Distribution.Next(model.DistributionStatusDraft, workflow.EventCalculate)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	d := &model.Distribution{
		ID:                 uuid.New().String(),
		SPVID:              spv.ID,
		ProjectID:          spv.ProjectID,
		DistributionNumber: distributionNumber(now),
		DistributionType:   in.DistributionType,
		GrossProceeds:      in.GrossProceeds,
		Status:             status,
		CalculatedAt:       &now,
		CalculatedBy:       in.CalculatedBy,
		Revision:           1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	applyWaterfall(d, wf)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op.

	if err := s.distRepo.WithTx(tx).Insert(ctx, d); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit distribution: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"distribution_id": d.ID,
		"spv_id":          d.SPVID,
		"net":             d.NetDistributableAmount.String(),
		"per_share":       d.DistributionPerShare.String(),
	}).Info("distribution calculated")
	s.events.Audit(ctx, "distribution_calculated", in.CalculatedBy, targetDistribution, d.ID, "calculate", map[string]any{
		"distributionNumber": d.DistributionNumber,
		"grossProceeds":      d.GrossProceeds.String(),
		"netDistributable":   d.NetDistributableAmount.String(),
	})
	return d, nil
}

func applyWaterfall(d *model.Distribution, wf Waterfall) {
	d.Deductions = wf.Deductions
	d.PlatformFees = wf.PlatformFees
	d.TaxWithholding = wf.TaxWithholding
	d.NetDistributableAmount = wf.NetDistributableAmount
	d.DistributionPerShare = wf.DistributionPerShare
	d.TotalShares = wf.TotalShares
	d.InvestorDistributions = wf.Investors
}

// checkEditable rejects edits and cancellation once any approval exists.
func checkEditable(d *model.Distribution) error {
	if d.Approvals.AnyGranted() {
		return fmt.Errorf("%w: an approval has been granted", apperrors.ErrDistributionLocked)
	}
	return nil
}

func checkRevision(d *model.Distribution, expected *int64) error {
	if expected != nil && *expected != d.Revision {
		return fmt.Errorf("%w: expected revision %d, found %d", apperrors.ErrConcurrentModification, *expected, d.Revision)
	}
	return nil
}

// Recalculate re-derives an editable distribution in place. Every investor
// row is rebuilt from the current shareholders with payment status pending.
func (s *DistributionService) Recalculate(ctx context.Context, distributionID string, in RecalculateInput) (*model.Distribution, error) {
	d, err := s.distRepo.Get(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(d); err != nil {
		return nil, err
	}
	status, err := workflow.Distribution.Next(d.Status, workflow.EventRecalculate)
	if err != nil {
		return nil, err
	}
	if err := checkRevision(d, in.ExpectedRevision); err != nil {
		return nil, err
	}

	if in.DistributionType != nil {
		if !model.ValidDistributionTypes[*in.DistributionType] {
			return nil, apperrors.ErrInvalidDistributionType
		}
		d.DistributionType = *in.DistributionType
	}
	if in.GrossProceeds != nil {
		d.GrossProceeds = *in.GrossProceeds
	}
	if in.Deductions != nil {
		d.Deductions = *in.Deductions
	}
	if in.PlatformFees != nil {
		d.PlatformFees = *in.PlatformFees
	}
	tdsRate := d.TaxWithholding.TDSRate
	if in.TDSRate != nil {
		tdsRate = *in.TDSRate
	}

	_, holders, err := s.loadLinkedShareholders(ctx, d.SPVID)
	if err != nil {
		return nil, err
	}
	wf, err := computeWaterfall(d.GrossProceeds, d.Deductions, d.PlatformFees, tdsRate, holders)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	applyWaterfall(d, wf)
	d.Status = status
	d.CalculatedAt = &now
	if in.CalculatedBy != "" {
		d.CalculatedBy = in.CalculatedBy
	}
	d.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op.

	repo := s.distRepo.WithTx(tx)
	if err := repo.Update(ctx, d); err != nil {
		return nil, err
	}
	if err := repo.ReplaceInvestors(ctx, d.ID, d.InvestorDistributions, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit recalculation: %w", err)
	}

	s.events.Audit(ctx, "distribution_recalculated", in.CalculatedBy, targetDistribution, d.ID, "recalculate", map[string]any{
		"grossProceeds":    d.GrossProceeds.String(),
		"netDistributable": d.NetDistributableAmount.String(),
		"revision":         d.Revision,
	})
	return d, nil
}

// Get returns a distribution with its investor rows.
func (s *DistributionService) Get(ctx context.Context, distributionID string) (*model.Distribution, error) {
	return s.distRepo.Get(ctx, distributionID)
}

// ListBySPV returns every distribution of an SPV.
func (s *DistributionService) ListBySPV(ctx context.Context, spvID string) ([]model.Distribution, error) {
	if _, err := s.spvRepo.GetSPV(ctx, spvID); err != nil {
		return nil, err
	}
	return s.distRepo.ListBySPV(ctx, spvID)
}

// Cancel closes a distribution that has no approvals yet.
func (s *DistributionService) Cancel(ctx context.Context, distributionID, reason, performedBy string, expectedRevision *int64) (*model.Distribution, error) {
	d, err := s.distRepo.Get(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(d); err != nil {
		return nil, err
	}
	return s.close(ctx, d, workflow.EventCancel, reason, performedBy, expectedRevision)
}

// MarkFailed closes a distribution that has not started processing.
func (s *DistributionService) MarkFailed(ctx context.Context, distributionID, reason, performedBy string, expectedRevision *int64) (*model.Distribution, error) {
	d, err := s.distRepo.Get(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	return s.close(ctx, d, workflow.EventFail, reason, performedBy, expectedRevision)
}

func (s *DistributionService) close(ctx context.Context, d *model.Distribution, event workflow.DistributionEvent, reason, performedBy string, expectedRevision *int64) (*model.Distribution, error) {
	next, err := workflow.Distribution.Next(d.Status, event)
	if err != nil {
		return nil, err
	}
	if err := checkRevision(d, expectedRevision); err != nil {
		return nil, err
	}

	d.Status = next
	d.ClosedReason = reason
	d.UpdatedAt = s.now().UTC()
	if err := s.distRepo.Update(ctx, d); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"distribution_id": d.ID, "status": d.Status}).Info("distribution closed")
	s.events.Audit(ctx, "distribution_"+string(d.Status), performedBy, targetDistribution, d.ID, string(event),
		map[string]any{"reason": reason})
	return d, nil
}
