package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/workflow"
)

// ApprovalInput is one role's sign-off on a distribution. Comments are
// expected to be sanitized by the caller.
type ApprovalInput struct {
	Role             model.ApprovalRole
	ApprovedBy       string
	Comments         string
	ExpectedRevision *int64
}

// ApprovalService records distribution approvals. Role authorization is the
// caller's concern; the service only records a sign-off once authorized.
type ApprovalService struct {
	distRepo *repository.DistributionRepository
	events   *Events
	log      *logrus.Entry
	now      func() time.Time
}

// NewApprovalService creates a new ApprovalService with the provided repository dependencies.
func NewApprovalService(distRepo *repository.DistributionRepository, events *Events, log *logrus.Entry) *ApprovalService {
	return &ApprovalService{
		distRepo: distRepo,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// Approve grants one role's approval. The distribution reaches approved as
// soon as all three approvals are held, whichever one arrives last.
func (s *ApprovalService) Approve(ctx context.Context, distributionID string, in ApprovalInput) (*model.Distribution, error) {
	event, ok := workflow.ApprovalEvent(in.Role)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, in.Role)
	}

	d, err := s.distRepo.Get(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	if err := checkRevision(d, in.ExpectedRevision); err != nil {
		return nil, err
	}

	slot := d.Approvals.For(in.Role)
	if slot.Approved {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAlreadyApproved, in.Role)
	}
	next, err := workflow.Distribution.Next(d.Status, event)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	*slot = model.Approval{
		Approved:   true,
		ApprovedBy: in.ApprovedBy,
		ApprovedAt: &now,
		Comments:   in.Comments,
	}
	d.Status = next
	if d.Approvals.AllGranted() && workflow.Distribution.Can(d.Status, workflow.EventFinalizeApproval) {
		d.Status, _ = workflow.Distribution.Next(d.Status, workflow.EventFinalizeApproval)
		d.ApprovedAt = &now
	}
	d.UpdatedAt = now

	if err := s.distRepo.Update(ctx, d); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"distribution_id": d.ID,
		"role":            in.Role,
		"status":          d.Status,
	}).Info("distribution approval recorded")
	s.events.Audit(ctx, "distribution_approval", in.ApprovedBy, targetDistribution, d.ID, "approve_"+string(in.Role),
		map[string]any{"status": string(d.Status), "comments": in.Comments})

	if d.Status == model.DistributionStatusApproved {
		s.announce(ctx, d)
	}
	return d, nil
}

func (s *ApprovalService) announce(ctx context.Context, d *model.Distribution) {
	for _, inv := range d.InvestorDistributions {
		s.events.Notify(ctx, model.Notification{
			Type:       model.NotifyDistributionAnnounced,
			InvestorID: inv.InvestorID,
			Subject:    "A distribution has been approved for your holding",
			Data: map[string]string{
				"distributionId":     d.ID,
				"distributionNumber": d.DistributionNumber,
				"netAmount":          inv.NetAmount.StringFixed(2),
			},
		})
	}
}
