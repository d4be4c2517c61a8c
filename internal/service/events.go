package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/notify"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
)

// Audit target entities.
const (
	targetSPV          = "spv"
	targetDistribution = "distribution"
	targetProject      = "project"
	targetShareholding = "shareholding"
)

// Events fans domain events out to the audit log and the investor notifier.
// Both sinks are best effort: failures are logged and never returned.
type Events struct {
	auditRepo *repository.AuditRepository
	notifier  notify.Notifier
	log       *logrus.Entry
	now       func() time.Time
}

// NewEvents creates a new Events sink. A nil notifier drops notifications.
func NewEvents(auditRepo *repository.AuditRepository, notifier notify.Notifier, log *logrus.Entry) *Events {
	return &Events{
		auditRepo: auditRepo,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// Audit records an audit event.
func (e *Events) Audit(ctx context.Context, eventType, performedBy, targetEntity, targetID, action string, metadata map[string]any) {
	if e == nil || e.auditRepo == nil {
		return
	}
	if performedBy == "" {
		performedBy = "system"
	}
	ev := model.AuditEvent{
		ID:           uuid.New().String(),
		EventType:    eventType,
		PerformedBy:  performedBy,
		TargetEntity: targetEntity,
		TargetID:     targetID,
		Action:       action,
		Metadata:     metadata,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.auditRepo.Insert(ctx, ev); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"event_type": eventType,
			"target_id":  targetID,
		}).Warn("audit write failed")
	}
}

// Notify sends a notification to one investor.
func (e *Events) Notify(ctx context.Context, n model.Notification) {
	if e == nil || e.notifier == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = e.now().UTC()
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"type":        n.Type,
			"investor_id": n.InvestorID,
		}).Warn("notification failed")
	}
}
