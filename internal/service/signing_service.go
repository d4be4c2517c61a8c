package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/agreement"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/esign"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/storage"
)

// SigningService generates shareholder agreements, sends them for
// e-signature and tracks each request until the shareholding completes.
type SigningService struct {
	spvService  *SPVService
	ledgerRepo  *repository.ShareLedgerRepository
	signingRepo *repository.SigningRepository
	store       storage.Store
	esign       esign.Client
	events      *Events
	log         *logrus.Entry
	now         func() time.Time
}

// NewSigningService creates a new SigningService with the provided dependencies.
func NewSigningService(
	spvService *SPVService,
	ledgerRepo *repository.ShareLedgerRepository,
	signingRepo *repository.SigningRepository,
	store storage.Store,
	esignClient esign.Client,
	events *Events,
	log *logrus.Entry,
) *SigningService {
	return &SigningService{
		spvService:  spvService,
		ledgerRepo:  ledgerRepo,
		signingRepo: signingRepo,
		store:       store,
		esign:       esignClient,
		events:      events,
		log:         log,
		now:         time.Now,
	}
}

// InitiateAgreement renders, stores and sends one investor's agreement for
// signature. It never returns an error: every failure is reported in the
// outcome so the caller can continue with the next investor.
func (s *SigningService) InitiateAgreement(ctx context.Context, spv model.SPV, entry model.ShareLedgerEntry) model.AgreementOutcome {
	out := model.AgreementOutcome{InvestorID: entry.InvestorID}
	log := s.log.WithFields(logrus.Fields{"spv_id": spv.ID, "investor_id": entry.InvestorID})

	fail := func(reason string, err error) model.AgreementOutcome {
		log.WithError(err).Warn(reason)
		out.Status = model.AgreementFailed
		out.Reason = reason
		if err != nil {
			out.Reason = fmt.Sprintf("%s: %v", reason, err)
		}
		return out
	}

	if entry.Status != model.ShareholdingDistributed {
		out.Status = model.AgreementSkipped
		out.Reason = "agreement already signed"
		return out
	}
	open, err := s.signingRepo.HasOpenRequest(ctx, spv.ID, entry.InvestorID)
	if err != nil {
		return fail("failed to check signing requests", err)
	}
	if open {
		out.Status = model.AgreementSkipped
		out.Reason = "signing already requested"
		return out
	}

	investor, err := s.spvService.GetInvestor(ctx, entry.InvestorID)
	if err != nil {
		return fail("investor lookup failed", err)
	}
	if !investor.KYCVerified {
		return fail("investor KYC is not verified", nil)
	}

	doc, err := agreement.Render(agreement.Terms{
		AgreementDate:     s.now(),
		SPVID:             spv.ID,
		SPVName:           spv.Name,
		InvestorID:        investor.ID,
		InvestorName:      investor.Name,
		InvestorEmail:     investor.Email,
		InvestmentAmount:  entry.InvestmentAmount,
		EquityPercentage:  entry.EquityPercentage,
		NumberOfShares:    entry.NumberOfShares,
		FaceValuePerShare: entry.FaceValuePerShare,
		PremiumPerShare:   entry.PremiumPerShare,
	})
	if err != nil {
		return fail("agreement generation failed", err)
	}
	docURL, err := s.store.Put(ctx, agreement.ObjectKey(spv.ID, investor.ID), doc, agreement.ContentType)
	if err != nil {
		return fail("agreement upload failed", err)
	}

	session, err := s.esign.InitiateSigning(ctx, docURL,
		model.SignerDetails{Name: investor.Name, Email: investor.Email},
		map[string]string{"spvId": spv.ID, "investorId": investor.ID, "projectId": entry.ProjectID},
	)
	if err != nil {
		return fail("e-sign initiation failed", err)
	}

	req := model.SigningRequest{
		ID:          uuid.New().String(),
		RequestID:   session.RequestID,
		SPVID:       spv.ID,
		InvestorID:  investor.ID,
		DocumentURL: docURL,
		SigningURL:  session.SigningURL,
		Status:      model.SigningPending,
		CreatedAt:   s.now().UTC(),
	}
	if !session.ExpiresAt.IsZero() {
		exp := session.ExpiresAt.UTC()
		req.ExpiresAt = &exp
	}
	if err := s.signingRepo.Insert(ctx, req); err != nil {
		return fail("failed to record signing request", err)
	}

	s.events.Notify(ctx, model.Notification{
		Type:       model.NotifyReadyToSign,
		InvestorID: investor.ID,
		Subject:    "Your shareholder agreement is ready to sign",
		Data: map[string]string{
			"spvId":      spv.ID,
			"signingUrl": session.SigningURL,
		},
	})

	out.Status = model.AgreementInitiated
	out.RequestID = session.RequestID
	out.SigningURL = session.SigningURL
	return out
}

// HandleCallback verifies an e-sign provider callback and applies it.
// A signed callback advances the shareholding to agreement_signed.
// Redelivery of an already applied callback is a no-op.
func (s *SigningService) HandleCallback(ctx context.Context, payload []byte, signature string) (model.SigningRequest, error) {
	cb, err := s.esign.VerifyCallback(payload, signature)
	if err != nil {
		return model.SigningRequest{}, err
	}

	req, err := s.signingRepo.GetByRequestID(ctx, cb.RequestID)
	if err != nil {
		return model.SigningRequest{}, err
	}
	if req.Status == cb.Status {
		return req, nil
	}

	switch cb.Status {
	case model.SigningSigned:
		signedAt := s.now().UTC()
		if cb.SignedAt != nil {
			signedAt = cb.SignedAt.UTC()
		}
		if err := s.signingRepo.Resolve(ctx, cb.RequestID, model.SigningSigned, &signedAt); err != nil {
			return model.SigningRequest{}, err
		}
		err := s.ledgerRepo.AdvanceStatus(ctx, req.SPVID, req.InvestorID,
			model.ShareholdingDistributed, model.ShareholdingAgreementSigned, s.now().UTC())
		if err != nil && !errors.Is(err, apperrors.ErrInvalidTransition) {
			return model.SigningRequest{}, fmt.Errorf("failed to advance shareholding: %w", err)
		}
		req.Status = model.SigningSigned
		req.SignedAt = &signedAt
	case model.SigningDeclined, model.SigningExpired:
		if err := s.signingRepo.Resolve(ctx, cb.RequestID, cb.Status, nil); err != nil {
			return model.SigningRequest{}, err
		}
		req.Status = cb.Status
	default:
		return model.SigningRequest{}, fmt.Errorf("%w: unexpected callback status %q", apperrors.ErrInvalidTransition, cb.Status)
	}

	s.events.Audit(ctx, "agreement_"+string(req.Status), "esign", targetShareholding, req.InvestorID, "signing_callback",
		map[string]any{"spvId": req.SPVID, "requestId": req.RequestID})
	return req, nil
}

// CompleteShareholding advances an entry from agreement_signed to completed.
func (s *SigningService) CompleteShareholding(ctx context.Context, spvID, investorID, performedBy string) (model.ShareLedgerEntry, error) {
	err := s.ledgerRepo.AdvanceStatus(ctx, spvID, investorID,
		model.ShareholdingAgreementSigned, model.ShareholdingCompleted, s.now().UTC())
	if err != nil {
		return model.ShareLedgerEntry{}, err
	}
	entry, err := s.ledgerRepo.Get(ctx, spvID, investorID)
	if err != nil {
		return model.ShareLedgerEntry{}, err
	}
	s.events.Audit(ctx, "shareholding_completed", performedBy, targetShareholding, entry.ID, "complete",
		map[string]any{"spvId": spvID, "investorId": investorID})
	return entry, nil
}

// WithdrawAgreement expires the investor's pending signing requests after
// the shareholding was removed. Failures are logged, not returned.
func (s *SigningService) WithdrawAgreement(ctx context.Context, spvID, investorID string) {
	log := s.log.WithFields(logrus.Fields{"spv_id": spvID, "investor_id": investorID})
	n, err := s.signingRepo.ExpireOpen(ctx, spvID, investorID)
	if err != nil {
		log.WithError(err).Warn("failed to withdraw agreement")
		return
	}
	if n > 0 {
		log.WithField("expired", n).Info("withdrew pending agreement")
	}
}

// ExpireStale marks pending signing requests past their deadline as expired.
func (s *SigningService) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.signingRepo.ExpirePending(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.WithField("expired", n).Info("expired stale signing requests")
	}
	return n, nil
}
