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

// ProjectService moves projects through the listing gate.
type ProjectService struct {
	projectRepo *repository.ProjectRepository
	events      *Events
	log         *logrus.Entry
	now         func() time.Time
}

// NewProjectService creates a new ProjectService with the provided repository dependencies.
func NewProjectService(projectRepo *repository.ProjectRepository, events *Events, log *logrus.Entry) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		events:      events,
		log:         log,
		now:         time.Now,
	}
}

// Get returns a project.
func (s *ProjectService) Get(ctx context.Context, projectID string) (model.Project, error) {
	return s.projectRepo.GetProject(ctx, projectID)
}

// Submit sends a draft project for asset manager review.
func (s *ProjectService) Submit(ctx context.Context, projectID, submittedBy string) (model.Project, error) {
	return s.apply(ctx, projectID, workflow.EventSubmit, submittedBy, func(p *model.Project, at *time.Time) {
		p.Approvals.Submission = model.Approval{Approved: true, ApprovedBy: submittedBy, ApprovedAt: at}
	})
}

// Approve records role's sign-off and advances the project one stage.
// The role must match the stage the project is waiting on.
func (s *ProjectService) Approve(ctx context.Context, projectID string, role model.ApprovalRole, approvedBy, comments string) (model.Project, error) {
	event, ok := workflow.ProjectApprovalEvent(role)
	if !ok {
		return model.Project{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, role)
	}
	return s.apply(ctx, projectID, event, approvedBy, func(p *model.Project, at *time.Time) {
		a := model.Approval{Approved: true, ApprovedBy: approvedBy, ApprovedAt: at, Comments: comments}
		switch role {
		case model.RoleAssetManager:
			p.Approvals.AssetManager = a
		case model.RoleCompliance:
			p.Approvals.Compliance = a
		case model.RoleAdmin:
			p.Approvals.Admin = a
		}
	})
}

// Reject closes a pending project.
func (s *ProjectService) Reject(ctx context.Context, projectID, rejectedBy, reason string) (model.Project, error) {
	return s.apply(ctx, projectID, workflow.EventReject, rejectedBy, func(p *model.Project, _ *time.Time) {
		p.RejectionReason = reason
	})
}

func (s *ProjectService) apply(ctx context.Context, projectID string, event workflow.ProjectEvent, performedBy string, mutate func(*model.Project, *time.Time)) (model.Project, error) {
	p, err := s.projectRepo.GetProject(ctx, projectID)
	if err != nil {
		return model.Project{}, err
	}
	from := p.Status
	next, err := workflow.Project.Next(from, event)
	if err != nil {
		return model.Project{}, err
	}

	now := s.now().UTC()
	mutate(&p, &now)
	p.Status = next
	p.UpdatedAt = now
	if err := s.projectRepo.UpdateStatus(ctx, p, from); err != nil {
		return model.Project{}, err
	}

	s.log.WithFields(logrus.Fields{"project_id": p.ID, "from": from, "to": next}).Info("project status changed")
	s.events.Audit(ctx, "project_"+string(event), performedBy, targetProject, p.ID, string(event),
		map[string]any{"from": string(from), "to": string(next)})
	return p, nil
}
