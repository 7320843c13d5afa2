package workflow

import (
	"context"
	"docflow/internal/domain"
	"docflow/internal/errors"
	defError "errors"

	"gorm.io/gorm"
)

type Service interface {
	ListWorkflows(ctx context.Context) ([]domain.WorkflowView, error)
	GetWorkflow(ctx context.Context, id string) (*domain.WorkflowView, error)
}

type DefaultService struct {
	repo WorkflowRepository
}

func NewService(repo WorkflowRepository) Service {
	return &DefaultService{repo: repo}
}

func (s *DefaultService) ListWorkflows(ctx context.Context) ([]domain.WorkflowView, error) {
	workflows, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Unavailable("Service unavailable", err)
	}

	views := make([]domain.WorkflowView, 0, len(workflows))
	for _, w := range workflows {
		views = append(views, domain.NewWorkflowView(w))
	}
	return views, nil
}

func (s *DefaultService) GetWorkflow(ctx context.Context, id string) (*domain.WorkflowView, error) {
	workflow, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Workflow not found", err)
		}
		return nil, errors.Unavailable("Service unavailable", err)
	}

	view := domain.NewWorkflowView(*workflow)
	return &view, nil
}
