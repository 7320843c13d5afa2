package workflow

import (
	"context"
	"docflow/internal/domain"

	"gorm.io/gorm"
)

type WorkflowRepository interface {
	List(ctx context.Context) ([]domain.Workflow, error)
	FindByID(ctx context.Context, id string) (*domain.Workflow, error)
}

type WorkflowRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) WorkflowRepository {
	return &WorkflowRepositoryImpl{db: db}
}

func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *WorkflowRepositoryImpl) List(ctx context.Context) ([]domain.Workflow, error) {
	var workflows []domain.Workflow
	err := r.db.WithContext(ctx).
		Preload("Steps", orderedSteps).
		Order("created_at DESC").
		Find(&workflows).Error
	return workflows, err
}

func (r *WorkflowRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Workflow, error) {
	var workflow domain.Workflow
	err := r.db.WithContext(ctx).
		Preload("Steps", orderedSteps).
		Where("id = ?", id).
		First(&workflow).Error
	if err != nil {
		return nil, err
	}
	return &workflow, nil
}
