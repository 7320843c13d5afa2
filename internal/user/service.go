package user

import (
	"context"
	"docflow/internal/domain"
	"docflow/internal/errors"
	"docflow/internal/utils"
	defError "errors"

	"gorm.io/gorm"
)

// Service defines the interface for user business logic
type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uint64) (*domain.User, error)
	ListByOrganization(ctx context.Context, organization string) ([]domain.User, error)
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
}

// NewService creates a new user service
func NewService(repository UserRepository) Service {
	return &DefaultService{repository: repository}
}

// Login returns the user for req.Email, creating it on first sight. Username
// and organization default to the parts of the email address.
func (s *DefaultService) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	email := utils.NormalizeEmail(req.Email)
	if !utils.ValidEmail(email) {
		return nil, errors.BadRequest("Invalid email address", nil)
	}

	user, err := s.repository.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Unavailable("Failed to look up user", err)
	}

	username, organization := utils.SplitEmail(email)
	if req.Username != "" {
		username = req.Username
	}
	if req.Organization != "" {
		organization = req.Organization
	}

	user = &domain.User{
		Email:        email,
		Username:     username,
		Organization: organization,
	}
	if err := s.repository.Create(ctx, user); err != nil {
		// a concurrent login may have created it first
		if existing, findErr := s.repository.FindByEmail(ctx, email); findErr == nil {
			return existing, nil
		}
		return nil, errors.Unavailable("Failed to create user", err)
	}

	return user, nil
}

func (s *DefaultService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.repository.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return user, nil
}

// GetUserByID gets a user by ID
func (s *DefaultService) GetUserByID(ctx context.Context, id uint64) (*domain.User, error) {
	user, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return user, nil
}

func (s *DefaultService) ListByOrganization(ctx context.Context, organization string) ([]domain.User, error) {
	if organization == "" {
		return nil, errors.BadRequest("Organization is required", nil)
	}
	users, err := s.repository.ListByOrganization(ctx, organization)
	if err != nil {
		return nil, errors.Unavailable("Failed to list users", err)
	}
	return users, nil
}

func notFoundOr(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("User not found", err)
	}
	return errors.Unavailable("Failed to look up user", err)
}
