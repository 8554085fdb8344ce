package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/repositories"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/validator"
)

type UserService interface {
	Create(ctx context.Context, req *CreateUserRequest) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error)
	Update(ctx context.Context, id string, req *UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=100,alphanum"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"omitempty,max=100"`
	Language    string `json:"language" validate:"omitempty,max=10"`
}

type UpdateUserRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
	AvatarURL   *string `json:"avatarUrl" validate:"omitempty,url,max=500"`
	Language    *string `json:"language" validate:"omitempty,max=10"`
	IsActive    *bool   `json:"isActive"`
}

type userService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUserService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *userService) Create(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	s.logger.Info("Creating user", "username", req.Username)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	taken, err := s.repo.User().ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUserDuplicateUsername
	}

	registered, err := s.repo.User().ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if registered {
		return nil, ErrUserDuplicateEmail
	}

	user := &models.User{
		ID:          uuid.NewString(),
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Language:    req.Language,
		IsActive:    true,
	}
	if user.DisplayName == "" {
		user.DisplayName = req.Username
	}

	if err := s.repo.User().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repo.User().GetByUsername(ctx, username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	users, total, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *userService) Update(ctx context.Context, id string, req *UpdateUserRequest) (*models.User, error) {
	s.logger.Info("Updating user", "user_id", id)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}
	if req.Language != nil {
		user.Language = *req.Language
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	s.logger.Info("Deleting user", "user_id", id)

	if _, err := s.repo.User().GetByID(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.repo.User().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
