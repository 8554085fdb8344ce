package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/repositories"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/validator"
	"gorm.io/datatypes"
)

type ExerciseService interface {
	Create(ctx context.Context, req *CreateExerciseRequest) (*models.Exercise, error)
	GetByID(ctx context.Context, id string) (*models.Exercise, error)
	List(ctx context.Context, filters repositories.ExerciseFilters) ([]*models.Exercise, int64, error)
	Update(ctx context.Context, id string, req *UpdateExerciseRequest) (*models.Exercise, error)
	Delete(ctx context.Context, id string) error
	CountByCategory(ctx context.Context) (map[models.ExerciseCategory]int64, error)
}

// CreateExerciseRequest carries exactly one content variant; it must
// match the declared category.
type CreateExerciseRequest struct {
	Title      string                   `json:"title" validate:"required,min=1,max=200"`
	Category   models.ExerciseCategory  `json:"category" validate:"required,exercise_category"`
	Difficulty models.DifficultyLevel   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	CreatedBy  string                   `json:"createdBy" validate:"omitempty,max=255"`
	Reading    *models.ReadingContent   `json:"reading,omitempty"`
	Listening  *models.ListeningContent `json:"listening,omitempty"`
	Clozetext  *models.ClozeContent     `json:"clozetext,omitempty"`
}

type UpdateExerciseRequest struct {
	Title      *string                  `json:"title" validate:"omitempty,min=1,max=200"`
	Difficulty *models.DifficultyLevel  `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Reading    *models.ReadingContent   `json:"reading,omitempty"`
	Listening  *models.ListeningContent `json:"listening,omitempty"`
	Clozetext  *models.ClozeContent     `json:"clozetext,omitempty"`
}

type exerciseService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewExerciseService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ExerciseService {
	return &exerciseService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *exerciseService) Create(ctx context.Context, req *CreateExerciseRequest) (*models.Exercise, error) {
	s.logger.Info("Creating exercise", "title", req.Title, "category", req.Category)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	content, count, err := s.encodeContent(req.Category, req.Reading, req.Listening, req.Clozetext)
	if err != nil {
		return nil, err
	}

	exercise := &models.Exercise{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Category:   req.Category,
		Difficulty: req.Difficulty,
		Content:    content,
		CreatedBy:  req.CreatedBy,
	}
	if exercise.Difficulty == "" {
		exercise.Difficulty = models.DifficultyMedium
	}

	if err := s.repo.Exercise().Create(ctx, exercise); err != nil {
		return nil, fmt.Errorf("failed to create exercise: %w", err)
	}

	exercise.QuestionCount = count
	s.logger.Info("Exercise created", "exercise_id", exercise.ID, "questions", count)
	return exercise, nil
}

func (s *exerciseService) GetByID(ctx context.Context, id string) (*models.Exercise, error) {
	exercise, err := s.repo.Exercise().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExerciseNotFound
		}
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}

	s.fillQuestionCount(exercise)
	return exercise, nil
}

func (s *exerciseService) List(ctx context.Context, filters repositories.ExerciseFilters) ([]*models.Exercise, int64, error) {
	exercises, total, err := s.repo.Exercise().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list exercises: %w", err)
	}

	for _, exercise := range exercises {
		s.fillQuestionCount(exercise)
	}
	return exercises, total, nil
}

func (s *exerciseService) Update(ctx context.Context, id string, req *UpdateExerciseRequest) (*models.Exercise, error) {
	s.logger.Info("Updating exercise", "exercise_id", id)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	exercise, err := s.repo.Exercise().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExerciseNotFound
		}
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}

	if req.Title != nil {
		exercise.Title = *req.Title
	}
	if req.Difficulty != nil {
		exercise.Difficulty = *req.Difficulty
	}
	if req.Reading != nil || req.Listening != nil || req.Clozetext != nil {
		// Content updates must still match the stored category.
		content, _, err := s.encodeContent(exercise.Category, req.Reading, req.Listening, req.Clozetext)
		if err != nil {
			return nil, err
		}
		exercise.Content = content
	}

	if err := s.repo.Exercise().Update(ctx, exercise); err != nil {
		return nil, fmt.Errorf("failed to update exercise: %w", err)
	}

	s.fillQuestionCount(exercise)
	return exercise, nil
}

func (s *exerciseService) Delete(ctx context.Context, id string) error {
	s.logger.Info("Deleting exercise", "exercise_id", id)

	if _, err := s.repo.Exercise().GetByID(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrExerciseNotFound
		}
		return fmt.Errorf("failed to get exercise: %w", err)
	}

	if err := s.repo.Exercise().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete exercise: %w", err)
	}
	return nil
}

func (s *exerciseService) CountByCategory(ctx context.Context) (map[models.ExerciseCategory]int64, error) {
	counts, err := s.repo.Exercise().CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count exercises: %w", err)
	}
	return counts, nil
}

// encodeContent validates that exactly the variant matching the
// category is present and serializes it for storage.
func (s *exerciseService) encodeContent(
	category models.ExerciseCategory,
	reading *models.ReadingContent,
	listening *models.ListeningContent,
	clozetext *models.ClozeContent,
) (datatypes.JSON, int, error) {
	var payload interface{}
	var count int

	switch category {
	case models.CategoryReading:
		if reading == nil {
			return nil, 0, NewValidationError("reading", "reading content is required for this category", nil)
		}
		if err := s.validator.Validate(reading); err != nil {
			return nil, 0, fmt.Errorf("validation failed: %w", err)
		}
		payload, count = reading, len(reading.Questions)
	case models.CategoryListening:
		if listening == nil {
			return nil, 0, NewValidationError("listening", "listening content is required for this category", nil)
		}
		if err := s.validator.Validate(listening); err != nil {
			return nil, 0, fmt.Errorf("validation failed: %w", err)
		}
		payload, count = listening, len(listening.Questions)
	case models.CategoryClozetext:
		if clozetext == nil {
			return nil, 0, NewValidationError("clozetext", "clozetext content is required for this category", nil)
		}
		if err := s.validator.Validate(clozetext); err != nil {
			return nil, 0, fmt.Errorf("validation failed: %w", err)
		}
		payload, count = clozetext, len(clozetext.Questions)
	default:
		return nil, 0, ErrExerciseInvalidCategory
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode exercise content: %w", err)
	}
	return raw, count, nil
}

func (s *exerciseService) fillQuestionCount(exercise *models.Exercise) {
	questions, err := exercise.Questions()
	if err != nil {
		s.logger.Warn("Failed to decode exercise content",
			"exercise_id", exercise.ID,
			"category", exercise.Category,
			"error", err)
		return
	}
	exercise.QuestionCount = len(questions)
}
