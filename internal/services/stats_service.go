package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/cache"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/events"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/repositories"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/validator"
)

const (
	defaultPriorityLimit = 10
	summaryHistorySize   = 10
	summaryPrioritySize  = 5
	statsCacheTTL        = 5 * time.Minute
)

// StatsService is the performance-tracking core: it records finished
// quizzes into the per-user statistics document and answers the
// read-side queries the practice UI builds sessions from.
type StatsService interface {
	RecordQuizResults(ctx context.Context, userID string, req *SubmitStatsRequest) (*SubmitStatsResponse, error)
	GetStats(ctx context.Context, userID string) (*models.UserStats, error)
	GetPriorityQuestions(ctx context.Context, userID string, category models.ExerciseCategory, limit int) (*PriorityResponse, error)
	GetPerformanceSummary(ctx context.Context, userID string) (*PerformanceSummary, error)
}

// SubmitStatsRequest is the batch a client sends after finishing a
// quiz. TimeSpent keys are "{exerciseId}-{questionId}".
type SubmitStatsRequest struct {
	Results   []models.QuizResult `json:"results" validate:"omitempty,dive"`
	TimeSpent map[string]int      `json:"timeSpent" validate:"omitempty,dive,min=0"`
}

type SubmitStatsResponse struct {
	Recorded       int `json:"recorded"`
	Correct        int `json:"correct"`
	TotalQuestions int `json:"totalQuestions"`
	CorrectAnswers int `json:"correctAnswers"`
	NewWeakPoints  int `json:"newWeakPoints"`
}

type PriorityResponse struct {
	PriorityQuestions []models.QuestionPerformance `json:"priorityQuestions"`
	TotalWeakPoints   int                          `json:"totalWeakPoints"`
	TotalNeedsReview  int                          `json:"totalNeedsReview"`
}

type PerformanceSummary struct {
	TotalQuestions    int                          `json:"totalQuestions"`
	CorrectAnswers    int                          `json:"correctAnswers"`
	SuccessRate       float64                      `json:"successRate"`
	WeakPointCount    int                          `json:"weakPointCount"`
	NeedsReviewCount  int                          `json:"needsReviewCount"`
	CategoryStats     models.CategoryStats         `json:"categoryStats"`
	RecentHistory     []models.AnswerAttempt       `json:"recentHistory"`
	PriorityQuestions []models.QuestionPerformance `json:"priorityQuestions"`
	GeneratedAt       time.Time                    `json:"generatedAt"`
}

type statsService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	cache     cache.CacheService
	publisher events.EventPublisher
}

func NewStatsService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
) StatsService {
	return &statsService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		cache:     cacheService,
		publisher: publisher,
	}
}

// ===== WRITE SIDE =====

// RecordQuizResults applies one submitted quiz to the user's stats
// document. The whole batch is folded into the document in memory and
// written back once, inside a transaction holding a row lock on the
// document — either every mutation of the batch lands, or none does.
func (s *statsService) RecordQuizResults(ctx context.Context, userID string, req *SubmitStatsRequest) (*SubmitStatsResponse, error) {
	s.logger.Info("Recording quiz results",
		"user_id", userID,
		"results_count", len(req.Results))

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var (
		outcome models.RecordOutcome
		stats   *models.UserStats
	)

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if _, err := txRepo.User().GetByID(ctx, userID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		var err error
		stats, err = txRepo.Stats().GetForUpdate(ctx, userID)
		if err != nil {
			if !repositories.IsNotFoundError(err) {
				return fmt.Errorf("failed to load stats: %w", err)
			}
			stats = models.NewUserStats(userID)
		}

		outcome = stats.RecordResults(req.Results, req.TimeSpent, time.Now())

		if err := txRepo.Stats().Save(ctx, stats); err != nil {
			return fmt.Errorf("failed to save stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, userID)
	s.publishOutcome(ctx, userID, stats, outcome)

	s.logger.Info("Quiz results recorded",
		"user_id", userID,
		"recorded", outcome.Recorded,
		"correct", outcome.Correct,
		"new_weak_points", len(outcome.NewWeakPoints))

	return &SubmitStatsResponse{
		Recorded:       outcome.Recorded,
		Correct:        outcome.Correct,
		TotalQuestions: stats.TotalQuestions,
		CorrectAnswers: stats.CorrectAnswers,
		NewWeakPoints:  len(outcome.NewWeakPoints),
	}, nil
}

// ===== READ SIDE =====

func (s *statsService) GetStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *statsService) GetPriorityQuestions(ctx context.Context, userID string, category models.ExerciseCategory, limit int) (*PriorityResponse, error) {
	if category != "" && !validCategory(category) {
		return nil, NewValidationError("category", "must be one of: reading, listening, clozetext", string(category))
	}
	if limit <= 0 {
		limit = defaultPriorityLimit
	}

	cacheKey := fmt.Sprintf("stats:%s:priority:%s:%d", userID, category, limit)
	var cached PriorityResponse
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	resp := &PriorityResponse{
		PriorityQuestions: stats.PriorityQuestions(category, limit, now),
		TotalWeakPoints:   stats.WeakPointCount(),
		TotalNeedsReview:  stats.ReviewDueCount(now),
	}

	s.cacheSet(ctx, cacheKey, resp)
	return resp, nil
}

func (s *statsService) GetPerformanceSummary(ctx context.Context, userID string) (*PerformanceSummary, error) {
	cacheKey := fmt.Sprintf("stats:%s:summary", userID)
	var cached PerformanceSummary
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summary := &PerformanceSummary{
		TotalQuestions:    stats.TotalQuestions,
		CorrectAnswers:    stats.CorrectAnswers,
		SuccessRate:       stats.OverallSuccessRate(),
		WeakPointCount:    stats.WeakPointCount(),
		NeedsReviewCount:  stats.ReviewDueCount(now),
		CategoryStats:     stats.CategoryStats,
		RecentHistory:     stats.RecentHistory(summaryHistorySize),
		PriorityQuestions: stats.PriorityQuestions("", summaryPrioritySize, now),
		GeneratedAt:       now,
	}

	s.cacheSet(ctx, cacheKey, summary)
	return summary, nil
}

// ===== HELPERS =====

// loadStats returns the user's stats document, or an empty one when
// the user exists but has not submitted anything yet.
func (s *statsService) loadStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := s.repo.Stats().Get(ctx, userID)
	if err == nil {
		return stats, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	if _, err := s.repo.User().GetByID(ctx, userID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return models.NewUserStats(userID), nil
}

func (s *statsService) invalidateCache(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("stats:%s:*", userID)); err != nil {
		s.logger.Warn("Failed to invalidate stats cache", "user_id", userID, "error", err)
	}
}

func (s *statsService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if err != cache.ErrCacheMiss {
		s.logger.Warn("Stats cache read failed", "key", key, "error", err)
	}
	return false
}

func (s *statsService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, statsCacheTTL); err != nil {
		s.logger.Warn("Stats cache write failed", "key", key, "error", err)
	}
}

// publishOutcome emits the post-commit events. Publishing failures are
// logged, never surfaced: the write already succeeded.
func (s *statsService) publishOutcome(ctx context.Context, userID string, stats *models.UserStats, outcome models.RecordOutcome) {
	if s.publisher == nil {
		return
	}

	event := events.NewStatsRecordedEvent(userID, outcome.Recorded, outcome.Correct, stats.TotalQuestions)
	if err := s.publisher.PublishStatsEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish stats recorded event", "user_id", userID, "error", err)
	}

	for _, perf := range outcome.NewWeakPoints {
		event := events.NewWeakPointFlaggedEvent(userID, perf)
		if err := s.publisher.PublishStatsEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish weak point event",
				"user_id", userID,
				"question_id", perf.QuestionID,
				"error", err)
		}
	}
}

func validCategory(category models.ExerciseCategory) bool {
	for _, c := range models.Categories() {
		if c == category {
			return true
		}
	}
	return false
}
