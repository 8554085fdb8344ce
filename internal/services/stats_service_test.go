package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/events"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/repositories"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/validator"
	"gorm.io/gorm"
)

// ===== MOCKS =====

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockExerciseRepository struct {
	mock.Mock
}

func (m *MockExerciseRepository) Create(ctx context.Context, exercise *models.Exercise) error {
	return m.Called(ctx, exercise).Error(0)
}

func (m *MockExerciseRepository) CreateBatch(ctx context.Context, exercises []*models.Exercise) error {
	return m.Called(ctx, exercises).Error(0)
}

func (m *MockExerciseRepository) GetByID(ctx context.Context, id string) (*models.Exercise, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Exercise), args.Error(1)
}

func (m *MockExerciseRepository) List(ctx context.Context, filters repositories.ExerciseFilters) ([]*models.Exercise, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Exercise), args.Get(1).(int64), args.Error(2)
}

func (m *MockExerciseRepository) Update(ctx context.Context, exercise *models.Exercise) error {
	return m.Called(ctx, exercise).Error(0)
}

func (m *MockExerciseRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockExerciseRepository) CountByCategory(ctx context.Context) (map[models.ExerciseCategory]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[models.ExerciseCategory]int64), args.Error(1)
}

type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserStats), args.Error(1)
}

func (m *MockStatsRepository) GetForUpdate(ctx context.Context, userID string) (*models.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserStats), args.Error(1)
}

func (m *MockStatsRepository) Save(ctx context.Context, stats *models.UserStats) error {
	return m.Called(ctx, stats).Error(0)
}

// MockRepository runs transaction callbacks against itself, so tests
// see the same mocks inside and outside the transaction.
type MockRepository struct {
	user     *MockUserRepository
	exercise *MockExerciseRepository
	stats    *MockStatsRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		user:     new(MockUserRepository),
		exercise: new(MockExerciseRepository),
		stats:    new(MockStatsRepository),
	}
}

func (m *MockRepository) User() repositories.UserRepository         { return m.user }
func (m *MockRepository) Exercise() repositories.ExerciseRepository { return m.exercise }
func (m *MockRepository) Stats() repositories.StatsRepository       { return m.stats }

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *MockRepository) Ping(ctx context.Context) error { return nil }
func (m *MockRepository) Close() error                   { return nil }

// ===== HELPERS =====

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStatsService(repo *MockRepository, publisher events.EventPublisher) StatsService {
	return NewStatsService(repo, testLogger(), validator.New(), nil, publisher)
}

func quizResult(id, exerciseID string, correct bool) models.QuizResult {
	return models.QuizResult{
		ID:            id,
		ExerciseID:    exerciseID,
		Category:      models.CategoryReading,
		Type:          models.QuestionMultipleChoice,
		Question:      "question " + id,
		UserAnswer:    "A",
		CorrectAnswer: "B",
		IsCorrect:     correct,
	}
}

// ===== TESTS =====

func TestRecordQuizResults_FirstSubmission(t *testing.T) {
	repo := NewMockRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	service := newTestStatsService(repo, publisher)

	repo.user.On("GetByID", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)
	repo.stats.On("GetForUpdate", mock.Anything, "u1").Return(nil, gorm.ErrRecordNotFound)
	repo.stats.On("Save", mock.Anything, mock.AnythingOfType("*models.UserStats")).Return(nil)

	resp, err := service.RecordQuizResults(context.Background(), "u1", &SubmitStatsRequest{
		Results: []models.QuizResult{
			quizResult("q1", "ex1", true),
			quizResult("q2", "ex1", false),
		},
		TimeSpent: map[string]int{models.TimeSpentKey("ex1", "q1"): 10},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, resp.Recorded)
	assert.Equal(t, 1, resp.Correct)
	assert.Equal(t, 2, resp.TotalQuestions)
	assert.Equal(t, 1, resp.CorrectAnswers)
	assert.Equal(t, 0, resp.NewWeakPoints)

	saved := repo.stats.Calls[1].Arguments.Get(1).(*models.UserStats)
	assert.Equal(t, "u1", saved.UserID)
	assert.Len(t, saved.AnswerHistory, 2)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventStatsRecorded, published[0].Type)

	repo.user.AssertExpectations(t)
	repo.stats.AssertExpectations(t)
}

func TestRecordQuizResults_AppendsToExistingStats(t *testing.T) {
	repo := NewMockRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	service := newTestStatsService(repo, publisher)

	existing := models.NewUserStats("u1")
	existing.RecordResults([]models.QuizResult{quizResult("q1", "ex1", false)}, nil, time.Now())

	repo.user.On("GetByID", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)
	repo.stats.On("GetForUpdate", mock.Anything, "u1").Return(existing, nil)
	repo.stats.On("Save", mock.Anything, mock.AnythingOfType("*models.UserStats")).Return(nil)

	resp, err := service.RecordQuizResults(context.Background(), "u1", &SubmitStatsRequest{
		Results: []models.QuizResult{quizResult("q1", "ex1", false)},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalQuestions)
	assert.Equal(t, 1, resp.NewWeakPoints, "second miss crosses the weak-point threshold")

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventStatsRecorded, published[0].Type)
	assert.Equal(t, events.EventWeakPointFlagged, published[1].Type)
}

func TestRecordQuizResults_UserNotFound(t *testing.T) {
	repo := NewMockRepository()
	service := newTestStatsService(repo, events.NewMockEventPublisher(testLogger()))

	repo.user.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

	_, err := service.RecordQuizResults(context.Background(), "missing", &SubmitStatsRequest{
		Results: []models.QuizResult{quizResult("q1", "ex1", true)},
	})

	assert.ErrorIs(t, err, ErrUserNotFound)
	repo.stats.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRecordQuizResults_InvalidResult(t *testing.T) {
	repo := NewMockRepository()
	service := newTestStatsService(repo, events.NewMockEventPublisher(testLogger()))

	bad := quizResult("q1", "ex1", true)
	bad.Category = "speaking"

	_, err := service.RecordQuizResults(context.Background(), "u1", &SubmitStatsRequest{
		Results: []models.QuizResult{bad},
	})

	require.Error(t, err)
	assert.True(t, IsValidation(err))
	repo.user.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRecordQuizResults_EmptyBatchStillPersists(t *testing.T) {
	repo := NewMockRepository()
	service := newTestStatsService(repo, events.NewMockEventPublisher(testLogger()))

	repo.user.On("GetByID", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)
	repo.stats.On("GetForUpdate", mock.Anything, "u1").Return(nil, gorm.ErrRecordNotFound)
	repo.stats.On("Save", mock.Anything, mock.AnythingOfType("*models.UserStats")).Return(nil)

	resp, err := service.RecordQuizResults(context.Background(), "u1", &SubmitStatsRequest{})

	require.NoError(t, err)
	assert.Equal(t, 0, resp.Recorded)
	assert.Equal(t, 0, resp.TotalQuestions)
}

func TestGetStats_EmptyDocumentForNewUser(t *testing.T) {
	repo := NewMockRepository()
	service := newTestStatsService(repo, events.NewMockEventPublisher(testLogger()))

	repo.stats.On("Get", mock.Anything, "u1").Return(nil, gorm.ErrRecordNotFound)
	repo.user.On("GetByID", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)

	stats, err := service.GetStats(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "u1", stats.UserID)
	assert.Zero(t, stats.TotalQuestions)
}

func TestGetStats_UnknownUser(t *testing.T) {
	repo := NewMockRepository()
	service := newTestStatsService(repo, events.NewMockEventPublisher(testLogger()))

	repo.stats.On("Get", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)
	repo.user.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

	_, err := service.GetStats(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetPriorityQuestions(t *testing.T) {
	repo := NewMockRepository()
	service := newTestStatsService(repo, events.NewMockEventPublisher(testLogger()))

	stats := models.NewUserStats("u1")
	now := time.Now()
	stats.RecordResults([]models.QuizResult{
		quizResult("q1", "ex1", false),
		quizResult("q1", "ex1", false),
		quizResult("q2", "ex1", true),
	}, nil, now)

	repo.stats.On("Get", mock.Anything, "u1").Return(stats, nil)

	resp, err := service.GetPriorityQuestions(context.Background(), "u1", "", 0)

	require.NoError(t, err)
	require.NotEmpty(t, resp.PriorityQuestions)
	assert.Equal(t, "q1", resp.PriorityQuestions[0].QuestionID)
	assert.Equal(t, 1, resp.TotalWeakPoints)
	assert.Equal(t, 1, resp.TotalNeedsReview)
}

func TestGetPriorityQuestions_InvalidCategory(t *testing.T) {
	repo := NewMockRepository()
	service := newTestStatsService(repo, events.NewMockEventPublisher(testLogger()))

	_, err := service.GetPriorityQuestions(context.Background(), "u1", "speaking", 0)

	require.Error(t, err)
	var validationError *ValidationError
	assert.ErrorAs(t, err, &validationError)
}

func TestGetPerformanceSummary(t *testing.T) {
	repo := NewMockRepository()
	service := newTestStatsService(repo, events.NewMockEventPublisher(testLogger()))

	stats := models.NewUserStats("u1")
	stats.RecordResults([]models.QuizResult{
		quizResult("q1", "ex1", true),
		quizResult("q2", "ex1", true),
		quizResult("q3", "ex1", false),
	}, nil, time.Now())

	repo.stats.On("Get", mock.Anything, "u1").Return(stats, nil)

	summary, err := service.GetPerformanceSummary(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalQuestions)
	assert.Equal(t, 2, summary.CorrectAnswers)
	assert.InDelta(t, 200.0/3.0, summary.SuccessRate, 1e-9)
	assert.Equal(t, 3, summary.CategoryStats.Reading.Total)
	assert.Len(t, summary.RecentHistory, 3)
	assert.Equal(t, "q3", summary.RecentHistory[0].QuestionID, "most recent first")
}
