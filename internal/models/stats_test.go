package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(id, exerciseID string, category ExerciseCategory, correct bool) QuizResult {
	return QuizResult{
		ID:            id,
		ExerciseID:    exerciseID,
		Category:      category,
		Type:          QuestionMultipleChoice,
		Question:      "question " + id,
		UserAnswer:    "A",
		CorrectAnswer: "B",
		IsCorrect:     correct,
	}
}

func TestRecordResults_Counters(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")

	outcome := stats.RecordResults([]QuizResult{
		result("q1", "ex1", CategoryReading, true),
		result("q2", "ex1", CategoryReading, false),
		result("q3", "ex2", CategoryListening, true),
	}, nil, now)

	assert.Equal(t, 3, outcome.Recorded)
	assert.Equal(t, 2, outcome.Correct)
	assert.Equal(t, 3, stats.TotalQuestions)
	assert.Equal(t, 2, stats.CorrectAnswers)
	assert.Len(t, stats.AnswerHistory, 3)
	assert.Len(t, stats.Performance, 3)
	assert.Len(t, stats.WrongAnswers, 1)

	assert.Equal(t, 2, stats.CategoryStats.Reading.Total)
	assert.Equal(t, 1, stats.CategoryStats.Reading.Correct)
	assert.Equal(t, 1, stats.CategoryStats.Listening.Total)
	assert.Equal(t, 1, stats.CategoryStats.Listening.Correct)
	assert.Equal(t, 0, stats.CategoryStats.Clozetext.Total)
}

func TestRecordResults_EmptyBatch(t *testing.T) {
	stats := NewUserStats("u1")

	outcome := stats.RecordResults(nil, nil, time.Now())

	assert.Equal(t, 0, outcome.Recorded)
	assert.Equal(t, 0, stats.TotalQuestions)
	assert.Empty(t, stats.AnswerHistory)
	assert.Empty(t, stats.Performance)
}

func TestRecordResults_SuccessRateExact(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")

	stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, true)}, nil, now)
	stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, false)}, nil, now)
	stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, false)}, nil, now)

	require.Len(t, stats.Performance, 1)
	perf := stats.Performance[0]
	assert.Equal(t, 3, perf.TotalAttempts)
	assert.Equal(t, 1, perf.CorrectAttempts)
	assert.Equal(t, 2, perf.WrongAttempts)
	assert.InDelta(t, 100.0/3.0, perf.SuccessRate, 1e-9)
}

func TestRecordResults_SameQuestionDifferentExercise(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")

	stats.RecordResults([]QuizResult{
		result("q1", "ex1", CategoryReading, true),
		result("q1", "ex2", CategoryReading, false),
	}, nil, now)

	// Identity is the (questionId, exerciseId) pair.
	assert.Len(t, stats.Performance, 2)
}

func TestRecordResults_HistoryCap(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")

	batch := make([]QuizResult, 0, 250)
	for i := 0; i < 250; i++ {
		batch = append(batch, result(fmt.Sprintf("q%d", i), "ex1", CategoryReading, true))
	}
	for i := 0; i < 5; i++ {
		stats.RecordResults(batch, nil, now)
	}

	assert.Len(t, stats.AnswerHistory, 1000)
	// The oldest batch was evicted, so the log starts at the second one.
	assert.Equal(t, "q0", stats.AnswerHistory[0].QuestionID)
	assert.Equal(t, 1250, stats.TotalQuestions, "counters keep growing past the history cap")
}

func TestRecordResults_WeakPointThreshold(t *testing.T) {
	now := time.Now()

	t.Run("single wrong attempt is not weak", func(t *testing.T) {
		stats := NewUserStats("u1")
		outcome := stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, false)}, nil, now)

		require.Len(t, stats.Performance, 1)
		assert.False(t, stats.Performance[0].IsWeakPoint)
		assert.Empty(t, outcome.NewWeakPoints)
	})

	t.Run("second wrong attempt flags weak", func(t *testing.T) {
		stats := NewUserStats("u1")
		stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, false)}, nil, now)
		outcome := stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, false)}, nil, now)

		require.Len(t, stats.Performance, 1)
		assert.True(t, stats.Performance[0].IsWeakPoint)
		require.Len(t, outcome.NewWeakPoints, 1)
		assert.Equal(t, "q1", outcome.NewWeakPoints[0].QuestionID)
	})

	t.Run("exactly 50 percent is not weak", func(t *testing.T) {
		stats := NewUserStats("u1")
		stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, true)}, nil, now)
		stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, false)}, nil, now)

		assert.False(t, stats.Performance[0].IsWeakPoint)
	})

	t.Run("recovery clears the flag", func(t *testing.T) {
		stats := NewUserStats("u1")
		stats.RecordResults([]QuizResult{
			result("q1", "ex1", CategoryReading, false),
			result("q1", "ex1", CategoryReading, false),
		}, nil, now)
		require.True(t, stats.Performance[0].IsWeakPoint)

		stats.RecordResults([]QuizResult{
			result("q1", "ex1", CategoryReading, true),
			result("q1", "ex1", CategoryReading, true),
		}, nil, now)
		assert.False(t, stats.Performance[0].IsWeakPoint, "2/4 correct is exactly 50 percent")
	})

	t.Run("already weak question is not re-reported", func(t *testing.T) {
		stats := NewUserStats("u1")
		stats.RecordResults([]QuizResult{
			result("q1", "ex1", CategoryReading, false),
			result("q1", "ex1", CategoryReading, false),
		}, nil, now)

		outcome := stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, false)}, nil, now)
		assert.Empty(t, outcome.NewWeakPoints)
	})
}

func TestRecordResults_NeedsReviewStoredFlag(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")

	stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, false)}, nil, now)
	assert.True(t, stats.Performance[0].NeedsReview, "wrong answer marks review")

	stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, true)}, nil, now)
	assert.False(t, stats.Performance[0].NeedsReview, "correct answer clears the stored flag")
}

func TestReviewDue_Staleness(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")
	stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, true)}, nil, now)

	perf := stats.Performance[0]
	require.False(t, perf.NeedsReview)

	assert.False(t, perf.ReviewDue(now.Add(6*24*time.Hour)))
	assert.True(t, perf.ReviewDue(now.Add(8*24*time.Hour)), "unpracticed for over a week")
}

func TestRecordResults_AverageTimeSpent(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")

	timeSpent := map[string]int{TimeSpentKey("ex1", "q1"): 30}
	stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, true)}, timeSpent, now)
	assert.InDelta(t, 30.0, stats.Performance[0].AverageTimeSpent, 1e-9)

	// No elapsed time reported: the mean is left untouched.
	stats.RecordResults([]QuizResult{result("q1", "ex1", CategoryReading, true)}, nil, now)
	assert.InDelta(t, 30.0, stats.Performance[0].AverageTimeSpent, 1e-9)
}

func TestRecordResults_FrequentlyWrongOrdering(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")

	stats.RecordResults([]QuizResult{
		result("qa", "ex1", CategoryReading, false),
		result("qb", "ex1", CategoryReading, false),
		result("qa", "ex1", CategoryReading, false),
		result("qa", "ex1", CategoryReading, false),
	}, nil, now)

	require.Len(t, stats.FrequentlyWrong, 2)
	assert.Equal(t, "qa", stats.FrequentlyWrong[0].QuestionID)
	assert.Equal(t, 3, stats.FrequentlyWrong[0].Count)
	assert.Equal(t, "qb", stats.FrequentlyWrong[1].QuestionID)
	assert.Equal(t, 1, stats.FrequentlyWrong[1].Count)
}

func TestRecordResults_FrequentlyWrongAccumulatesAcrossBatches(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")

	stats.RecordResults([]QuizResult{result("qa", "ex1", CategoryReading, false)}, nil, now)
	stats.RecordResults([]QuizResult{result("qa", "ex1", CategoryReading, false)}, nil, now)

	require.Len(t, stats.FrequentlyWrong, 1)
	assert.Equal(t, 2, stats.FrequentlyWrong[0].Count)
}

func TestPriorityQuestions_Ordering(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Hour)
	older := now.Add(-2 * time.Hour)

	stats := NewUserStats("u1")
	stats.Performance = []QuestionPerformance{
		{QuestionID: "healthy", Category: CategoryReading, SuccessRate: 90, LastAttemptAt: recent},
		{QuestionID: "weak-low", Category: CategoryReading, IsWeakPoint: true, SuccessRate: 20, LastAttemptAt: older},
		{QuestionID: "review", Category: CategoryReading, NeedsReview: true, SuccessRate: 80, LastAttemptAt: recent},
		{QuestionID: "weak-high", Category: CategoryReading, IsWeakPoint: true, SuccessRate: 40, LastAttemptAt: recent},
	}

	ranked := stats.PriorityQuestions("", 10, now)

	require.Len(t, ranked, 4)
	assert.Equal(t, "weak-low", ranked[0].QuestionID, "weak points first, lowest success rate ahead")
	assert.Equal(t, "weak-high", ranked[1].QuestionID)
	assert.Equal(t, "review", ranked[2].QuestionID, "review-due records come before healthy ones")
	assert.Equal(t, "healthy", ranked[3].QuestionID)
}

func TestPriorityQuestions_RecencyBreaksTies(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")
	stats.Performance = []QuestionPerformance{
		{QuestionID: "older", Category: CategoryReading, SuccessRate: 60, LastAttemptAt: now.Add(-2 * time.Hour)},
		{QuestionID: "newer", Category: CategoryReading, SuccessRate: 60, LastAttemptAt: now.Add(-time.Hour)},
	}

	ranked := stats.PriorityQuestions("", 10, now)

	require.Len(t, ranked, 2)
	assert.Equal(t, "newer", ranked[0].QuestionID)
}

func TestPriorityQuestions_CategoryFilterAndLimit(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")
	for i := 0; i < 20; i++ {
		category := CategoryReading
		if i%2 == 0 {
			category = CategoryListening
		}
		stats.Performance = append(stats.Performance, QuestionPerformance{
			QuestionID:    fmt.Sprintf("q%d", i),
			Category:      category,
			SuccessRate:   float64(i),
			LastAttemptAt: now,
		})
	}

	ranked := stats.PriorityQuestions(CategoryListening, 5, now)

	assert.Len(t, ranked, 5)
	for _, p := range ranked {
		assert.Equal(t, CategoryListening, p.Category)
	}

	// Zero limit falls back to the default of 10.
	assert.Len(t, stats.PriorityQuestions("", 0, now), 10)
}

func TestQuizScenario(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")

	timeSpent := map[string]int{
		TimeSpentKey("ex1", "q1"): 12,
		TimeSpentKey("ex1", "q2"): 45,
	}
	outcome := stats.RecordResults([]QuizResult{
		result("q1", "ex1", CategoryReading, true),
		result("q2", "ex1", CategoryReading, false),
	}, timeSpent, now)

	assert.Equal(t, 2, outcome.Recorded)
	assert.Equal(t, 1, outcome.Correct)

	q1 := *stats.findPerformance("q1", "ex1")
	assert.InDelta(t, 100.0, q1.SuccessRate, 1e-9)
	assert.False(t, q1.IsWeakPoint)
	assert.False(t, q1.NeedsReview)
	assert.InDelta(t, 12.0, q1.AverageTimeSpent, 1e-9)

	q2 := *stats.findPerformance("q2", "ex1")
	assert.InDelta(t, 0.0, q2.SuccessRate, 1e-9)
	assert.False(t, q2.IsWeakPoint, "one attempt is below the weak-point minimum")
	assert.True(t, q2.NeedsReview)
	assert.InDelta(t, 45.0, q2.AverageTimeSpent, 1e-9)

	require.Len(t, stats.WrongAnswers, 1)
	assert.Equal(t, "q2", stats.WrongAnswers[0].QuestionID)
}

func TestOverallSuccessRate(t *testing.T) {
	stats := NewUserStats("u1")
	assert.Zero(t, stats.OverallSuccessRate())

	stats.TotalQuestions = 4
	stats.CorrectAnswers = 3
	assert.InDelta(t, 75.0, stats.OverallSuccessRate(), 1e-9)
}

func TestRecentHistory(t *testing.T) {
	now := time.Now()
	stats := NewUserStats("u1")
	stats.RecordResults([]QuizResult{
		result("q1", "ex1", CategoryReading, true),
		result("q2", "ex1", CategoryReading, true),
		result("q3", "ex1", CategoryReading, true),
	}, nil, now)

	recent := stats.RecentHistory(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "q3", recent[0].QuestionID)
	assert.Equal(t, "q2", recent[1].QuestionID)

	assert.Len(t, stats.RecentHistory(10), 3)
	assert.Empty(t, stats.RecentHistory(0))
}
