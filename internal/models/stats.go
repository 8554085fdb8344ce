package models

import (
	"sort"
	"time"

	"gorm.io/datatypes"
)

// maxAnswerHistory caps the per-user attempt log; oldest entries are
// evicted first once the cap is reached.
const maxAnswerHistory = 1000

// reviewStaleness is how long a question may go unpracticed before it
// counts as needing review again.
const reviewStaleness = 7 * 24 * time.Hour

// weakPointMinAttempts guards against flagging a question weak off a
// single unlucky miss.
const weakPointMinAttempts = 2

// weakPointThreshold is the success-rate percentage below which a
// question becomes a weak point.
const weakPointThreshold = 50.0

// QuizResult is one submitted answer inside a finished quiz batch.
// Field names mirror the frontend payload.
type QuizResult struct {
	ID            string           `json:"id" validate:"required"`
	ExerciseID    string           `json:"exerciseId" validate:"required"`
	Category      ExerciseCategory `json:"category" validate:"required,exercise_category"`
	Type          QuestionType     `json:"type" validate:"required,question_type"`
	Question      string           `json:"question"`
	UserAnswer    string           `json:"userAnswer"`
	CorrectAnswer string           `json:"correctAnswer"`
	IsCorrect     bool             `json:"isCorrect"`
}

// AnswerAttempt is one append-only history entry; never mutated after
// creation.
type AnswerAttempt struct {
	QuestionID     string           `json:"questionId"`
	ExerciseID     string           `json:"exerciseId"`
	Category       ExerciseCategory `json:"category"`
	QuestionType   QuestionType     `json:"questionType"`
	QuestionText   string           `json:"questionText"`
	SelectedAnswer string           `json:"selectedAnswer"`
	CorrectAnswer  string           `json:"correctAnswer"`
	IsCorrect      bool             `json:"isCorrect"`
	TimeSpent      int              `json:"timeSpent"`
	Timestamp      time.Time        `json:"timestamp"`
}

// QuestionPerformance aggregates every attempt a user has made on one
// distinct (questionId, exerciseId) pair. Created lazily on the first
// attempt, mutated on every subsequent one, never deleted.
type QuestionPerformance struct {
	QuestionID       string           `json:"questionId"`
	ExerciseID       string           `json:"exerciseId"`
	Category         ExerciseCategory `json:"category"`
	QuestionType     QuestionType     `json:"questionType"`
	QuestionText     string           `json:"questionText"`
	TotalAttempts    int              `json:"totalAttempts"`
	CorrectAttempts  int              `json:"correctAttempts"`
	WrongAttempts    int              `json:"wrongAttempts"`
	SuccessRate      float64          `json:"successRate"`
	AverageTimeSpent float64          `json:"averageTimeSpent"`
	LastAttemptAt    time.Time        `json:"lastAttemptAt"`
	IsWeakPoint      bool             `json:"isWeakPoint"`
	NeedsReview      bool             `json:"needsReview"`
}

// WrongAnswerRecord is appended whenever an attempt is incorrect.
type WrongAnswerRecord struct {
	QuestionID     string           `json:"questionId"`
	ExerciseID     string           `json:"exerciseId"`
	Category       ExerciseCategory `json:"category"`
	QuestionText   string           `json:"questionText"`
	SelectedAnswer string           `json:"selectedAnswer"`
	CorrectAnswer  string           `json:"correctAnswer"`
	Timestamp      time.Time        `json:"timestamp"`
}

// FrequentlyWrongCounter counts how often one question has been missed.
// The collection is kept sorted descending by count after every batch.
type FrequentlyWrongCounter struct {
	QuestionID  string    `json:"questionId"`
	Count       int       `json:"count"`
	LastWrongAt time.Time `json:"lastWrongAt"`
}

type CategoryTally struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

type CategoryStats struct {
	Reading   CategoryTally `json:"reading"`
	Listening CategoryTally `json:"listening"`
	Clozetext CategoryTally `json:"clozetext"`
}

func (cs *CategoryStats) tally(category ExerciseCategory) *CategoryTally {
	switch category {
	case CategoryListening:
		return &cs.Listening
	case CategoryClozetext:
		return &cs.Clozetext
	default:
		return &cs.Reading
	}
}

// UserStats is the per-user statistics document: one row per user, the
// unit of consistency for every stats write. The collections keep the
// frontend's field names so stored documents stay readable across
// versions.
type UserStats struct {
	UserID          string                                        `json:"userId" gorm:"primaryKey;size:255"`
	TotalQuestions  int                                           `json:"totalQuestions"`
	CorrectAnswers  int                                           `json:"correctAnswers"`
	AnswerHistory   datatypes.JSONSlice[AnswerAttempt]            `json:"answerHistory" gorm:"type:jsonb"`
	Performance     datatypes.JSONSlice[QuestionPerformance]      `json:"questionPerformance" gorm:"column:question_performance;type:jsonb"`
	WrongAnswers    datatypes.JSONSlice[WrongAnswerRecord]        `json:"wrongAnswers" gorm:"type:jsonb"`
	FrequentlyWrong datatypes.JSONSlice[FrequentlyWrongCounter]   `json:"frequentlyWrong" gorm:"type:jsonb"`
	CategoryStats   CategoryStats                                 `json:"categoryStats" gorm:"type:jsonb;serializer:json"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

// TimeSpentKey builds the lookup key the frontend uses for its
// per-question elapsed-time map.
func TimeSpentKey(exerciseID, questionID string) string {
	return exerciseID + "-" + questionID
}

// RecordOutcome reports what a batch changed, for event publishing.
type RecordOutcome struct {
	Recorded      int
	Correct       int
	NewWeakPoints []QuestionPerformance
}

// RecordResults applies one finished quiz to the document: appends each
// result to the bounded history log, updates the per-question
// aggregates and category tallies, and tracks wrong answers. The
// caller persists the document once afterwards; nothing here touches
// storage.
func (s *UserStats) RecordResults(results []QuizResult, timeSpent map[string]int, now time.Time) RecordOutcome {
	outcome := RecordOutcome{Recorded: len(results)}

	for _, r := range results {
		s.TotalQuestions++

		elapsed := timeSpent[TimeSpentKey(r.ExerciseID, r.ID)]

		s.AnswerHistory = append(s.AnswerHistory, AnswerAttempt{
			QuestionID:     r.ID,
			ExerciseID:     r.ExerciseID,
			Category:       r.Category,
			QuestionType:   r.Type,
			QuestionText:   r.Question,
			SelectedAnswer: r.UserAnswer,
			CorrectAnswer:  r.CorrectAnswer,
			IsCorrect:      r.IsCorrect,
			TimeSpent:      elapsed,
			Timestamp:      now,
		})
		if n := len(s.AnswerHistory); n > maxAnswerHistory {
			s.AnswerHistory = s.AnswerHistory[n-maxAnswerHistory:]
		}

		wasWeak, perf := s.applyAttempt(r, elapsed, now)
		if !wasWeak && perf.IsWeakPoint {
			outcome.NewWeakPoints = append(outcome.NewWeakPoints, *perf)
		}

		tally := s.CategoryStats.tally(r.Category)
		tally.Total++

		if r.IsCorrect {
			s.CorrectAnswers++
			tally.Correct++
			outcome.Correct++
			continue
		}

		s.WrongAnswers = append(s.WrongAnswers, WrongAnswerRecord{
			QuestionID:     r.ID,
			ExerciseID:     r.ExerciseID,
			Category:       r.Category,
			QuestionText:   r.Question,
			SelectedAnswer: r.UserAnswer,
			CorrectAnswer:  r.CorrectAnswer,
			Timestamp:      now,
		})
		s.bumpFrequentlyWrong(r.ID, now)
	}

	// Ties keep their existing relative order.
	sort.SliceStable(s.FrequentlyWrong, func(i, j int) bool {
		return s.FrequentlyWrong[i].Count > s.FrequentlyWrong[j].Count
	})

	return outcome
}

// applyAttempt folds one attempt into the matching QuestionPerformance
// record, creating it on first sight. Returns whether the record was
// already a weak point before this attempt, plus the updated record.
func (s *UserStats) applyAttempt(r QuizResult, elapsed int, now time.Time) (wasWeak bool, perf *QuestionPerformance) {
	perf = s.findPerformance(r.ID, r.ExerciseID)
	if perf == nil {
		s.Performance = append(s.Performance, QuestionPerformance{
			QuestionID:   r.ID,
			ExerciseID:   r.ExerciseID,
			Category:     r.Category,
			QuestionType: r.Type,
			QuestionText: r.Question,
		})
		perf = &s.Performance[len(s.Performance)-1]
	}
	wasWeak = perf.IsWeakPoint

	perf.TotalAttempts++
	if r.IsCorrect {
		perf.CorrectAttempts++
	} else {
		perf.WrongAttempts++
	}
	perf.SuccessRate = float64(perf.CorrectAttempts) / float64(perf.TotalAttempts) * 100

	// The running mean only counts attempts that reported a time.
	if elapsed > 0 {
		perf.AverageTimeSpent = (perf.AverageTimeSpent*float64(perf.TotalAttempts-1) + float64(elapsed)) / float64(perf.TotalAttempts)
	}

	// LastAttemptAt is refreshed BEFORE the review check below, so the
	// staleness term is always ~0 here and the stored flag collapses to
	// "was this attempt wrong". The staleness branch only fires on the
	// read side (ReviewDue). Stored documents depend on this ordering;
	// do not reorder.
	perf.LastAttemptAt = now

	perf.IsWeakPoint = weakPoint(perf.SuccessRate, perf.TotalAttempts)
	perf.NeedsReview = reviewNeeded(!r.IsCorrect, perf.LastAttemptAt, now)

	return wasWeak, perf
}

func (s *UserStats) findPerformance(questionID, exerciseID string) *QuestionPerformance {
	for i := range s.Performance {
		if s.Performance[i].QuestionID == questionID && s.Performance[i].ExerciseID == exerciseID {
			return &s.Performance[i]
		}
	}
	return nil
}

func (s *UserStats) bumpFrequentlyWrong(questionID string, now time.Time) {
	for i := range s.FrequentlyWrong {
		if s.FrequentlyWrong[i].QuestionID == questionID {
			s.FrequentlyWrong[i].Count++
			s.FrequentlyWrong[i].LastWrongAt = now
			return
		}
	}
	s.FrequentlyWrong = append(s.FrequentlyWrong, FrequentlyWrongCounter{
		QuestionID:  questionID,
		Count:       1,
		LastWrongAt: now,
	})
}

// weakPoint and reviewNeeded are the single derivation paths for the
// two stored flags; every write and read-side check goes through them.

func weakPoint(successRate float64, totalAttempts int) bool {
	return successRate < weakPointThreshold && totalAttempts >= weakPointMinAttempts
}

func reviewNeeded(lastWasWrong bool, lastAttemptAt, now time.Time) bool {
	return lastWasWrong || now.Sub(lastAttemptAt) > reviewStaleness
}

// ReviewDue reports whether the record should surface for review when
// read at the given time: either the stored flag is set, or the record
// has gone stale since the last attempt.
func (p *QuestionPerformance) ReviewDue(now time.Time) bool {
	return reviewNeeded(p.NeedsReview, p.LastAttemptAt, now)
}

// PriorityQuestions ranks the user's question records for re-practice.
// Weak points first, then review-due records, then lower success rate,
// then the most recently attempted. Read-only; limit <= 0 falls back
// to the default of 10.
func (s *UserStats) PriorityQuestions(category ExerciseCategory, limit int, now time.Time) []QuestionPerformance {
	if limit <= 0 {
		limit = 10
	}

	ranked := make([]QuestionPerformance, 0, len(s.Performance))
	for _, p := range s.Performance {
		if category != "" && p.Category != category {
			continue
		}
		ranked = append(ranked, p)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.IsWeakPoint != b.IsWeakPoint {
			return a.IsWeakPoint
		}
		aDue, bDue := a.ReviewDue(now), b.ReviewDue(now)
		if aDue != bDue {
			return aDue
		}
		if a.SuccessRate != b.SuccessRate {
			return a.SuccessRate < b.SuccessRate
		}
		return a.LastAttemptAt.After(b.LastAttemptAt)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// WeakPointCount counts stored weak points across all categories.
func (s *UserStats) WeakPointCount() int {
	count := 0
	for i := range s.Performance {
		if s.Performance[i].IsWeakPoint {
			count++
		}
	}
	return count
}

// ReviewDueCount counts records needing review as of now, staleness
// included.
func (s *UserStats) ReviewDueCount(now time.Time) int {
	count := 0
	for i := range s.Performance {
		if s.Performance[i].ReviewDue(now) {
			count++
		}
	}
	return count
}

// OverallSuccessRate is the lifetime percentage of correct answers.
func (s *UserStats) OverallSuccessRate() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalQuestions) * 100
}

// RecentHistory returns up to n history entries, most recent first.
func (s *UserStats) RecentHistory(n int) []AnswerAttempt {
	if n <= 0 || len(s.AnswerHistory) == 0 {
		return []AnswerAttempt{}
	}
	if n > len(s.AnswerHistory) {
		n = len(s.AnswerHistory)
	}
	recent := make([]AnswerAttempt, 0, n)
	for i := len(s.AnswerHistory) - 1; i >= len(s.AnswerHistory)-n; i-- {
		recent = append(recent, s.AnswerHistory[i])
	}
	return recent
}

// NewUserStats returns an empty stats document for a user.
func NewUserStats(userID string) *UserStats {
	return &UserStats{
		UserID:          userID,
		AnswerHistory:   datatypes.JSONSlice[AnswerAttempt]{},
		Performance:     datatypes.JSONSlice[QuestionPerformance]{},
		WrongAnswers:    datatypes.JSONSlice[WrongAnswerRecord]{},
		FrequentlyWrong: datatypes.JSONSlice[FrequentlyWrongCounter]{},
	}
}
