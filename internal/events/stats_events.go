package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
)

// EventType represents different types of stats events
type EventType string

const (
	// Stats events
	EventStatsRecorded    EventType = "stats.recorded"
	EventWeakPointFlagged EventType = "stats.weak_point_flagged"
)

// StatsEvent is the base event structure for all stats events
type StatsEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Stats event payloads

type StatsRecordedEvent struct {
	UserID         string `json:"user_id"`
	Recorded       int    `json:"recorded"`
	Correct        int    `json:"correct"`
	TotalQuestions int    `json:"total_questions"`
}

type WeakPointFlaggedEvent struct {
	UserID        string                  `json:"user_id"`
	QuestionID    string                  `json:"question_id"`
	ExerciseID    string                  `json:"exercise_id"`
	Category      models.ExerciseCategory `json:"category"`
	SuccessRate   float64                 `json:"success_rate"`
	TotalAttempts int                     `json:"total_attempts"`
}

// Event factory functions

func NewStatsRecordedEvent(userID string, recorded, correct, totalQuestions int) *StatsEvent {
	return &StatsEvent{
		ID:        watermill.NewUUID(),
		Type:      EventStatsRecorded,
		Timestamp: time.Now(),
		Source:    "quiz-stats-service",
		Version:   "1.0",
		Data: StatsRecordedEvent{
			UserID:         userID,
			Recorded:       recorded,
			Correct:        correct,
			TotalQuestions: totalQuestions,
		},
	}
}

func NewWeakPointFlaggedEvent(userID string, perf models.QuestionPerformance) *StatsEvent {
	return &StatsEvent{
		ID:        watermill.NewUUID(),
		Type:      EventWeakPointFlagged,
		Timestamp: time.Now(),
		Source:    "quiz-stats-service",
		Version:   "1.0",
		Data: WeakPointFlaggedEvent{
			UserID:        userID,
			QuestionID:    perf.QuestionID,
			ExerciseID:    perf.ExerciseID,
			Category:      perf.Category,
			SuccessRate:   perf.SuccessRate,
			TotalAttempts: perf.TotalAttempts,
		},
	}
}
