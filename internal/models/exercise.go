package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExerciseCategory string

const (
	CategoryReading   ExerciseCategory = "reading"
	CategoryListening ExerciseCategory = "listening"
	CategoryClozetext ExerciseCategory = "clozetext"
)

// Categories lists every exercise category in a stable order.
func Categories() []ExerciseCategory {
	return []ExerciseCategory{CategoryReading, CategoryListening, CategoryClozetext}
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionTrueFalse      QuestionType = "true-false"
	QuestionFillBlank      QuestionType = "fill-blank"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Exercise is a tagged union: Category discriminates which content
// variant the Content column decodes to. Each variant carries its own
// fixed field set instead of one record with many optional fields.
type Exercise struct {
	ID         string           `json:"id" gorm:"primaryKey;size:255"`
	Title      string           `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Category   ExerciseCategory `json:"category" gorm:"not null;size:20;index" validate:"required,exercise_category"`
	Difficulty DifficultyLevel  `json:"difficulty" gorm:"default:medium;size:10" validate:"omitempty,oneof=easy medium hard"`
	Content    datatypes.JSON   `json:"content" gorm:"type:jsonb;not null"`

	CreatedBy string         `json:"createdBy" gorm:"size:255;index"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Computed, not stored
	QuestionCount int `json:"questionCount" gorm:"-"`
}

func (Exercise) TableName() string {
	return "exercises"
}

// ExerciseQuestion is one question inside an exercise's content payload.
type ExerciseQuestion struct {
	ID            string       `json:"id" validate:"required"`
	Type          QuestionType `json:"type" validate:"required,question_type"`
	Question      string       `json:"question" validate:"required"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer" validate:"required"`
	Explanation   string       `json:"explanation,omitempty"`
}

type ReadingContent struct {
	Passage   string             `json:"passage" validate:"required"`
	Questions []ExerciseQuestion `json:"questions" validate:"required,min=1,dive"`
}

type ListeningContent struct {
	AudioURL   string             `json:"audioUrl" validate:"required,url"`
	Transcript string             `json:"transcript,omitempty"`
	Questions  []ExerciseQuestion `json:"questions" validate:"required,min=1,dive"`
}

type ClozeContent struct {
	Text      string             `json:"text" validate:"required"`
	Questions []ExerciseQuestion `json:"questions" validate:"required,min=1,dive"`
}

// Reading decodes the content payload for a reading exercise.
func (e *Exercise) Reading() (*ReadingContent, error) {
	if e.Category != CategoryReading {
		return nil, fmt.Errorf("exercise %s is %s, not reading", e.ID, e.Category)
	}
	var c ReadingContent
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return nil, fmt.Errorf("failed to decode reading content: %w", err)
	}
	return &c, nil
}

// Listening decodes the content payload for a listening exercise.
func (e *Exercise) Listening() (*ListeningContent, error) {
	if e.Category != CategoryListening {
		return nil, fmt.Errorf("exercise %s is %s, not listening", e.ID, e.Category)
	}
	var c ListeningContent
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return nil, fmt.Errorf("failed to decode listening content: %w", err)
	}
	return &c, nil
}

// Cloze decodes the content payload for a clozetext exercise.
func (e *Exercise) Cloze() (*ClozeContent, error) {
	if e.Category != CategoryClozetext {
		return nil, fmt.Errorf("exercise %s is %s, not clozetext", e.ID, e.Category)
	}
	var c ClozeContent
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return nil, fmt.Errorf("failed to decode clozetext content: %w", err)
	}
	return &c, nil
}

// Questions returns the question list of whichever variant the exercise
// holds, without the caller having to switch on the category.
func (e *Exercise) Questions() ([]ExerciseQuestion, error) {
	switch e.Category {
	case CategoryReading:
		c, err := e.Reading()
		if err != nil {
			return nil, err
		}
		return c.Questions, nil
	case CategoryListening:
		c, err := e.Listening()
		if err != nil {
			return nil, err
		}
		return c.Questions, nil
	case CategoryClozetext:
		c, err := e.Cloze()
		if err != nil {
			return nil, err
		}
		return c.Questions, nil
	default:
		return nil, fmt.Errorf("unknown exercise category %q", e.Category)
	}
}
