package errors

import (
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("category", "must be a valid exercise category", "speaking")

	if err.Field != "category" {
		t.Errorf("Expected field to be 'category', got '%s'", err.Field)
	}

	if err.Message != "must be a valid exercise category" {
		t.Errorf("Expected message to be 'must be a valid exercise category', got '%s'", err.Message)
	}

	if err.Value != "speaking" {
		t.Errorf("Expected value to be 'speaking', got '%v'", err.Value)
	}

	expected := "validation error on field 'category': must be a valid exercise category"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	errs = append(errs, *NewValidationError("title", "is required", nil))
	expected := "validation failed: title is required"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	errs = append(errs, *NewValidationError("correctAnswer", "is required", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("questionType", "must be a valid question type", "question_type", "essay")

	if err.Rule != "question_type" {
		t.Errorf("Expected rule to be 'question_type', got '%s'", err.Rule)
	}

	if err.Field != "questionType" {
		t.Errorf("Expected field to be 'questionType', got '%s'", err.Field)
	}
}
