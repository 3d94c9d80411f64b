package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestStruct struct {
	Idea     string `json:"idea" validate:"required,notblank,min=10,max=50"`
	Focus    string `json:"priority_focus,omitempty" validate:"omitempty,oneof=balanced technical"`
	Limit    int    `json:"limit" validate:"gte=1,lte=100"`
	Internal string `json:"-" validate:"omitempty,uuid"`
}

func validStruct() TestStruct {
	return TestStruct{Idea: "A dog walking app", Limit: 10}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *TestStruct)
		field   string
		message string
	}{
		{
			name:    "missing idea",
			mutate:  func(s *TestStruct) { s.Idea = "" },
			field:   "idea",
			message: "idea is required",
		},
		{
			name:    "blank idea",
			mutate:  func(s *TestStruct) { s.Idea = "              " },
			field:   "idea",
			message: "idea must not be blank",
		},
		{
			name:    "short idea",
			mutate:  func(s *TestStruct) { s.Idea = "too short" },
			field:   "idea",
			message: "idea must be at least 10 characters",
		},
		{
			name:    "long idea",
			mutate:  func(s *TestStruct) { s.Idea = strings.Repeat("a", 51) },
			field:   "idea",
			message: "idea must be at most 50 characters",
		},
		{
			name:    "unknown focus",
			mutate:  func(s *TestStruct) { s.Focus = "vibes" },
			field:   "priority_focus",
			message: "priority_focus must be one of: balanced technical",
		},
		{
			name:    "limit too low",
			mutate:  func(s *TestStruct) { s.Limit = 0 },
			field:   "limit",
			message: "limit must be greater than or equal to 1",
		},
		{
			name:    "limit too high",
			mutate:  func(s *TestStruct) { s.Limit = 101 },
			field:   "limit",
			message: "limit must be less than or equal to 100",
		},
		{
			name:    "untagged field keeps Go name",
			mutate:  func(s *TestStruct) { s.Internal = "not-a-uuid" },
			field:   "Internal",
			message: "Internal must be a valid UUID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validStruct()
			tt.mutate(&s)

			err := ValidateStruct(&s)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			fields := GetValidationFields(err)
			assert.Equal(t, tt.message, fields[tt.field])
		})
	}

	t.Run("valid struct", func(t *testing.T) {
		s := validStruct()
		s.Focus = "technical"
		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("multibyte idea counts characters", func(t *testing.T) {
		s := validStruct()
		s.Idea = strings.Repeat("é", 10)
		assert.NoError(t, ValidateStruct(&s))
	})
}

func TestNewValidationError(t *testing.T) {
	s := TestStruct{Focus: "vibes"}

	err := ValidateStruct(&s)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)

	assert.Equal(t, "Validation failed", validationErr.Message)
	assert.Contains(t, validationErr.Fields, "idea")
	assert.Contains(t, validationErr.Fields, "priority_focus")
	assert.Contains(t, validationErr.Fields, "limit")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "Test validation error",
		Fields: map[string]string{
			"field1": "error1",
		},
	}

	assert.Equal(t, "Test validation error", err.Error())
}

func TestIsValidationError(t *testing.T) {
	t.Run("is validation error", func(t *testing.T) {
		err := &ValidationError{
			Message: "test",
			Fields:  map[string]string{},
		}

		assert.True(t, IsValidationError(err))
	})

	t.Run("is not validation error", func(t *testing.T) {
		assert.False(t, IsValidationError(assert.AnError))
	})
}

func TestGetValidationFields(t *testing.T) {
	t.Run("gets fields from validation error", func(t *testing.T) {
		fields := map[string]string{
			"field1": "error1",
			"field2": "error2",
		}
		err := &ValidationError{
			Message: "test",
			Fields:  fields,
		}

		assert.Equal(t, fields, GetValidationFields(err))
	})

	t.Run("returns nil for non-validation error", func(t *testing.T) {
		assert.Nil(t, GetValidationFields(assert.AnError))
	})
}
