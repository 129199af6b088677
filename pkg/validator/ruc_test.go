package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRUCValidator(t *testing.T) {
	validator := NewRUCValidator()
	assert.NotNil(t, validator)
}

func TestValidate_ValidRUCs(t *testing.T) {
	validator := NewRUCValidator()

	validRUCs := []struct {
		input    string
		expected string
		name     string
	}{
		{"1790012345001", "1790012345001", "Pichincha"},
		{"0990054321001", "0990054321001", "Guayas"},
		{"0190054321001", "0190054321001", "Azuay"},
		{"2490054321001", "2490054321001", "Santa Elena"},
		{"3090054321001", "3090054321001", "Foreigner code 30"},
		{"1790012345-001", "1790012345001", "With dash"},
		{"1790 0123 45001", "1790012345001", "With spaces"},
		{" 1790012345001 ", "1790012345001", "With surrounding whitespace"},
	}

	for _, tc := range validRUCs {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidRUCs(t *testing.T) {
	validator := NewRUCValidator()

	invalidRUCs := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyRUC, "Empty string"},
		{"179001234001", ErrInvalidLength, "Too short"},
		{"17900123450011", ErrInvalidLength, "Too long"},
		{"17900123450ab", ErrInvalidFormat, "Contains letters"},
		{"1790012345002", ErrInvalidSuffix, "Does not end in 001"},
		{"1790012345000", ErrInvalidSuffix, "Ends in 000"},
		{"0090012345001", ErrInvalidProvince, "Province 00"},
		{"2590012345001", ErrInvalidProvince, "Province 25"},
		{"9990012345001", ErrInvalidProvince, "Province 99"},
	}

	for _, tc := range invalidRUCs {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Empty(t, sanitized)
		})
	}
}

func TestSanitize(t *testing.T) {
	validator := NewRUCValidator()

	assert.Equal(t, "1790012345001", validator.Sanitize("1790-0123-45001"))
	assert.Equal(t, "1790012345001", validator.Sanitize(" 1790 0123 45001 "))
}
