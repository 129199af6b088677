package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyRUC indicates the RUC is empty
	ErrEmptyRUC = errors.New("ruc cannot be empty")

	// ErrInvalidLength indicates the RUC is not 13 digits
	ErrInvalidLength = errors.New("ruc must be exactly 13 digits")

	// ErrInvalidFormat indicates the RUC contains non-digit characters
	ErrInvalidFormat = errors.New("ruc can only contain digits")

	// ErrInvalidSuffix indicates the RUC does not end in 001
	ErrInvalidSuffix = errors.New("ruc must end in 001")

	// ErrInvalidProvince indicates the two leading digits are not a valid
	// Ecuadorian province code (01-24, or 30 for foreigners)
	ErrInvalidProvince = errors.New("ruc has an invalid province code")
)

// digitsRegex matches digits only
var digitsRegex = regexp.MustCompile(`^\d+$`)

// RUCValidator validates Ecuadorian RUC identifiers
type RUCValidator struct{}

// NewRUCValidator creates a new RUC validator instance
func NewRUCValidator() *RUCValidator {
	return &RUCValidator{}
}

// Validate validates an Ecuadorian RUC.
// Accepts the RUC with incidental spaces or dashes and returns the sanitized
// 13-digit form, or an error describing the first violation found.
func (v *RUCValidator) Validate(ruc string) (string, error) {
	if ruc == "" {
		return "", ErrEmptyRUC
	}

	sanitized := v.Sanitize(ruc)

	if !digitsRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) != 13 {
		return "", ErrInvalidLength
	}

	if !strings.HasSuffix(sanitized, "001") {
		return "", ErrInvalidSuffix
	}

	province := (int(sanitized[0]-'0') * 10) + int(sanitized[1]-'0')
	if (province < 1 || province > 24) && province != 30 {
		return "", ErrInvalidProvince
	}

	return sanitized, nil
}

// Sanitize strips spaces and dashes from a RUC
func (v *RUCValidator) Sanitize(ruc string) string {
	sanitized := strings.ReplaceAll(ruc, " ", "")
	sanitized = strings.ReplaceAll(sanitized, "-", "")
	return strings.TrimSpace(sanitized)
}
