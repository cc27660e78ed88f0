package scan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/rulescan/internal/model"
)

// ErrInvalidInput is returned when a record or statistic carries a measure
// outside its declared range
var ErrInvalidInput = errors.New("invalid input")

// ValidationError carries the violations behind an ErrInvalidInput failure
type ValidationError struct {
	Violations []model.Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for i, v := range e.Violations {
		if i >= 3 {
			parts = append(parts, fmt.Sprintf("and %d more", len(e.Violations)-3))
			break
		}
		parts = append(parts, describe(v))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInvalidInput
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func describe(v model.Violation) string {
	if v.Statistic < 0 {
		return fmt.Sprintf("record %d %s=%g out of range", v.Record, v.Field, v.Value)
	}
	return fmt.Sprintf("record %d statistic %d %s=%g out of range", v.Record, v.Statistic, v.Field, v.Value)
}
