package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrInvalidInput - the caller sent something we cannot act on (400)
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound - the addressed record does not exist (404)
	ErrNotFound = errors.New("not found")
)

// InvalidIDsError reports id tokens that failed to parse.
type InvalidIDsError struct {
	Param    string
	Rejected []string
}

func (e *InvalidIDsError) Error() string {
	if len(e.Rejected) == 0 {
		return fmt.Sprintf("%s: no valid ids given", e.Param)
	}
	return fmt.Sprintf("%s: invalid ids %s", e.Param, strings.Join(e.Rejected, ", "))
}

func (e *InvalidIDsError) Unwrap() error {
	return ErrInvalidInput
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// lookupErr turns gorm's missing-row error into ErrNotFound.
func lookupErr(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}
