package services

import (
	"errors"
	"strings"
)

// Export errors
var (
	ErrExportValidation = errors.New("export: invalid request")
	ErrExportConflict   = errors.New("export: an export is already running")
	ErrExportClosed     = errors.New("export: service is shutting down")
	ErrSessionNotFound  = errors.New("export: session not found")
)

// History errors
var (
	ErrHistoryUnavailable = errors.New("history: repository unavailable")
)

// ValidationError carries every problem found in an export request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrExportValidation.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrExportValidation
}
