package pipeline

import (
	"errors"
	"fmt"
)

// BuildError represents a precondition violation detected while assembling
// a plugin context. Build errors are user-facing conditions, not program
// faults: the shell surfaces them in place of output and never lets them
// escape as uncaught failures.
type BuildError struct {
	// Code identifies the error category.
	Code BuildErrorCode

	// Message is a human-readable description.
	Message string

	// MessageName is the simulated message being built.
	MessageName string

	// EntityName is the primary entity logical name, when known.
	EntityName string
}

// BuildErrorCode categorizes build errors.
type BuildErrorCode string

const (
	// ErrCodeMissingRecordID indicates Update or Delete was requested for a
	// record that has never been saved, so no id exists to address it by.
	ErrCodeMissingRecordID BuildErrorCode = "MISSING_RECORD_ID"

	// ErrCodeUnknownStage indicates a stage value outside the configured
	// pre/post pair.
	ErrCodeUnknownStage BuildErrorCode = "UNKNOWN_STAGE"
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.EntityName != "" {
		return fmt.Sprintf("%s: %s (message=%s, entity=%s)", e.Code, e.Message, e.MessageName, e.EntityName)
	}
	return fmt.Sprintf("%s: %s (message=%s)", e.Code, e.Message, e.MessageName)
}

// IsMissingRecordID returns true if the error is a missing-record-id
// precondition violation. Uses errors.As to handle wrapped errors.
func IsMissingRecordID(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrCodeMissingRecordID
	}
	return false
}

// NewMissingRecordIDError creates a BuildError for an unsaved record.
func NewMissingRecordIDError(messageName, entityName string) *BuildError {
	return &BuildError{
		Code:        ErrCodeMissingRecordID,
		Message:     "record has no id yet; save the record before simulating this message",
		MessageName: messageName,
		EntityName:  entityName,
	}
}
