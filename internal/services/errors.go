package services

import (
	"errors"
	"fmt"
)

// ErrorCode classifies service failures for the HTTP boundary.
type ErrorCode string

const (
	CodeInvalid         ErrorCode = "invalid"
	CodeForbidden       ErrorCode = "forbidden"
	CodeNotFound        ErrorCode = "not_found"
	CodeConflict        ErrorCode = "conflict"
	CodeUnauthorized    ErrorCode = "unauthorized"
	CodeMalformedBranch ErrorCode = "malformed_branch"
)

// ServiceError is a classified failure safe to surface to clients.
type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewInvalidError reports a malformed or rule-breaking request.
func NewInvalidError(msg string) *ServiceError {
	return &ServiceError{Code: CodeInvalid, Message: msg}
}

// NewForbiddenError reports an action the caller may not perform.
func NewForbiddenError(msg string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: msg}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(msg string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: msg}
}

// NewConflictError reports a state collision such as a duplicate record.
func NewConflictError(msg string) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: msg}
}

// NewUnauthorizedError reports failed authentication.
func NewUnauthorizedError(msg string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: msg}
}

// NewMalformedBranchError reports a branch target that does not jump
// forward past the next question or points outside the survey. Positions
// are reported 1-based.
func NewMalformedBranchError(position, target, total int) *ServiceError {
	return &ServiceError{
		Code:    CodeMalformedBranch,
		Message: fmt.Sprintf("question %d: branch target %d must be greater than %d and at most %d", position+1, target, position+2, total),
	}
}

// AsServiceError unwraps err into a *ServiceError when possible.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrSurveyNotFound reports a lookup against an unknown survey.
var ErrSurveyNotFound = errors.New("survey not found")

// ErrSurveyClosed reports a submission after the survey deadline.
var ErrSurveyClosed = errors.New("survey closed")

// ErrDuplicateResponse reports a second submission by the same respondent.
var ErrDuplicateResponse = errors.New("respondent already answered this survey")

// ValidationError reports one answer that failed validation. Position is
// the question's 0-based ordinal; messages render it 1-based.
type ValidationError struct {
	QuestionID string
	Position   int
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %d: %s", e.Position+1, e.Reason)
}

func newValidationError(questionID string, position int, reason string) *ValidationError {
	return &ValidationError{QuestionID: questionID, Position: position, Reason: reason}
}
