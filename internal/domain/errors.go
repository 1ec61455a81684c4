package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrParticipantNotFound is returned when a participant acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrInvalidQuestion is matched by every *ValidationError.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrDuplicateSubmission is returned when a participant answers the same question twice.
	ErrDuplicateSubmission = errors.New("answer already submitted for this question")
	// ErrNoActiveQuestion is returned when an answer arrives while no question accepts answers.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrStaleQuestion indicates the answer referenced a question that has been superseded.
	ErrStaleQuestion = errors.New("question is no longer active")
	// ErrOptionOutOfRange indicates the selected option index does not exist.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrQuestionInProgress blocks publishing until the current question has results.
	ErrQuestionInProgress = errors.New("current question has not been closed yet")
	// ErrNotPresenter is returned when a student attempts a presenter-only operation.
	ErrNotPresenter = errors.New("only the presenter can do that")
	// ErrEmptyMessage rejects blank chat messages.
	ErrEmptyMessage = errors.New("chat message is empty")
	// ErrMessageTooLong rejects chat messages above the configured limit.
	ErrMessageTooLong = errors.New("chat message is too long")
	// ErrQuestionNotFound indicates a bank question id is unknown.
	ErrQuestionNotFound = errors.New("question not found")
)

// ValidationError describes why a question was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid question: %s %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidQuestion) match any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidQuestion
}
