package http

import (
	"errors"

	"live-poll-service/internal/domain"
)

var (
	errInvalidPayload  = errors.New("invalid payload")
	errUnsupportedType = errors.New("unsupported message type")
)

// errorKind maps an error to the stable kind string clients switch on.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuestion):
		return "validation"
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return "duplicateSubmission"
	case errors.Is(err, domain.ErrNoActiveQuestion):
		return "noActiveQuestion"
	case errors.Is(err, domain.ErrStaleQuestion):
		return "staleQuestion"
	case errors.Is(err, domain.ErrOptionOutOfRange):
		return "optionOutOfRange"
	case errors.Is(err, domain.ErrQuestionInProgress):
		return "questionInProgress"
	case errors.Is(err, domain.ErrNotPresenter):
		return "notPresenter"
	case errors.Is(err, domain.ErrEmptyMessage):
		return "emptyMessage"
	case errors.Is(err, domain.ErrMessageTooLong):
		return "messageTooLong"
	case errors.Is(err, domain.ErrQuestionNotFound):
		return "questionNotFound"
	case errors.Is(err, domain.ErrParticipantNotFound):
		return "participantNotFound"
	case errors.Is(err, errInvalidPayload):
		return "invalidPayload"
	case errors.Is(err, errUnsupportedType):
		return "unsupported"
	}
	return "internal"
}
