package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors.
type ErrorType int

const (
	TypeValidation ErrorType = iota
	TypeUnknownEvent
	TypeUnsupportedEventType
	TypeEventNotRunning
	TypeInvalidRole
	TypeInvalidTime
	TypeStorage
	TypePermission
	TypeSystem
)

// AppError is a structured application error. UserMsg, when set, is the
// text shown to the Discord user at the command boundary; Message and
// Internal stay in the logs.
type AppError struct {
	Type     ErrorType
	Code     string
	Message  string
	UserMsg  string
	Internal error
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

// GetUserMessage returns the message to show to the user.
func (e *AppError) GetUserMessage() string {
	if e.UserMsg != "" {
		return e.UserMsg
	}
	return e.Message
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// AsAppError unwraps err into an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewUnknownEventError reports an event name absent from the catalog.
func NewUnknownEventError(eventType, name string) *AppError {
	return &AppError{
		Type:    TypeUnknownEvent,
		Code:    "UNKNOWN_EVENT",
		Message: fmt.Sprintf("no %s template named %q", eventType, name),
		UserMsg: fmt.Sprintf("Unknown %s `%s`.", eventType, name),
	}
}

// NewUnsupportedEventTypeError reports an event type the catalog does not carry.
func NewUnsupportedEventTypeError(eventType string) *AppError {
	return &AppError{
		Type:    TypeUnsupportedEventType,
		Code:    "UNSUPPORTED_EVENT_TYPE",
		Message: fmt.Sprintf("unsupported event type %q", eventType),
		UserMsg: fmt.Sprintf("Unsupported event type `%s`.", eventType),
	}
}

// NewEventNotRunningError reports an action aimed at an event with no live session.
func NewEventNotRunningError(eventID int64) *AppError {
	return &AppError{
		Type:    TypeEventNotRunning,
		Code:    "EVENT_NOT_RUNNING",
		Message: fmt.Sprintf("event %d has no running session", eventID),
		UserMsg: fmt.Sprintf("Event %d is not currently running.", eventID),
	}
}

// NewInvalidRoleError reports a role key the event's template does not offer.
func NewInvalidRoleError(role string) *AppError {
	return &AppError{
		Type:    TypeInvalidRole,
		Code:    "INVALID_ROLE",
		Message: fmt.Sprintf("role %q is not offered for this event", role),
		UserMsg: fmt.Sprintf("Role `%s` is not available for this event.", role),
	}
}

// NewInvalidTimeError reports a trigger time that failed to parse.
func NewInvalidTimeError(value string) *AppError {
	return &AppError{
		Type:    TypeInvalidTime,
		Code:    "INVALID_TIME_FORMAT",
		Message: fmt.Sprintf("cannot parse time %q", value),
		UserMsg: "Wrong time format. Are you sure it is ISO?",
	}
}

// NewStorageError wraps a failed storage commit or query. The in-flight
// operation is aborted; prior persisted state is untouched.
func NewStorageError(code, message string, err error) *AppError {
	return &AppError{
		Type:     TypeStorage,
		Code:     code,
		Message:  message,
		UserMsg:  "Something went wrong saving the event. Please try again.",
		Internal: err,
	}
}

// NewValidationError reports invalid user input.
func NewValidationError(code, message, userMsg string) *AppError {
	return &AppError{
		Type:    TypeValidation,
		Code:    code,
		Message: message,
		UserMsg: userMsg,
	}
}

// NewPermissionError reports a role-gated command used without the gate.
func NewPermissionError(code, message, userMsg string) *AppError {
	return &AppError{
		Type:    TypePermission,
		Code:    code,
		Message: message,
		UserMsg: userMsg,
	}
}

// NewSystemError reports an unexpected internal failure.
func NewSystemError(code, message string, err error) *AppError {
	return &AppError{
		Type:     TypeSystem,
		Code:     code,
		Message:  message,
		UserMsg:  "An internal error occurred. Please contact an officer.",
		Internal: err,
	}
}
