package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType identifies what went wrong during a run
type ErrorType string

const (
	ErrorTypeCookieInvalid     ErrorType = "cookie_invalid"
	ErrorTypeNoAccount         ErrorType = "no_account"
	ErrorTypeLoginFailed       ErrorType = "login_failed"
	ErrorTypeSecurityChallenge ErrorType = "security_challenge"
	ErrorTypeNavigation        ErrorType = "navigation"
	ErrorTypeExtraction        ErrorType = "extraction"
	ErrorTypeArtifact          ErrorType = "artifact"
	ErrorTypeInvalidTarget     ErrorType = "invalid_target"
	ErrorTypeBrowser           ErrorType = "browser"
	ErrorTypeAborted           ErrorType = "aborted"
	ErrorTypeUnknown           ErrorType = "unknown"
)

// Class groups error types by how the coordinator reacts to them
type Class int

const (
	// ClassSoft drives normal state transitions and is never logged as an error
	ClassSoft Class = iota
	// ClassAccount disables the account for the rest of the run
	ClassAccount
	// ClassTarget fails one target; the run moves on
	ClassTarget
	// ClassFatal ends the run early
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassSoft:
		return "soft"
	case ClassAccount:
		return "account"
	case ClassTarget:
		return "target"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error carries a type, a message and an optional cause
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on type so sentinels compare equal to wrapped instances
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// Class reports the reaction class of the error
func (e *Error) Class() Class {
	return ClassOf(e.Type)
}

// New builds an Error of the given type
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap builds an Error of the given type around a cause
func Wrap(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// ClassOf maps an error type to its reaction class
func ClassOf(errorType ErrorType) Class {
	switch errorType {
	case ErrorTypeCookieInvalid, ErrorTypeNoAccount:
		return ClassSoft
	case ErrorTypeLoginFailed, ErrorTypeSecurityChallenge:
		return ClassAccount
	case ErrorTypeNavigation, ErrorTypeExtraction, ErrorTypeArtifact, ErrorTypeInvalidTarget:
		return ClassTarget
	case ErrorTypeAborted, ErrorTypeBrowser:
		return ClassFatal
	default:
		return ClassTarget
	}
}

// TypeOf returns the type of the first *Error in the chain, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsAccountError reports whether err should disable the account that produced it
func IsAccountError(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Class() == ClassAccount
}

// Sentinels matched with errors.Is
var (
	ErrProfileNotFound     = New(ErrorTypeExtraction, "profile not found")
	ErrUnsupportedTemplate = New(ErrorTypeExtraction, "unsupported page template")
	ErrLoginFailed         = New(ErrorTypeLoginFailed, "")
	ErrSecurityChallenge   = New(ErrorTypeSecurityChallenge, "")
	ErrNoAccountAvailable  = New(ErrorTypeNoAccount, "")
	ErrRunAborted          = New(ErrorTypeAborted, "")
)
