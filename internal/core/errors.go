package core

import "fmt"

type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindInternal   ErrorKind = "INTERNAL_ERROR"
)

// Error carries the kind the API layer maps to a status code. Message is
// safe to return to clients; Err is for logs only.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("core: %s: %s (%s)", e.Op, e.Message, e.Kind)
	}
	return fmt.Sprintf("core: %s: %s (%s): %v", e.Op, e.Message, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func validationError(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

func notFoundError(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: "Internal server error", Err: err}
}
