package shortener

import (
	"errors"
	"fmt"
)

// Kind classifies a service error for callers that map it onto a transport.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Machine-readable error codes.
const (
	CodeInvalidURL = "INVALID_URL"
	CodeExists     = "EXISTS"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL"
)

// ErrGeneratorExhausted is wrapped when every generated code collided with an existing one.
var ErrGeneratorExhausted = errors.New("code generator exhausted")

// Error is the error type returned by Service and Rewriter.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

func invalidURL(msg string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidURL, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: msg}
}

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: err}
}
