// Package errs defines the error taxonomy shared by every IDIOMS
// component, so call sites can branch with errors.Is/errors.As instead
// of matching on strings.
package errs

import "fmt"

// Code classifies an error into one of the categories from the design's
// error handling section.
type Code int

const (
	// CodeParse covers malformed query strings and malformed ranges.
	CodeParse Code = iota + 1
	// CodeIO covers checkpoint/recover and mapping load/save failures.
	CodeIO
	// CodeVersionMismatch covers file headers or stored counts that
	// disagree with the current configuration.
	CodeVersionMismatch
	// CodeTransport covers serialized error responses and unexpected
	// wire tags.
	CodeTransport
	// CodeTopology covers missing active servers, invalid client ids,
	// and deletes of unknown records.
	CodeTopology
	// CodeInvariant covers duplicate virtual-node ids and recovery
	// refusals due to a stored server id mismatch.
	CodeInvariant
)

func (c Code) String() string {
	switch c {
	case CodeParse:
		return "parse"
	case CodeIO:
		return "io"
	case CodeVersionMismatch:
		return "version_mismatch"
	case CodeTransport:
		return "transport"
	case CodeTopology:
		return "topology"
	case CodeInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// IdiomsError is a structured error carrying a taxonomy code and an
// optional cause, so wrapping never loses the original error for
// errors.Is/errors.As.
type IdiomsError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *IdiomsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *IdiomsError) Unwrap() error {
	return e.Cause
}

// New builds an IdiomsError with no cause.
func New(code Code, message string) *IdiomsError {
	return &IdiomsError{Code: code, Message: message}
}

// Wrap attaches a taxonomy code and message to an existing error.
func Wrap(code Code, message string, cause error) *IdiomsError {
	if cause == nil {
		return New(code, message)
	}
	return &IdiomsError{Code: code, Message: message, Cause: cause}
}

// Is reports whether err is an IdiomsError of the given code.
func Is(err error, code Code) bool {
	ie, ok := err.(*IdiomsError)
	if !ok {
		return false
	}
	return ie.Code == code
}
