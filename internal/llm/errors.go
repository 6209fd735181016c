package llm

import "fmt"

// ErrorKind classifies LLM collaborator failures.
type ErrorKind string

// LLM failure kinds.
const (
	KindTimeout         ErrorKind = "timeout"
	KindMalformedOutput ErrorKind = "malformed_output"
	KindUnavailable     ErrorKind = "unavailable"
)

// Error is a typed LLM failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("llm %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// MalformedOutput builds a malformed-output error for unparsable responses.
func MalformedOutput(message string, cause error) *Error {
	return &Error{Kind: KindMalformedOutput, Message: message, Cause: cause}
}
