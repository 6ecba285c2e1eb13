package sandbox

import (
	"errors"
	"fmt"
)

// Failure classes carried by ExecutionResult.Err. Transports map them to
// status codes with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrPrecondition        = errors.New("precondition failed")
	ErrStaging             = errors.New("staging failed")
	ErrCompile             = errors.New("compile error")
	ErrRuntime             = errors.New("runtime error")
	ErrTimeout             = errors.New("execution timed out")
	ErrInternal            = errors.New("internal error")
)

// ExecError pairs a failure class with the message reported to the caller.
type ExecError struct {
	Kind    error
	Message string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *ExecError) Unwrap() error {
	return e.Kind
}

func newExecError(kind error, message string) *ExecError {
	return &ExecError{Kind: kind, Message: message}
}

// IsCallerError reports whether err marks a request the caller got wrong
// (missing fields or an unknown language tag).
func IsCallerError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrUnsupportedLanguage)
}
