package contract

import (
	"errors"
	"fmt"

	statex "github.com/tanpawarit/clinical-intake-orchestrator/agent/state"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrRouting         = errors.New("routing could not be determined")
	ErrToolExecution   = errors.New("tool execution failed")
	ErrExternalService = errors.New("external service unavailable")
	ErrTransient       = errors.New("transient failure")
	ErrSessionNotFound = statex.ErrSessionNotFound
)

// OperationError names the operation a failure belongs to.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func OpError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Err: err}
}

// FailedOperation returns the operation name attached to err, if any.
func FailedOperation(err error) string {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Op
	}
	return ""
}
