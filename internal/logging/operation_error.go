package logging

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// OperationError records which operation failed, for which request, and
// after how many attempts.
type OperationError struct {
	Operation string
	RequestID string
	Attempts  int
	Err       error
}

func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	msg := e.Operation
	if e.RequestID != "" {
		msg += " (request_id=" + e.RequestID + ")"
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	return msg + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Fields returns the error metadata as zap fields.
func (e *OperationError) Fields() []zap.Field {
	fields := []zap.Field{zap.String("operation", e.Operation), zap.Error(e.Err)}
	if e.RequestID != "" {
		fields = append(fields, zap.String("request_id", e.RequestID))
	}
	if e.Attempts > 0 {
		fields = append(fields, zap.Int("attempts", e.Attempts))
	}
	return fields
}

// NewOperationError wraps err with the operation name and request id.
// A nil err stays nil.
func NewOperationError(operation, requestID string, err error) error {
	return NewRetriedError(operation, requestID, 0, err)
}

// NewRetriedError is NewOperationError for work that was attempted more than once.
func NewRetriedError(operation, requestID string, attempts int, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, RequestID: requestID, Attempts: attempts, Err: err}
}

// OperationOf returns the outermost OperationError in err's chain.
func OperationOf(err error) (*OperationError, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr, true
	}
	return nil, false
}
