package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound        = errors.New("document not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrConcurrencyConflict     = errors.New("concurrent operation in progress")
	ErrAlreadySubmitted        = errors.New("document already submitted")
	ErrOCRFailure              = errors.New("ocr failure")
	ErrRemoteAPI               = errors.New("accounting platform failure")
	ErrTemporary               = errors.New("temporary failure")
)

// RemoteAPIError carries the accounting platform's verbatim error detail plus
// the retryable classification made by the transport layer.
type RemoteAPIError struct {
	Operation  string
	StatusCode int
	Retryable  bool
	Detail     string
}

func (e *RemoteAPIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("yuki %s failed with status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("yuki %s failed with status %d: %s", e.Operation, e.StatusCode, e.Detail)
}

func (e *RemoteAPIError) Unwrap() error { return ErrRemoteAPI }

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsRetryable reports whether a submission failure may be retried. Anything
// that is not an explicitly non-retryable remote rejection counts as
// retryable (timeouts, transport errors, 5xx).
func IsRetryable(err error) bool {
	var remote *RemoteAPIError
	if errors.As(err, &remote) {
		return remote.Retryable
	}
	return true
}
