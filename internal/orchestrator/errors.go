package orchestrator

import (
	"errors"
	"fmt"
)

// AccessDeniedError reports a remote authorization failure (HTTP 403). It is
// surfaced as a distinct condition so callers can present it to the user
// instead of treating it as a generic failure.
type AccessDeniedError struct {
	Namespace string
	Operation string
	Err       error
}

func (e *AccessDeniedError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("access denied: no permission to %s", e.Operation)
	}
	return fmt.Sprintf("access denied: no permission to %s in namespace %q", e.Operation, e.Namespace)
}

func (e *AccessDeniedError) Unwrap() error {
	return e.Err
}

// IsAccessDenied reports whether err is (or wraps) an AccessDeniedError.
func IsAccessDenied(err error) bool {
	var accessErr *AccessDeniedError
	return errors.As(err, &accessErr)
}
