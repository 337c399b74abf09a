package enumerate

import (
	"errors"
	"fmt"
)

// Stable machine-readable codes carried by UsageError.
const (
	CodeBadParams = "badparams"
	CodeRevIDs    = "revids"
	CodeMultPages = "multpages"
	CodeBadLimit  = "badlimit"
)

// UsageError reports a malformed or self-contradicting query. Callers surface
// it verbatim; Code never changes for a given condition.
type UsageError struct {
	Code string
	Info string
}

func (e *UsageError) Error() string { return e.Code + ": " + e.Info }

func usage(code, format string, args ...any) error {
	return &UsageError{Code: code, Info: fmt.Sprintf(format, args...)}
}

// ContinuationError reports a continuation token that does not decode into a
// position valid for the query it was sent with. Clients restart from scratch.
type ContinuationError struct {
	Token  string
	Reason string
}

func (e *ContinuationError) Error() string {
	return fmt.Sprintf("invalid continue parameter %q: %s", e.Token, e.Reason)
}

// StoreError wraps a failure of the record store. It is never retried here.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "store " + e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// IsUsage reports whether err is a UsageError and returns it.
func IsUsage(err error) (*UsageError, bool) {
	var ue *UsageError
	ok := errors.As(err, &ue)
	return ue, ok
}

// IsContinuation reports whether err is a ContinuationError.
func IsContinuation(err error) bool {
	var ce *ContinuationError
	return errors.As(err, &ce)
}
