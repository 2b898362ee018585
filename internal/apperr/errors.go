// Package apperr defines the error kinds surfaced by the listing services.
// Callers match kinds with errors.Is; the original cause stays reachable
// through errors.Unwrap.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrFailedPrecondition = errors.New("failed precondition")
	ErrInvalidArgument    = errors.New("invalid argument")

	// ErrTransient marks store unavailability; the caller may retry.
	ErrTransient = errors.New("transient")
	ErrInternal  = errors.New("internal error")
)

type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	switch {
	case e.cause != nil && e.msg != "":
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", e.kind, e.cause)
	case e.msg != "":
		return fmt.Sprintf("%s: %s", e.kind, e.msg)
	}
	return e.kind.Error()
}

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// New returns an error of the given kind with a message.
func New(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap tags cause with kind. A nil cause yields nil.
func Wrap(kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &kindError{kind: kind, msg: msg, cause: cause}
}

// Classify tags storage errors that have no kind yet: network and deadline
// failures become ErrTransient, everything else ErrInternal.
func Classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	for _, k := range []error{ErrNotFound, ErrPermissionDenied, ErrFailedPrecondition, ErrInvalidArgument, ErrTransient, ErrInternal} {
		if errors.Is(err, k) {
			return err
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, net.ErrClosed) {
		return Wrap(ErrTransient, err, msg)
	}
	return Wrap(ErrInternal, err, msg)
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
