// Package failure classifies the errors produced by the trade radar core so
// callers can decide whether to retry silently, reject, or notify the user.
package failure

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the failure class of an error.
type Kind int

const (
	// Unknown errors are treated like Permanent ones by callers.
	Unknown Kind = iota
	// Transient failures (timeouts, unreachable server) are retried on the next tick.
	Transient
	// Validation failures are rejected before any side effect.
	Validation
	// Conflict failures mean the server of record refused the change.
	Conflict
	// Permanent failures mean the response could not be understood.
	Permanent
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is.
var (
	ErrTransient  = &Error{Kind: Transient}
	ErrValidation = &Error{Kind: Validation}
	ErrConflict   = &Error{Kind: Conflict}
	ErrPermanent  = &Error{Kind: Permanent}
)

// Error carries a Kind, the operation that failed and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String() + " failure"
	case e.Err == nil:
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrConflict) works
// regardless of Op and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// TransientErr wraps err as a Transient failure of op.
func TransientErr(op string, err error) error { return newError(Transient, op, err) }

// ValidationErr reports a rejected operation.
func ValidationErr(op, msg string) error { return newError(Validation, op, errors.New(msg)) }

// ConflictErr wraps err as a Conflict failure of op.
func ConflictErr(op string, err error) error { return newError(Conflict, op, err) }

// PermanentErr wraps err as a Permanent failure of op.
func PermanentErr(op string, err error) error { return newError(Permanent, op, err) }

// KindOf returns the Kind of the outermost *Error in err's chain. Context
// deadline and cancellation errors count as Transient.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient
	}
	return Unknown
}

// Classify wraps an unclassified error as Transient when it is a timeout and
// leaves already classified errors untouched.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return TransientErr(op, err)
	}
	return err
}
