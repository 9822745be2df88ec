// Package pdferr defines the closed set of error kinds spec.md §7
// requires (OutOfMemory, InvariantViolation, BadColorSpace, CMMFailure,
// RangeError) and a wrapping Error type that carries a stack trace via
// github.com/pkg/errors, grounded on
// _examples/other_examples/743699f7_pdfcpu-pdfcpu__...iccProfile.go's
// sentinel-kind + errors.Errorf idiom. Every internal package returns
// *Error so the root pdf14 package (which re-exports Kind/Error/New) and
// its callers can both errors.Is-compare and inspect a Kind().
package pdferr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the error categories spec.md §7 names.
type Kind int

const (
	OutOfMemory Kind = iota
	InvariantViolation
	BadColorSpace
	CMMFailure
	RangeError
)

func (k Kind) String() string {
	switch k {
	case OutOfMemory:
		return "OutOfMemory"
	case InvariantViolation:
		return "InvariantViolation"
	case BadColorSpace:
		return "BadColorSpace"
	case CMMFailure:
		return "CMMFailure"
	case RangeError:
		return "RangeError"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind and a stack trace.
type Error struct {
	kind  Kind
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

// Format forwards to the wrapped cause's %+v stack trace when available,
// matching pkg/errors's own Format contract.
func (e *Error) Format(s fmt.State, verb rune) {
	if f, ok := e.cause.(fmt.Formatter); ok {
		f.Format(s, verb)
		return
	}
	fmt.Fprint(s, e.Error())
}

// New creates a *Error of the given kind from a message, capturing a
// stack trace at the call site.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, cause: errors.New(msg)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, cause: errors.Errorf(format, args...)}
}

// Wrap attaches a kind and stack trace to an existing error. Returns nil
// if err is nil.
func Wrap(kind Kind, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, cause: errors.Wrap(err, msg)}
}

// Is reports whether err is a *Error of the given kind, for callers that
// want errors.Is-style kind comparison without a type switch.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.kind == kind
}
