package pdf14

import "pdf14/internal/pdferr"

// Kind enumerates the error categories spec.md §7 names. Re-exported from
// internal/pdferr so callers never need to import an internal package to
// compare error kinds.
type Kind = pdferr.Kind

const (
	OutOfMemory        = pdferr.OutOfMemory
	InvariantViolation = pdferr.InvariantViolation
	BadColorSpace      = pdferr.BadColorSpace
	CMMFailure         = pdferr.CMMFailure
	RangeError         = pdferr.RangeError
)

// Error is the wrapped, kind-tagged, stack-trace-carrying error type every
// public operation returns on failure.
type Error = pdferr.Error

// IsKind reports whether err is a *pdf14.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return pdferr.Is(err, kind)
}
