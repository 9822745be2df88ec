package pdferr

import (
	"errors"
	"testing"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		OutOfMemory:         "OutOfMemory",
		InvariantViolation:  "InvariantViolation",
		BadColorSpace:       "BadColorSpace",
		CMMFailure:          "CMMFailure",
		RangeError:          "RangeError",
		Kind(99):            "Unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestNewCarriesKindAndMessage(t *testing.T) {
	e := New(RangeError, "bitsPerSample out of range")
	if e.Kind() != RangeError {
		t.Errorf("Kind() = %v, want RangeError", e.Kind())
	}
	if e.Error() == "" {
		t.Error("Error() should not be empty")
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	e := Newf(BadColorSpace, "expected %d components, got %d", 3, 4)
	if e.Kind() != BadColorSpace {
		t.Errorf("Kind() = %v, want BadColorSpace", e.Kind())
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(CMMFailure, nil, "should stay nil") != nil {
		t.Error("Wrap(kind, nil, msg) should return nil")
	}
}

func TestWrapPreservesUnderlyingCause(t *testing.T) {
	cause := errors.New("underlying failure")
	e := Wrap(OutOfMemory, cause, "allocating buffer")
	if e.Unwrap() == nil {
		t.Fatal("Unwrap() should return a non-nil cause")
	}
	if !errors.Is(e, cause) {
		t.Error("errors.Is(e, cause) should be true through Unwrap")
	}
}

func TestIsMatchesKind(t *testing.T) {
	e := New(InvariantViolation, "stack invariant broken")
	if !Is(e, InvariantViolation) {
		t.Error("Is(e, InvariantViolation) should be true")
	}
	if Is(e, RangeError) {
		t.Error("Is(e, RangeError) should be false for an InvariantViolation error")
	}
}

func TestIsFalseForNonPdferrError(t *testing.T) {
	plain := errors.New("plain error")
	if Is(plain, RangeError) {
		t.Error("Is should return false for an error that is not *Error")
	}
}
