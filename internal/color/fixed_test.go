package color

import "testing"

func TestToUnitFromUnitRoundTrip(t *testing.T) {
	// Full-scale alpha must round-trip exactly at both depths (spec.md §8:
	// "16-bit alpha=65535 is preserved exactly").
	if got := FromUnit[uint16](ToUnit[uint16](65535)); got != 65535 {
		t.Errorf("uint16 round trip of max = %d, want 65535", got)
	}
	if got := FromUnit[uint8](ToUnit[uint8](255)); got != 255 {
		t.Errorf("uint8 round trip of max = %d, want 255", got)
	}
	if got := FromUnit[uint16](ToUnit[uint16](0)); got != 0 {
		t.Errorf("uint16 round trip of zero = %d, want 0", got)
	}
}

func TestFromUnitClamps(t *testing.T) {
	if got := FromUnit[uint8](-1.0); got != 0 {
		t.Errorf("FromUnit(-1) = %d, want 0", got)
	}
	if got := FromUnit[uint8](2.0); got != 255 {
		t.Errorf("FromUnit(2) = %d, want 255", got)
	}
}

func TestFixMultiplyIdentity(t *testing.T) {
	// Multiplying by the channel's own max is an identity operation.
	if got := FixMultiply[uint8](200, 255); got != 200 {
		t.Errorf("FixMultiply(200,255) = %d, want 200", got)
	}
	if got := FixMultiply[uint8](200, 0); got != 0 {
		t.Errorf("FixMultiply(200,0) = %d, want 0", got)
	}
}

func TestFixLerpEndpoints(t *testing.T) {
	if got := FixLerp[uint8](10, 200, 0); got != 10 {
		t.Errorf("FixLerp at a=0 = %d, want 10", got)
	}
	if got := FixLerp[uint8](10, 200, 255); got != 200 {
		t.Errorf("FixLerp at a=255 = %d, want 200", got)
	}
}
