// Package blend implements the per-pixel blend and composite kernels of
// the PDF 1.4 transparency model (spec.md §4.3, component C4): the sixteen
// named blend modes plus the two overprint-aware compatible modes, and the
// Porter-Duff compositing formula that combines a blended color with
// source/backdrop alpha.
//
// The separable formulas here mirror the plain (non-premultiplied) color
// arithmetic from the PDF/ISO 32000 blending annex; internal/pixfmt's
// CompositeBlender in the teacher repo implements the same eleven modes in
// premultiplied form (Dca' = ...) for a fixed RGBA8 pixel layout. This
// package keeps the plain-color form instead, because spec.md §4.3's
// generic composite formula is written in terms of a plain-color blend()
// plugged into a separate alpha-composite step, and because a plain-color
// blend generalizes to an arbitrary channel count (CMYK + spots) without
// per-channel premultiply/demultiply bookkeeping duplicated in every mode.
package blend

// Mode is one of the sixteen PDF blend modes plus the two overprint
// variants named in spec.md §4.3.
type Mode int

const (
	Normal Mode = iota
	Multiply
	Screen
	Darken
	Lighten
	ColorDodge
	ColorBurn
	HardLight
	SoftLight
	Overlay
	Difference
	Exclusion
	Hue
	Saturation
	Color
	Luminosity
	Compatible
	CompatibleOverprint
)

// String names a blend mode for logging/diagnostics.
func (m Mode) String() string {
	switch m {
	case Normal:
		return "Normal"
	case Multiply:
		return "Multiply"
	case Screen:
		return "Screen"
	case Darken:
		return "Darken"
	case Lighten:
		return "Lighten"
	case ColorDodge:
		return "ColorDodge"
	case ColorBurn:
		return "ColorBurn"
	case HardLight:
		return "HardLight"
	case SoftLight:
		return "SoftLight"
	case Overlay:
		return "Overlay"
	case Difference:
		return "Difference"
	case Exclusion:
		return "Exclusion"
	case Hue:
		return "Hue"
	case Saturation:
		return "Saturation"
	case Color:
		return "Color"
	case Luminosity:
		return "Luminosity"
	case Compatible:
		return "Compatible"
	case CompatibleOverprint:
		return "CompatibleOverprint"
	default:
		return "Unknown"
	}
}

// IsSeparable reports whether mode is evaluated per channel independently
// (spec.md §4.3: "The first twelve are separable").
func (m Mode) IsSeparable() bool {
	return m >= Normal && m <= Exclusion
}

// IsNonSeparable reports whether mode needs the polymorphic blend procs
// (Hue, Saturation, Color, Luminosity).
func (m Mode) IsNonSeparable() bool {
	return m >= Hue && m <= Luminosity
}

// channel applies one of the twelve separable blend modes to a pair of
// plain (non-premultiplied) channel values in [0,1]. Overlay is HardLight
// with backdrop and source swapped. Compatible and CompatibleOverprint
// blend like Normal at this layer: their distinguishing behavior is about
// which channels get written (OverprintMask in composite.go), not how a
// single channel blends.
func channel(m Mode, cb, cs float64) float64 {
	switch m {
	case Multiply:
		return cb * cs
	case Screen:
		return cb + cs - cb*cs
	case Darken:
		return min(cb, cs)
	case Lighten:
		return max(cb, cs)
	case ColorDodge:
		return colorDodge(cb, cs)
	case ColorBurn:
		return colorBurn(cb, cs)
	case HardLight:
		return hardLight(cb, cs)
	case SoftLight:
		return softLight(cb, cs)
	case Overlay:
		// Overlay(cb,cs) = HardLight(cs,cb): PDF 1.4 defines Overlay as
		// HardLight with backdrop and source swapped.
		return hardLight(cs, cb)
	case Difference:
		return abs(cb - cs)
	case Exclusion:
		return cb + cs - 2*cb*cs
	default: // Normal, Compatible, CompatibleOverprint
		return cs
	}
}

func colorDodge(cb, cs float64) float64 {
	if cb == 0 {
		return 0
	}
	if cs >= 1 {
		return 1
	}
	return min(1, cb/(1-cs))
}

func colorBurn(cb, cs float64) float64 {
	if cb >= 1 {
		return 1
	}
	if cs <= 0 {
		return 0
	}
	return 1 - min(1, (1-cb)/cs)
}

func hardLight(cb, cs float64) float64 {
	if cs <= 0.5 {
		return cb * (2 * cs)
	}
	return cb + (2*cs - 1) - cb*(2*cs-1)
}

func softLight(cb, cs float64) float64 {
	if cs <= 0.5 {
		return cb - (1-2*cs)*cb*(1-cb)
	}
	var d float64
	if cb <= 0.25 {
		d = ((16*cb-12)*cb + 4) * cb
	} else {
		d = sqrt(cb)
	}
	return cb + (2*cs-1)*(d-cb)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// sqrt avoids importing math solely for one call site in softLight's tail;
// Newton's method converges to float64 precision in a handful of steps for
// the [0,1] domain softLight needs, matching the teacher repo's avoidance
// of extra imports in small per-pixel math helpers (e.g. RGBA8Multiply).
func sqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}
	x := v
	for i := 0; i < 8; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

// Channel applies a separable blend mode to one channel pair. It is the
// exported form of channel; inside this package, Blend's separable branch
// and the composite kernel call channel directly.
func Channel(m Mode, cb, cs float64) float64 {
	return channel(m, cb, cs)
}
