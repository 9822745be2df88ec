package blend

// Procs is the polymorphic {luminosity, saturation} pair spec.md §4.3/§9
// calls "blend_procs": the four non-separable modes (Hue, Saturation,
// Color, Luminosity) need a color-space-specific way to measure and set a
// color's luminosity and saturation. Selection happens once at group push
// (spec.md §4.8) and is stored on the Buffer, matching the Design Notes
// §9 guidance to avoid per-pixel dispatch.
type Procs interface {
	// Lum returns the luminosity of a plain color vector in [0,1]
	// components.
	Lum(c []float64) float64
	// SetLum returns c with its luminosity replaced by l, clipped back
	// into gamut the way ClipColor does in the PDF spec's pseudocode.
	SetLum(c []float64, l float64) []float64
	// Sat returns the saturation (max component - min component) of c.
	Sat(c []float64) float64
	// SetSat returns c with its saturation replaced by s, preserving
	// relative channel ordering.
	SetSat(c []float64, s float64) []float64
}

// weightedProcs implements Procs for an additive or subtractive color space via a
// per-channel luminosity weight vector (spec.md's "specialized per color
// space (Gray, RGB, CMYK, generic)"), matching how gray/RGB/CMYK differ
// only in their weight vector and additive/subtractive polarity.
type weightedProcs struct {
	weights    []float64
	subtractive bool
}

// NewRGBProcs returns blend procs for a 3-channel additive RGB space using
// the standard Rec. 601-derived luminosity weights the PDF spec's
// non-separable blend pseudocode uses.
func NewRGBProcs() Procs {
	return &weightedProcs{weights: []float64{0.3, 0.59, 0.11}}
}

// NewGrayProcs returns blend procs for a single-channel gray space, where
// luminosity is the channel itself and saturation is always zero.
func NewGrayProcs() Procs {
	return &weightedProcs{weights: []float64{1.0}}
}

// NewCMYKProcs returns blend procs for a 4-channel subtractive CMYK space.
// Ink coverage reduces luminosity rather than contributing to it, so the
// weighted sum is complemented: Lum = 1 - min(1, 0.3C+0.59M+0.11Y+K).
func NewCMYKProcs() Procs {
	return &weightedProcs{weights: []float64{0.3, 0.59, 0.11, 1.0}, subtractive: true}
}

// NewGenericProcs returns blend procs for an n-channel space with no
// known primaries (DeviceN/spot-augmented groups): every channel is
// weighted equally, matching spec.md's "generic" color-model case.
func NewGenericProcs(nChan int, subtractive bool) Procs {
	w := make([]float64, nChan)
	if nChan > 0 {
		eq := 1.0 / float64(nChan)
		for i := range w {
			w[i] = eq
		}
	}
	return &weightedProcs{weights: w, subtractive: subtractive}
}

func (p *weightedProcs) lumOf(c []float64) float64 {
	var sum float64
	for i, w := range p.weights {
		if i < len(c) {
			sum += w * c[i]
		}
	}
	if p.subtractive {
		return 1 - min(1, sum)
	}
	return sum
}

func (p *weightedProcs) Lum(c []float64) float64 { return p.lumOf(c) }

func (p *weightedProcs) Sat(c []float64) float64 {
	if len(c) == 0 {
		return 0
	}
	mn, mx := c[0], c[0]
	for _, v := range c[1:] {
		mn = min(mn, v)
		mx = max(mx, v)
	}
	return mx - mn
}

// SetLum implements the PDF spec's SetLum(C,l) = ClipColor(C + (l-Lum(C))).
func (p *weightedProcs) SetLum(c []float64, l float64) []float64 {
	d := l - p.lumOf(c)
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = v + d
	}
	return p.clipColor(out)
}

// clipColor implements the PDF spec's ClipColor pseudocode, pulling any
// out-of-gamut vector back toward its own luminosity.
func (p *weightedProcs) clipColor(c []float64) []float64 {
	l := p.lumOf(c)
	mn, mx := c[0], c[0]
	for _, v := range c[1:] {
		mn = min(mn, v)
		mx = max(mx, v)
	}
	out := make([]float64, len(c))
	copy(out, c)
	if mn < 0 {
		for i, v := range out {
			out[i] = l + (v-l)*l/(l-mn)
		}
	}
	// Re-evaluate max after the first clip pass, matching the PDF
	// pseudocode's sequential (not simultaneous) clip-low-then-high order.
	mx = out[0]
	for _, v := range out[1:] {
		mx = max(mx, v)
	}
	if mx > 1 {
		for i, v := range out {
			out[i] = l + (v-l)*(1-l)/(mx-l)
		}
	}
	return out
}

// SetSat implements the PDF spec's SetSat(C,s): the min channel becomes 0,
// the max channel becomes s, and the mid channel becomes
// (mid-min)*s/(max-min), preserving which channel was min/mid/max.
func (p *weightedProcs) SetSat(c []float64, s float64) []float64 {
	out := make([]float64, len(c))
	copy(out, c)
	if len(out) < 2 {
		return out
	}
	minI, maxI := 0, 0
	for i, v := range out {
		if v < out[minI] {
			minI = i
		}
		if v > out[maxI] {
			maxI = i
		}
	}
	if minI == maxI {
		for i := range out {
			out[i] = 0
		}
		return out
	}
	midI := -1
	for i := range out {
		if i != minI && i != maxI {
			midI = i
			break
		}
	}
	if out[maxI] > out[minI] {
		if midI >= 0 {
			out[midI] = (out[midI] - out[minI]) * s / (out[maxI] - out[minI])
		}
		out[maxI] = s
	} else if midI >= 0 {
		out[maxI] = 0
		out[midI] = 0
	}
	out[minI] = 0
	return out
}

// Blend applies one of the four non-separable modes to a backdrop/source
// pair of plain color vectors, per the PDF 1.4 spec's pseudocode:
//
//	Hue:        SetLum(SetSat(Cs, Sat(Cb)), Lum(Cb))
//	Saturation: SetLum(SetSat(Cb, Sat(Cs)), Lum(Cb))
//	Color:      SetLum(Cs, Lum(Cb))
//	Luminosity: SetLum(Cb, Lum(Cs))
func Blend(m Mode, procs Procs, cb, cs []float64) []float64 {
	switch m {
	case Hue:
		return procs.SetLum(procs.SetSat(cloneVec(cs), procs.Sat(cb)), procs.Lum(cb))
	case Saturation:
		return procs.SetLum(procs.SetSat(cloneVec(cb), procs.Sat(cs)), procs.Lum(cb))
	case Color:
		return procs.SetLum(cloneVec(cs), procs.Lum(cb))
	case Luminosity:
		return procs.SetLum(cloneVec(cb), procs.Lum(cs))
	default:
		out := make([]float64, len(cb))
		for i := range out {
			var s float64
			if i < len(cs) {
				s = cs[i]
			}
			out[i] = channel(m, cb[i], s)
		}
		return out
	}
}

func cloneVec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
