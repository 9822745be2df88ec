package blend

// Composite implements spec.md §4.3's generic composite-pixel formula,
// combining a per-channel blend() result with source/backdrop alpha via
// the Porter-Duff union rule:
//
//	cb  = blend(backdrop.color, source.color)
//	ar  = as + ab - as*ab
//	cr  = (1 - as/ar)*cb_old + (as/ar)*((1-ab)*cs + ab*cb)
//
// All inputs/outputs are plain (non-premultiplied) [0,1] channel vectors;
// the caller (internal/group's push/pop engine) is responsible for
// converting to/from the buffer's stored fixed-point representation.
type Result struct {
	Color []float64
	Alpha float64
}

// Composite computes the standard (non-knockout) composite of a source
// pixel over a backdrop pixel, given the group's current blend mode and
// procs (procs is only consulted for non-separable modes; nil is fine for
// separable ones).
func Composite(mode Mode, procs Procs, cbOld []float64, ab float64, cs []float64, as float64) Result {
	n := len(cbOld)
	blended := blendVec(mode, procs, cbOld, cs)

	ar := as + ab - as*ab
	out := make([]float64, n)
	if ar <= 0 {
		return Result{Color: out, Alpha: 0}
	}
	for i := 0; i < n; i++ {
		var csv, cbv float64
		if i < len(cs) {
			csv = cs[i]
		}
		if i < len(cbOld) {
			cbv = cbOld[i]
		}
		var bv float64
		if i < len(blended) {
			bv = blended[i]
		}
		mixed := (1-ab)*csv + ab*bv
		out[i] = (1-as/ar)*cbv + (as/ar)*mixed
	}
	return Result{Color: out, Alpha: ar}
}

// Knockout computes the knockout composite (spec.md §4.4 "Knockout
// groups"): the result replaces the backdrop directly rather than
// accumulating over previously-painted group members.
//
//	cr = (1-as)*cb_backdrop + as*cs
//	ar = as (when the knockout group itself is not isolated; the caller
//	     is responsible for combining ar with the group's own backdrop
//	     alpha per spec.md's knockout semantics at group-pop time)
func Knockout(cbBackdrop []float64, as float64, cs []float64) Result {
	n := len(cs)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var cbv float64
		if i < len(cbBackdrop) {
			cbv = cbBackdrop[i]
		}
		out[i] = (1-as)*cbv + as*cs[i]
	}
	return Result{Color: out, Alpha: as}
}

// IsolatedKnockout computes the isolated-knockout composite (spec.md §4.4:
// "isolated and knockout together"): the result is simply the source,
// since the group's own backdrop starts fully transparent and each member
// knocks out the others rather than compositing against them.
func IsolatedKnockout(cs []float64, as float64) Result {
	out := make([]float64, len(cs))
	copy(out, cs)
	return Result{Color: out, Alpha: as}
}

// blendVec applies mode/procs to a whole color vector, routing to the
// non-separable Blend() for Hue/Saturation/Color/Luminosity and to the
// separable per-channel Channel() otherwise. Compatible and
// CompatibleOverprint behave like Normal at the blend step: their
// distinguishing behavior is about overprint channel masking, applied by
// OverprintMask below, not about the color math here.
func blendVec(mode Mode, procs Procs, cb, cs []float64) []float64 {
	if mode.IsNonSeparable() && procs != nil {
		return Blend(mode, procs, cb, cs)
	}
	out := make([]float64, len(cb))
	for i := range out {
		var s float64
		if i < len(cs) {
			s = cs[i]
		}
		out[i] = channel(mode, cb[i], s)
	}
	return out
}

// OverprintMask implements spec.md §4.3's "Overprint interaction"
// paragraph for the CompatibleOverprint mode (for every other mode,
// Compatible included, result is returned unchanged): when overprint
// is active, channels not present in the source's original color space
// (e.g. separations not listed in a DeviceN source painted into a CMYK
// group) are left unchanged rather than composited, because the PDF
// overprint model treats an absent channel as "leave the press plate
// alone". present reports, per output channel index, whether the source
// actually supplies that channel.
func OverprintMask(mode Mode, result Result, cbOld []float64, present []bool) Result {
	if mode != CompatibleOverprint {
		return result
	}
	out := make([]float64, len(result.Color))
	copy(out, result.Color)
	for i := range out {
		painted := i < len(present) && present[i]
		if !painted && i < len(cbOld) {
			out[i] = cbOld[i]
		}
	}
	return Result{Color: out, Alpha: result.Alpha}
}
