package group

import (
	"pdf14/internal/basics"
	"pdf14/internal/blend"
	"pdf14/internal/buffer"
	"pdf14/internal/color"
	"pdf14/internal/gstate"
	"pdf14/internal/icc"
	"pdf14/internal/pdferr"
)

// ColorSpaceInfo describes the blend color space a group pushes, per
// spec.md §3 "group_color_info" / §4.8, supplemented with the spot-name
// table SPEC_FULL.md §3 recovers from ztrans.c's color-space resolution
// ("an explicit PDF color-space array that can itself be a /Separation or
// /DeviceN array identifying spot colorants").
type ColorSpaceInfo struct {
	NColor      int
	NSpots      int
	Subtractive bool
	Procs       blend.Procs
	Profile     *gstate.ICCProfile
	SpotNames   []string
}

// GroupParams is the input to BeginGroup, mirroring spec.md §4.4's
// parameter list exactly.
type GroupParams struct {
	Rect                basics.Rect[int]
	Isolated            bool
	Knockout            bool
	Alpha               uint16
	Shape               uint16
	Opacity             uint16
	BlendMode           blend.Mode
	Idle                bool
	HasBackdropCSChange bool
	CSInfo              ColorSpaceInfo
}

// Engine implements the group push/pop engine (C5) and soft-mask
// push/pop engine (C6) described in spec.md §4.4-§4.7, operating over a
// single sample depth T per Context (spec.md Design Notes §9: dispatch
// once per rectangle, never per pixel).
type Engine[T basics.Sample] struct {
	Stack  *BufferStack[T]
	Masks  *MaskStack[T]
	Colors *gstate.Stack
	CMM    icc.CMM

	PageRect basics.Rect[int]
	// HasTags mirrors spec.md §3's root-level constant: whether every
	// buffer in this context carries a tags plane. Unlike has_shape
	// (which is computed per group from its parent), has_tags is fixed
	// for the whole page.
	HasTags bool
}

// NewEngine constructs an Engine rooted at pageRect with the given root
// color-model record (spec.md §3 "additive, n_chan, deep" root constants
// live in the seeded gstate.Record).
func NewEngine[T basics.Sample](pageRect basics.Rect[int], root gstate.Record, cmm icc.CMM) *Engine[T] {
	return &Engine[T]{
		Stack:    NewBufferStack[T](),
		Masks:    NewMaskStack[T](),
		Colors:   gstate.NewStack(root),
		CMM:      cmm,
		PageRect: pageRect,
		HasTags:  root.HasTagPlane,
	}
}

func intersectRect(a, b basics.Rect[int]) basics.Rect[int] {
	r := a
	r.Clip(b)
	return r
}

func rectEmpty(r basics.Rect[int]) bool {
	return r.X1 >= r.X2 || r.Y1 >= r.Y2
}

// BeginGroup implements spec.md §4.4.
func (e *Engine[T]) BeginGroup(p GroupParams) (*Buffer[T], error) {
	parent := e.Stack.Top()

	// Step 1: intersect rect with the root page rect.
	rect := intersectRect(p.Rect, e.PageRect)

	// Step 2: allocate, with has_shape inherited from parent's shape/knockout.
	hasShape := parent != nil && (parent.HasShape || parent.Knockout)
	idle := p.Idle || rectEmpty(rect)
	buf, err := New[T](rect, p.CSInfo.NColor, p.CSInfo.NSpots, hasShape, true, e.HasTags, idle)
	if err != nil {
		return nil, err
	}

	// Step 3: record group-kind parameters.
	buf.Isolated = p.Isolated
	buf.Knockout = p.Knockout
	buf.Alpha = p.Alpha
	buf.Shape = p.Shape
	buf.Opacity = p.Opacity
	buf.BlendMode = p.BlendMode
	buf.Procs = p.CSInfo.Procs

	// Step 4: capture the mask stack, reset to empty for the child group.
	buf.MaskStackTop = e.Masks.SaveAndClear()

	// Record the color-model snapshot this group pushes (spec.md §4.8):
	// only allocate a new record when the group's color space actually
	// differs, per "On each group push whose group color space differs
	// from the current one".
	buf.PrevColorModelIndex = e.Colors.CurrentIndex()
	if p.HasBackdropCSChange {
		rec := gstate.Record{
			NComponents: p.CSInfo.NColor,
			Subtractive: p.CSInfo.Subtractive,
			BitWidth:    basics.SampleBits[T](),
			Profile:     p.CSInfo.Profile,
			Procs:       p.CSInfo.Procs,
			HasTagPlane: buf.HasTags,
		}
		buf.ColorModelIndex = e.Colors.Push(rec)
	} else {
		buf.ColorModelIndex = buf.PrevColorModelIndex
	}

	// Step 5: link to parent and push.
	e.Stack.Push(buf)

	// Step 6: idle groups have no backdrop.
	if idle {
		return buf, nil
	}

	// Step 7: find the backdrop source.
	var backdropSrc *Buffer[T]
	switch {
	case p.Isolated:
		backdropSrc = nil // transparent; new buffer is already zeroed
	case parent != nil && parent.Knockout:
		backdropSrc = parent.Backdrop // may be nil => transparent
	default:
		backdropSrc = parent
	}

	// Step 8: copy backdrop pixels in, color-converting through the CMM
	// if requested.
	if backdropSrc != nil && backdropSrc.Data != nil {
		if err := e.copyBackdrop(buf, backdropSrc, p.HasBackdropCSChange); err != nil {
			return nil, err
		}
	}

	// Step 9: a non-isolated knockout group freezes its own
	// just-copied backdrop for its descendants.
	if p.Knockout && !p.Isolated {
		buf.Backdrop = snapshotBuffer(buf)
	}

	return buf, nil
}

// copyBackdrop copies src's pixels (clipped to dst's rect) into dst,
// optionally running the CMM's MapPlanar if the color spaces differ
// (spec.md §4.4 step 8).
func (e *Engine[T]) copyBackdrop(dst, src *Buffer[T], csChange bool) error {
	if dst.Data == nil || src.Data == nil {
		return nil
	}
	ox := src.Rect.X1 - dst.Rect.X1
	oy := src.Rect.Y1 - dst.Rect.Y1

	if !csChange || dst.NColor == src.NColor {
		n := basics.IMin(dst.NPlanes, src.NPlanes)
		for p := 0; p < n; p++ {
			copyPlaneOffset(dst.Data, src.Data, p, p, ox, oy)
		}
		return nil
	}

	// Component counts differ: copy non-color planes directly, and
	// route color planes through the CMM (spec.md §4.9: "allocate a new
	// buffer and copy non-color planes... by plane if component counts
	// differ").
	srcDesc := icc.BufferDesc{Width: src.Rect.X2 - src.Rect.X1, Height: src.Rect.Y2 - src.Rect.Y1, NComps: src.NColor, BitsPerComp: src.Deep}
	dstDesc := icc.BufferDesc{Width: dst.Rect.X2 - dst.Rect.X1, Height: dst.Rect.Y2 - dst.Rect.Y1, NComps: dst.NColor, BitsPerComp: dst.Deep}
	link, err := e.CMM.NewLink(nil, nil, icc.Perceptual, false)
	if err != nil {
		return pdferr.Wrap(pdferr.CMMFailure, err, "group.copyBackdrop: NewLink")
	}
	defer link.Release()

	srcPlanes := samplePlanesToBytes(src.Data, src.NColor)
	dstPlanes := newByteSamplePlanes[T](dst.Data, dst.NColor)
	if err := e.CMM.MapPlanar(link, srcDesc, dstDesc, srcPlanes, dstPlanes, false); err != nil {
		return pdferr.Wrap(pdferr.CMMFailure, err, "group.copyBackdrop: MapPlanar")
	}
	bytesToSamplePlanes(dst.Data, dstPlanes)

	alphaN := src.AlphaPlane()
	copyPlaneOffset(dst.Data, src.Data, dst.AlphaPlane(), alphaN, ox, oy)
	if dst.HasShape && src.HasShape {
		copyPlaneOffset(dst.Data, src.Data, dst.ShapePlane(), src.ShapePlane(), ox, oy)
	}
	if dst.HasAlphaG && src.HasAlphaG {
		copyPlaneOffset(dst.Data, src.Data, dst.AlphaGPlane(), src.AlphaGPlane(), ox, oy)
	}
	if dst.HasTags && src.HasTags {
		copyPlaneOffset(dst.Data, src.Data, dst.TagsPlane(), src.TagsPlane(), ox, oy)
	}
	return nil
}

// copyPlaneOffset copies one plane from src into dst with an (ox,oy)
// coordinate offset (src-relative-to-dst), clipped to both buffers.
func copyPlaneOffset[T basics.Sample](dst, src *buffer.PlaneBuffer[T], dstPlane, srcPlane, ox, oy int) {
	for y := 0; y < dst.Height(); y++ {
		sy := y + oy
		if sy < 0 || sy >= src.Height() {
			continue
		}
		dstRow := dst.Row(dstPlane, y)
		srcRow := src.Row(srcPlane, sy)
		if dstRow == nil || srcRow == nil {
			continue
		}
		for x := 0; x < len(dstRow); x++ {
			sx := x + ox
			if sx < 0 || sx >= len(srcRow) {
				continue
			}
			dstRow[x] = srcRow[sx]
		}
	}
}

// samplePlanesToBytes builds one contiguous, row-major []byte view per
// color plane (0..nComps-1) of pb for icc.CMM.MapPlanar, encoding each T
// sample the way internal/putimage's samplesToOutputBytes does (direct
// byte cast for uint8, big-endian 2-byte pack for uint16). PlaneBuffer[T]
// interleaves all planes within a row, so a plane cannot be viewed as a
// []byte in place; each row is copied out instead.
func samplePlanesToBytes[T basics.Sample](pb *buffer.PlaneBuffer[T], nComps int) [][]byte {
	planes := newByteSamplePlanes[T](pb, nComps)
	w, h, bpp := pb.Width(), pb.Height(), basics.SampleBits[T]()/8
	for p := 0; p < nComps; p++ {
		for y := 0; y < h; y++ {
			r := pb.Row(p, y)
			if r == nil {
				continue
			}
			encodeSamplesInto(planes[p][y*w*bpp:(y+1)*w*bpp], r)
		}
	}
	return planes
}

// newByteSamplePlanes allocates nComps zeroed []byte planes sized to
// pb's width*height at T's sample depth, for use as either a
// samplePlanesToBytes source or a MapPlanar destination.
func newByteSamplePlanes[T basics.Sample](pb *buffer.PlaneBuffer[T], nComps int) [][]byte {
	w, h, bpp := pb.Width(), pb.Height(), basics.SampleBits[T]()/8
	planes := make([][]byte, nComps)
	for p := range planes {
		planes[p] = make([]byte, w*h*bpp)
	}
	return planes
}

// bytesToSamplePlanes is the inverse of samplePlanesToBytes: it decodes
// planes (as filled in by a CMM.MapPlanar call) back into pb's native,
// interleaved plane storage, one row at a time.
func bytesToSamplePlanes[T basics.Sample](pb *buffer.PlaneBuffer[T], planes [][]byte) {
	w, h, bpp := pb.Width(), pb.Height(), basics.SampleBits[T]()/8
	for p := 0; p < len(planes) && p < pb.NPlanes(); p++ {
		for y := 0; y < h; y++ {
			r := pb.Row(p, y)
			if r == nil {
				continue
			}
			decodeSamplesFrom(r, planes[p][y*w*bpp:(y+1)*w*bpp])
		}
	}
}

// encodeSamplesInto and decodeSamplesFrom mirror
// internal/putimage.samplesToOutputBytes's per-sample T<->byte encoding.
func encodeSamplesInto[T basics.Sample](out []byte, row []T) {
	if basics.SampleBits[T]() == 8 {
		for i, v := range row {
			out[i] = byte(v)
		}
		return
	}
	for i, v := range row {
		u := uint16(v)
		out[2*i] = byte(u >> 8)
		out[2*i+1] = byte(u)
	}
}

func decodeSamplesFrom[T basics.Sample](row []T, in []byte) {
	if basics.SampleBits[T]() == 8 {
		for i := range row {
			row[i] = T(in[i])
		}
		return
	}
	for i := range row {
		u := uint16(in[2*i])<<8 | uint16(in[2*i+1])
		row[i] = T(u)
	}
}

// snapshotBuffer makes an independent copy of buf's pixel data for use as
// a frozen Backdrop reference (spec.md §4.4 step 9), sharing no storage
// with buf itself.
func snapshotBuffer[T basics.Sample](buf *Buffer[T]) *Buffer[T] {
	if buf.Data == nil {
		return nil
	}
	snap := &Buffer[T]{
		Rect: buf.Rect, NColor: buf.NColor, NSpots: buf.NSpots, NPlanes: buf.NPlanes,
		Deep: buf.Deep, HasShape: buf.HasShape, HasAlphaG: buf.HasAlphaG, HasTags: buf.HasTags,
		Saved: -1, MaskStackTop: -1,
		Dirty: basics.Rect[int]{X1: 1, Y1: 1, X2: 0, Y2: 0},
	}
	w := buf.Rect.X2 - buf.Rect.X1
	h := buf.Rect.Y2 - buf.Rect.Y1
	snap.Data = buffer.NewPlaneBuffer[T](w, h, buf.NPlanes)
	if snap.Data == nil {
		return nil
	}
	for p := 0; p < buf.NPlanes; p++ {
		snap.Data.CopyPlaneFrom(p, buf.Data, p)
	}
	return snap
}

// unitAt reads plane p at local (x,y) and converts it to [0,1].
func unitAt[T basics.Sample](b *Buffer[T], plane, x, y int) float64 {
	if b == nil || b.Data == nil {
		return 0
	}
	row := b.Data.Row(plane, y)
	if row == nil || x < 0 || x >= len(row) {
		return 0
	}
	return color.ToUnit(row[x])
}
