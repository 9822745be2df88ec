// Package pdf14 is the root, device-facing API of the PDF 1.4
// transparency compositor: Context wires together the group push/pop
// engine (internal/group), the mark engine (internal/mark), the
// color-model stack (internal/gstate), and the color-buffer transform
// (internal/icc) behind the imperative interface spec.md §6 names
// (push_compositor/pop_compositor/abort_compositor, begin_group/end_group,
// begin_mask/end_mask, push_trans_state/pop_trans_state,
// set_blend_params, and the mark commands).
package pdf14

import (
	"log"

	"pdf14/internal/basics"
	"pdf14/internal/blend"
	"pdf14/internal/color"
	"pdf14/internal/gstate"
	"pdf14/internal/icc"
	"pdf14/internal/group"
	"pdf14/internal/mark"
	"pdf14/internal/pdferr"
	"pdf14/internal/putimage"
)

// Rect is the device-coordinate rectangle type every public operation
// takes, re-exported from internal/basics so callers don't need to import
// an internal package for it.
type Rect = basics.Rect[int]

// BlendMode re-exports the sixteen named blend modes plus the two
// overprint variants.
type BlendMode = blend.Mode

const (
	Normal              = blend.Normal
	Multiply            = blend.Multiply
	Screen              = blend.Screen
	Darken              = blend.Darken
	Lighten             = blend.Lighten
	ColorDodge          = blend.ColorDodge
	ColorBurn           = blend.ColorBurn
	HardLight           = blend.HardLight
	SoftLight           = blend.SoftLight
	Overlay             = blend.Overlay
	Difference          = blend.Difference
	Exclusion           = blend.Exclusion
	Hue                 = blend.Hue
	Saturation          = blend.Saturation
	Color               = blend.Color
	Luminosity          = blend.Luminosity
	Compatible          = blend.Compatible
	CompatibleOverprint = blend.CompatibleOverprint
)

// SMaskSubtype re-exports the soft-mask subtype enum.
type SMaskSubtype = group.SMaskSubtype

const (
	SMaskNone       = group.SMaskNone
	SMaskAlpha      = group.SMaskAlpha
	SMaskLuminosity = group.SMaskLuminosity
)

// ColorSpaceInfo re-exports the group color-space descriptor, extended
// with SpotNames per SPEC_FULL.md §3.
type ColorSpaceInfo = group.ColorSpaceInfo

// Target and RowWriter re-export the put-image delivery types PopCompositor
// uses, so callers don't need to import an internal package.
type Target = putimage.Target
type RowWriter = putimage.RowWriter

// BlendState is the "current graphics state" set_blend_params mutates
// (spec.md §6): blend_mode, opacity, shape, alphaisshape, overprint,
// overprint_mode, fill_alpha, stroke_alpha. Mark operations combine this
// with their own per-call color and coverage to build a mark.Source.
type BlendState struct {
	BlendMode      BlendMode
	Opacity        uint16 // 0..65535
	Shape          uint16 // 0..65535
	AlphaIsShape   bool
	Overprint      bool
	OverprintMode  int
	FillAlpha      uint16
	StrokeAlpha    uint16
	OverprintMask  []bool
}

// BlendParamsUpdate carries only the fields the caller wants to change;
// nil/zero-value fields are left as-is, matching spec.md §6's
// "set_blend_params({blend_mode?, opacity?, ...})" optional-field shape.
type BlendParamsUpdate struct {
	BlendMode     *BlendMode
	Opacity       *uint16
	Shape         *uint16
	AlphaIsShape  *bool
	Overprint     *bool
	OverprintMode *int
	FillAlpha     *uint16
	StrokeAlpha   *uint16
	OverprintMask []bool
}

// Context is the top-level compositor context (spec.md §3 "Top-level
// context"), generic over its sample depth T exactly once per instance —
// spec.md Design Notes §9's "dispatch once per rectangle, not per pixel"
// taken to its logical conclusion: the depth is fixed at construction,
// never branched on per pixel or even per call.
type Context[T basics.Sample] struct {
	groups *group.Engine[T]
	marks  *mark.Engine[T]

	pageRect Rect
	additive bool
	nChan    int
	numSpots int
	deep     int
	hasTags  bool

	simulateOverprint bool
	equivCMYK         []color.EquivCMYK

	smaskDepth int
	smaskBlend bool

	// transStateSaves is the stack push_trans_state/pop_trans_state
	// maintains for nested graphics-state scopes over the mask stack
	// only (spec.md §6).
	transStateSaves []int

	blend BlendState

	aborted   bool
	delivered bool
}

// RootParams is the input to PushCompositor, mirroring spec.md §6's
// push_compositor(page_rect, n_process_colors, num_spots, deep, has_tags,
// simulate_overprint).
type RootParams struct {
	PageRect          Rect
	NProcessColors    int
	NumSpots          int
	HasTags           bool
	SimulateOverprint bool
	Subtractive       bool
	EquivCMYK         []color.EquivCMYK
	CMM               icc.CMM
}

// PushCompositor implements spec.md §6's push_compositor: creates the
// root context. T fixes the sample depth (uint8 or uint16) for the whole
// context's lifetime.
func PushCompositor[T basics.Sample](p RootParams) *Context[T] {
	cmm := p.CMM
	if cmm == nil {
		cmm = icc.NewFallback()
	}
	var procs blend.Procs
	switch {
	case p.NProcessColors == 1:
		procs = blend.NewGrayProcs()
	case p.NProcessColors == 3:
		procs = blend.NewRGBProcs()
	case p.NProcessColors == 4:
		procs = blend.NewCMYKProcs()
	default:
		procs = blend.NewGenericProcs(p.NProcessColors, p.Subtractive)
	}
	root := gstate.Record{
		NComponents: p.NProcessColors,
		Subtractive: p.Subtractive,
		BitWidth:    basics.SampleBits[T](),
		Procs:       procs,
		HasTagPlane: p.HasTags,
	}
	ge := group.NewEngine[T](p.PageRect, root, cmm)
	return &Context[T]{
		groups:            ge,
		marks:             mark.NewEngine(ge),
		pageRect:          p.PageRect,
		additive:          !p.Subtractive,
		nChan:             p.NProcessColors,
		numSpots:          p.NumSpots,
		deep:              basics.SampleBits[T](),
		hasTags:           p.HasTags,
		simulateOverprint: p.SimulateOverprint,
		equivCMYK:         p.EquivCMYK,
		blend: BlendState{
			BlendMode: Normal,
			Opacity:   65535,
			Shape:     65535,
		},
		transStateSaves: nil,
	}
}

// PopCompositor implements spec.md §6's pop_compositor: triggers
// put-image delivery of the root buffer and releases it. w receives the
// finished rows; the number of rows delivered is returned.
func (c *Context[T]) PopCompositor(target putimage.Target, w putimage.RowWriter) (rowsWritten int, err error) {
	if c.aborted {
		return 0, pdferr.New(pdferr.InvariantViolation, "pdf14.PopCompositor: context already aborted")
	}
	// Pop every remaining group, including the implicit root the first
	// mark/BeginGroup call created (spec.md §3: "destroyed by the
	// device-pop command"), down to the root's own EndGroup, whose
	// nos==nil branch marks it GroupPopped and keeps it as the
	// deliverable (spec.md §4.5 step 3).
	for c.groups.Stack.Top() != nil && !c.groups.Stack.Top().GroupPopped {
		if err := c.groups.EndGroup(); err != nil {
			return 0, err
		}
	}
	root := c.rootBuffer()
	if root == nil {
		return 0, nil
	}
	target.SimulateOverprint = target.SimulateOverprint || c.simulateOverprint
	if len(target.EquivCMYK) == 0 {
		target.EquivCMYK = c.equivCMYK
	}
	c.delivered = true
	n, err := putimage.Deliver(root, target, w)
	root.Free()
	return n, err
}

// rootBuffer walks the buffer stack down to the single buffer marked
// GroupPopped == true (the root deliverable, spec.md §4.5 step 3).
func (c *Context[T]) rootBuffer() *group.Buffer[T] {
	for i := c.groups.Stack.TopIndex(); i >= 0; i = c.groups.Stack.At(i).Saved {
		b := c.groups.Stack.At(i)
		if b.GroupPopped {
			return b
		}
	}
	return nil
}

// AbortCompositor implements spec.md §6's abort_compositor / §7's abort
// walk: restores the color-model stack, walks the buffer stack top to
// bottom freeing each buffer, and releases the context.
func (c *Context[T]) AbortCompositor() {
	if c.aborted {
		return
	}
	c.aborted = true
	for {
		b := c.groups.Stack.Pop()
		if b == nil {
			break
		}
		if b.ColorModelIndex != b.PrevColorModelIndex {
			c.groups.Colors.RestoreTo(b.PrevColorModelIndex)
		}
		c.groups.Masks.RestoreFrom(b.MaskStackTop)
		b.Free()
	}
}

// BeginGroup implements spec.md §6's begin_group.
func (c *Context[T]) BeginGroup(rect Rect, isolated, knockout bool, alpha, shape, opacity uint16, mode BlendMode, idle, hasBackdropCSChange bool, cs ColorSpaceInfo) error {
	_, err := c.groups.BeginGroup(group.GroupParams{
		Rect: rect, Isolated: isolated, Knockout: knockout,
		Alpha: alpha, Shape: shape, Opacity: opacity,
		BlendMode: mode, Idle: idle, HasBackdropCSChange: hasBackdropCSChange,
		CSInfo: cs,
	})
	return err
}

// EndGroup implements spec.md §6's end_group.
func (c *Context[T]) EndGroup() error {
	return c.groups.EndGroup()
}

// BeginMask implements spec.md §6's begin_mask.
func (c *Context[T]) BeginMask(p group.MaskParams) error {
	_, err := c.groups.BeginMask(p)
	return err
}

// EndMask implements spec.md §6's end_mask.
func (c *Context[T]) EndMask() error {
	_, err := c.groups.EndMask()
	return err
}

// PushTransState implements spec.md §6's push_trans_state: a nested
// graphics-state scope for the mask stack only.
func (c *Context[T]) PushTransState() {
	c.transStateSaves = append(c.transStateSaves, c.groups.Masks.TopIndex())
}

// PopTransState implements spec.md §6's pop_trans_state, restoring the
// mask stack to whatever push_trans_state last captured. Logs (rather
// than erroring) an unbalanced pop, matching spec.md §9's text-knockout
// mismatch handling register: "emits a diagnostic and silently pops".
func (c *Context[T]) PopTransState() {
	n := len(c.transStateSaves)
	if n == 0 {
		log.Printf("pdf14: pop_trans_state with no matching push_trans_state")
		return
	}
	saved := c.transStateSaves[n-1]
	c.transStateSaves = c.transStateSaves[:n-1]
	c.groups.Masks.RestoreFrom(saved)
}

// SetBlendParams implements spec.md §6's set_blend_params, applying only
// the fields present in u.
func (c *Context[T]) SetBlendParams(u BlendParamsUpdate) {
	if u.BlendMode != nil {
		c.blend.BlendMode = *u.BlendMode
	}
	if u.Opacity != nil {
		c.blend.Opacity = *u.Opacity
	}
	if u.Shape != nil {
		c.blend.Shape = *u.Shape
	}
	if u.AlphaIsShape != nil {
		c.blend.AlphaIsShape = *u.AlphaIsShape
	}
	if u.Overprint != nil {
		c.blend.Overprint = *u.Overprint
	}
	if u.OverprintMode != nil {
		c.blend.OverprintMode = *u.OverprintMode
	}
	if u.FillAlpha != nil {
		c.blend.FillAlpha = *u.FillAlpha
	}
	if u.StrokeAlpha != nil {
		c.blend.StrokeAlpha = *u.StrokeAlpha
	}
	if u.OverprintMask != nil {
		c.blend.OverprintMask = u.OverprintMask
	}
}

// currentAlpha combines opacity and shape per spec.md §4.2: "current
// alpha (= opacity × shape)". AlphaIsShape, stored by SetBlendParams, is
// not consulted here or by any mark operation.
func (c *Context[T]) currentAlpha() float64 {
	return float64(c.blend.Opacity) / 65535.0 * float64(c.blend.Shape) / 65535.0
}

func (c *Context[T]) topBuffer() *group.Buffer[T] {
	return c.groups.Stack.Top()
}

// ensureRoot lazily creates the root buffer on first mark or first group
// push (spec.md §3: "The root buffer is created lazily on first mark or
// first group push").
func (c *Context[T]) ensureRoot() error {
	if c.groups.Stack.Top() != nil {
		return nil
	}
	_, err := c.groups.BeginGroup(group.GroupParams{
		Rect:     c.pageRect,
		Isolated: true,
		CSInfo:   ColorSpaceInfo{NColor: c.nChan, NSpots: c.numSpots, Subtractive: !c.additive, Procs: c.groups.Colors.Current().Procs},
	})
	return err
}

// FillRect implements spec.md §6's fill_rect(x,y,w,h,encoded_color).
func (c *Context[T]) FillRect(x, y, w, h int, encodedColor []float64) error {
	if err := c.ensureRoot(); err != nil {
		return err
	}
	return c.marks.FillRect(x, y, w, h, mark.Source{Color: encodedColor, Alpha: c.currentAlpha()}, c.blend.OverprintMask)
}

// FillRectDevN implements spec.md §6's fill_rect_devn(x,y,w,h,devn_color).
func (c *Context[T]) FillRectDevN(x, y, w, h int, devnColor []float64) error {
	if err := c.ensureRoot(); err != nil {
		return err
	}
	return c.marks.FillRectDevN(x, y, w, h, mark.Source{Color: devnColor, Alpha: c.currentAlpha()})
}

// FillRectHL implements spec.md §6's fill_rect_hl(rect, devn_color): the
// fixed-point-rect, high-level-color variant of FillRectDevN. The core
// treats device coordinates as already-resolved integers (spec.md §1:
// rasterization below the pixel is out of scope), so this rounds the
// fixed-point rect to the nearest integer device rect and delegates.
func (c *Context[T]) FillRectHL(rectX1, rectY1, rectX2, rectY2 float64, devnColor []float64) error {
	x := int(rectX1 + 0.5)
	y := int(rectY1 + 0.5)
	w := int(rectX2+0.5) - x
	h := int(rectY2+0.5) - y
	return c.FillRectDevN(x, y, w, h, devnColor)
}

// CopyAlpha implements spec.md §6's copy_alpha(bitmap, src_rect, dst_xy,
// color, bits_per_sample). bitsPerSample must be 2, 4, or 8 (spec.md §7
// RangeError); coverage is pre-expanded to one byte per pixel by the
// caller (the rasterizer's concern per spec.md §1).
func (c *Context[T]) CopyAlpha(coverage []byte, x, y, w, h, bitsPerSample int, encodedColor []float64) error {
	if bitsPerSample != 2 && bitsPerSample != 4 && bitsPerSample != 8 {
		return pdferr.Newf(pdferr.RangeError, "pdf14.CopyAlpha: bits_per_sample %d not in {2,4,8}", bitsPerSample)
	}
	if err := c.ensureRoot(); err != nil {
		return err
	}
	return c.marks.CopyAlpha(coverage, x, y, w, h, mark.Source{Color: encodedColor, Alpha: c.currentAlpha()})
}

// StripTileDevN implements spec.md §6's strip_tile_devn(tile, color0,
// color1, dst_rect, phase).
func (c *Context[T]) StripTileDevN(tileWidth int, color0, color1 []float64, x, y, w, h, phase int) error {
	if err := c.ensureRoot(); err != nil {
		return err
	}
	alpha := c.currentAlpha()
	return c.marks.StripTile(tileWidth, mark.Source{Color: color0, Alpha: alpha}, mark.Source{Color: color1, Alpha: alpha}, x, y, w, h, phase)
}
