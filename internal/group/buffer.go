// Package group implements the buffer stack, mask stack, and group/mask
// push-pop engines (spec.md §3-4, components C1, C2, C3, C5, C6): the
// heart of the PDF 1.4 transparency model. Buffer is generic over its
// sample depth (uint8 or uint16), monomorphized once per Context rather
// than dispatched per pixel, per spec.md Design Notes §9 ("prefer a
// single implementation generic over u8/u16... dispatch once per
// rectangle").
package group

import (
	"pdf14/internal/basics"
	"pdf14/internal/blend"
	"pdf14/internal/buffer"
	"pdf14/internal/pdferr"
)

// SMaskSubtype names the soft-mask pre-image kind a Buffer represents
// while it's still on the mask construction path (spec.md §3
// "SMask_SubType").
type SMaskSubtype int

const (
	SMaskNone SMaskSubtype = iota
	SMaskAlpha
	SMaskLuminosity
)

// Buffer owns one group's planar pixel storage plus the group metadata
// spec.md §3 attaches to it. NColor/NPlanes/Deep are logical records even
// when Data is nil (an idle buffer) so dirty-rect math and pop bookkeeping
// still work for clipped-empty groups.
type Buffer[T basics.Sample] struct {
	Rect    basics.Rect[int]
	NColor  int
	NSpots  int
	NPlanes int // NColor + alpha + optional shape + optional alpha_g + optional tags
	Deep    int // basics.SampleBits[T]()

	Data *buffer.PlaneBuffer[T] // nil => idle group, all ops no-op

	// Dirty starts inverted (empty): X1>X2 or Y1>Y2 signals "no pixel
	// written", matching spec.md §3's "initialized inverted (empty)".
	Dirty basics.Rect[int]

	Isolated bool
	Knockout bool

	// Alpha, Shape, Opacity are 16-bit unsigned fractions (0..65535)
	// controlling the group's contribution at pop time (spec.md §3).
	Alpha, Shape, Opacity uint16

	BlendMode blend.Mode
	Procs     blend.Procs // polymorphic non-separable blend procs, chosen at push

	// Backdrop is the frozen copy captured at push time for a
	// non-isolated knockout group (spec.md §3/§4.4 step 9); nil
	// otherwise, or when the parent had no pixels.
	Backdrop *Buffer[T]

	Saved int // arena index of the parent buffer, -1 if root

	// MaskStackTop is the mask-stack arena index captured at push
	// (spec.md §4.4 step 4: "capture the current mask stack... set
	// context's mask stack to empty").
	MaskStackTop int

	// ColorModelIndex is the gstate color-model stack index active for
	// this group (spec.md §3 "group_color_info"); PrevColorModelIndex is
	// the index that was current before this group was pushed, so
	// EndGroup can restore it exactly (spec.md §4.8: "On pop, restore
	// the saved record").
	ColorModelIndex     int
	PrevColorModelIndex int

	// Matte holds the pre-multiplication color for a soft-mask image
	// (spec.md glossary "Matte"); nil when not a matte mask.
	Matte         []T
	MatteNumComps int

	// TransferFn is the 256- or 65536-entry LUT mapping a pre-luminosity
	// or pre-alpha sample to the final mask alpha (spec.md §3
	// "transfer_fn"); nil means identity.
	TransferFn []uint16

	SMaskSubType SMaskSubtype

	// BackgroundAlpha is the mask's value for the area outside
	// its own rect (spec.md §4.6); only meaningful when SMaskSubType !=
	// SMaskNone. Stored pre-converted to luminosity/alpha as a single
	// [0,1] fraction by BeginMask.
	BackgroundAlpha float64

	// Idle mirrors spec.md §3: "If data == null then the group is idle
	// (clipped empty) and all ops on it are no-ops."
	Idle bool

	// GroupPopped marks the root deliverable once its matching pop finds
	// no parent and no active mask (spec.md §4.5 step 3).
	GroupPopped bool

	// HasShape/HasAlphaG/HasTags record which optional planes this
	// buffer carries, driving plane indexing (color0..colorN-1, alpha,
	// [shape], [alpha_g], [tags]) per spec.md §3's plane-order invariant.
	HasShape, HasAlphaG, HasTags bool
}

// Plane index helpers, honoring spec.md §3's fixed plane order:
// color0..colorN-1, alpha, [shape], [alpha_g], [tags].

func (b *Buffer[T]) AlphaPlane() int { return b.NColor }

func (b *Buffer[T]) ShapePlane() int {
	if !b.HasShape {
		return -1
	}
	return b.NColor + 1
}

func (b *Buffer[T]) AlphaGPlane() int {
	if !b.HasAlphaG {
		return -1
	}
	idx := b.NColor + 1
	if b.HasShape {
		idx++
	}
	return idx
}

func (b *Buffer[T]) TagsPlane() int {
	if !b.HasTags {
		return -1
	}
	idx := b.NColor + 1
	if b.HasShape {
		idx++
	}
	if b.HasAlphaG {
		idx++
	}
	return idx
}

// UntouchedTag is the sentinel spec.md §9 ("Tag plane sentinel") says
// fills the tags plane initially, distinct from every real graphics-type
// tag put-image might later OR into it.
const UntouchedTag = 0xFF

// planeCount computes NPlanes from NColor/NSpots and the optional-plane
// flags, per spec.md §4.1 step 2 ("n_planes = n_color + alpha +
// optional(shape, alpha_g, tags)").
func planeCount(nColor int, hasShape, hasAlphaG, hasTags bool) int {
	n := nColor + 1
	if hasShape {
		n++
	}
	if hasAlphaG {
		n++
	}
	if hasTags {
		n++
	}
	return n
}

// New allocates a zero-initialized Buffer, or a small idle buffer with
// Data == nil, per spec.md §4.1's contract. Returns a *pdferr.Error of
// kind OutOfMemory if the requested size overflows.
func New[T basics.Sample](rect basics.Rect[int], nColor, nSpots int, hasShape, hasAlphaG, hasTags, idle bool) (*Buffer[T], error) {
	nPlanes := planeCount(nColor, hasShape, hasAlphaG, hasTags)
	b := &Buffer[T]{
		Rect:         rect,
		NColor:       nColor,
		NSpots:       nSpots,
		NPlanes:      nPlanes,
		Deep:         basics.SampleBits[T](),
		HasShape:     hasShape,
		HasAlphaG:    hasAlphaG,
		HasTags:      hasTags,
		Idle:         idle,
		Saved:        -1,
		MaskStackTop: -1,
		// Dirty starts inverted/empty: X1>X2.
		Dirty: basics.Rect[int]{X1: 1, Y1: 1, X2: 0, Y2: 0},
	}
	if idle {
		return b, nil
	}
	w := rect.X2 - rect.X1
	h := rect.Y2 - rect.Y1
	if w <= 0 || h <= 0 {
		b.Idle = true
		return b, nil
	}
	pb := buffer.NewPlaneBuffer[T](w, h, nPlanes)
	if pb == nil {
		return nil, pdferr.New(pdferr.OutOfMemory, "group.New: buffer allocation overflow")
	}
	b.Data = pb
	if hasAlphaG {
		var zero T
		pb.ClearPlane(b.AlphaGPlane(), zero)
	}
	if hasTags {
		pb.ClearPlane(b.TagsPlane(), T(UntouchedTag))
	}
	return b, nil
}

// ExtendDirty grows b.Dirty to enclose r (clipped to b.Rect), per spec.md
// §4.2 step 2.
func (b *Buffer[T]) ExtendDirty(r basics.Rect[int]) {
	r.Clip(b.Rect)
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return
	}
	if b.Dirty.X1 > b.Dirty.X2 || b.Dirty.Y1 > b.Dirty.Y2 {
		b.Dirty = r
		return
	}
	if r.X1 < b.Dirty.X1 {
		b.Dirty.X1 = r.X1
	}
	if r.Y1 < b.Dirty.Y1 {
		b.Dirty.Y1 = r.Y1
	}
	if r.X2 > b.Dirty.X2 {
		b.Dirty.X2 = r.X2
	}
	if r.Y2 > b.Dirty.Y2 {
		b.Dirty.Y2 = r.Y2
	}
}

// DirtyEmpty reports whether no pixel has been written, per spec.md §3's
// "empty dirty means no pixel written" invariant.
func (b *Buffer[T]) DirtyEmpty() bool {
	return b.Dirty.X1 >= b.Dirty.X2 || b.Dirty.Y1 >= b.Dirty.Y2
}

// Free releases a buffer's owned resources (spec.md §4.1: "releases data,
// backdrop, transfer_fn, matte, mask_stack (decrementing ref), color-model
// snapshot"). Mask-stack ref-decrementing and color-model restoration are
// the caller's job (Engine.EndGroup) since they need the shared
// MaskStack/gstate.Stack; Free here only drops this buffer's own direct
// references so the GC can reclaim them.
func (b *Buffer[T]) Free() {
	b.Data = nil
	b.Backdrop = nil
	b.TransferFn = nil
	b.Matte = nil
}
