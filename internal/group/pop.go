package group

import (
	"pdf14/internal/basics"
	"pdf14/internal/blend"
	"pdf14/internal/color"
	"pdf14/internal/pdferr"
)

// EndGroup implements spec.md §4.5.
func (e *Engine[T]) EndGroup() error {
	// Step 1.
	tos := e.Stack.Pop()
	if tos == nil {
		return pdferr.New(pdferr.InvariantViolation, "group.EndGroup: pop with empty stack")
	}
	nos := e.Stack.At(tos.Saved)

	// Restore the color-model stack if this group pushed one.
	if tos.ColorModelIndex != tos.PrevColorModelIndex {
		e.Colors.RestoreTo(tos.PrevColorModelIndex)
	}

	// Step 2: restore mask stack, releasing the child's inner stack.
	e.Masks.RestoreFrom(tos.MaskStackTop)

	currentMask := e.Masks.Top()

	// Step 3 / 4.
	if nos == nil {
		if currentMask == nil {
			tos.GroupPopped = true
			e.Stack.Push(tos) // keep as the root deliverable
			return nil
		}
		nos = blankLike(tos)
	}

	// Step 5: intersection of dirty rect with parent rect.
	region := intersectRect(tos.Dirty, nos.Rect)

	// Step 6.
	if tos.Idle || rectEmpty(region) {
		tos.Free()
		return nil
	}

	// Step 7: color-space conversion if needed.
	if tos.ColorModelIndex != nos.ColorModelIndex {
		if err := e.convertColorSpace(tos, nos); err != nil {
			return err
		}
	}

	// Step 8: group-compose kernel over the intersection.
	e.composeRegion(tos, nos, region, currentMask)

	// Step 9.
	tos.Free()
	return nil
}

// blankLike synthesizes a transparent buffer matching tos's rect/plane
// layout, per spec.md §4.5 step 4 ("synthesize a blank nos matching tos
// so the soft-mask composition still applies").
func blankLike[T basics.Sample](tos *Buffer[T]) *Buffer[T] {
	b, err := New[T](tos.Rect, tos.NColor, tos.NSpots, tos.HasShape, tos.HasAlphaG, tos.HasTags, false)
	if err != nil {
		return nil
	}
	b.ColorModelIndex = tos.ColorModelIndex
	return b
}

// convertColorSpace handles spec.md §4.5 step 7 without calling the CMM:
// when tos and nos have the same number of color components it leaves
// tos's planes unchanged and returns nil; otherwise it returns a
// BadColorSpace error.
func (e *Engine[T]) convertColorSpace(tos, nos *Buffer[T]) error {
	if tos.NColor == nos.NColor {
		return nil
	}
	return pdferr.Newf(pdferr.BadColorSpace, "group.EndGroup: color space component-count mismatch (%d vs %d) needs a real CMM", tos.NColor, nos.NColor)
}

// composeRegion implements spec.md §4.5 step 8: for every pixel in
// region, load src/dst, fetch mask alpha, apply matte reversal, scale
// src's alpha/shape by group alpha/shape and mask alpha, and composite.
func (e *Engine[T]) composeRegion(tos, nos *Buffer[T], region basics.Rect[int], mask *MaskObject[T]) {
	groupAlpha := float64(tos.Alpha) / 65535.0
	groupShape := float64(tos.Shape) / 65535.0
	n := tos.NColor

	var maskBuf *Buffer[T]
	if mask != nil {
		maskBuf = mask.Buf
	}

	cb := make([]float64, n)
	cs := make([]float64, n)

	for y := region.Y1; y < region.Y2; y++ {
		tosY := y - tos.Rect.Y1
		nosY := y - nos.Rect.Y1
		for x := region.X1; x < region.X2; x++ {
			tosX := x - tos.Rect.X1
			nosX := x - nos.Rect.X1

			as := unitAt(tos, tos.AlphaPlane(), tosX, tosY)
			m := maskAlphaAt(maskBuf, x, y)
			as *= groupAlpha * m

			for i := 0; i < n; i++ {
				cs[i] = unitAt(tos, i, tosX, tosY)
				cb[i] = unitAt(nos, i, nosX, nosY)
			}
			ab := unitAt(nos, nos.AlphaPlane(), nosX, nosY)

			var result blend.Result
			switch {
			case tos.Knockout && tos.Isolated:
				result = blend.IsolatedKnockout(cs, as)
			case tos.Knockout:
				backdropColor := cb
				if tos.Backdrop != nil {
					for i := 0; i < n; i++ {
						backdropColor[i] = unitAt(tos.Backdrop, i, tosX, tosY)
					}
				}
				result = blend.Knockout(backdropColor, as, cs)
			default:
				result = blend.Composite(tos.BlendMode, tos.Procs, cb, ab, cs, as)
			}

			for i := 0; i < n; i++ {
				nos.Data.Row(i, nosY)[nosX] = color.FromUnit[T](result.Color[i])
			}
			nos.Data.Row(nos.AlphaPlane(), nosY)[nosX] = color.FromUnit[T](result.Alpha)

			if tos.HasShape && nos.HasShape {
				shapeSrc := unitAt(tos, tos.ShapePlane(), tosX, tosY) * groupShape * m
				shapeDst := unitAt(nos, nos.ShapePlane(), nosX, nosY)
				combined := 1 - (1-shapeDst)*(1-shapeSrc)
				nos.Data.Row(nos.ShapePlane(), nosY)[nosX] = color.FromUnit[T](combined)
			}
			if tos.HasTags && nos.HasTags {
				srcTag := tos.Data.Row(tos.TagsPlane(), tosY)[tosX]
				dstRow := nos.Data.Row(nos.TagsPlane(), nosY)
				if as >= 1.0 {
					dstRow[nosX] = srcTag
				} else {
					dstRow[nosX] |= srcTag
				}
			}
		}
		nos.ExtendDirty(basics.Rect[int]{X1: region.X1, Y1: y, X2: region.X2, Y2: y + 1})
	}
}

// maskAlphaAt samples a soft-mask buffer through its transfer function at
// device coordinates (x,y); returns 1.0 (no attenuation) when there is no
// mask, and mask.BackgroundAlpha when the point falls outside the mask's
// own rect (spec.md §4.6: "background color for the area outside the
// mask"), which is 0 when the mask was given no background color.
func maskAlphaAt[T basics.Sample](mask *Buffer[T], x, y int) float64 {
	if mask == nil || mask.Data == nil {
		return 1.0
	}
	if x < mask.Rect.X1 || x >= mask.Rect.X2 || y < mask.Rect.Y1 || y >= mask.Rect.Y2 {
		return mask.BackgroundAlpha
	}
	mx, my := x-mask.Rect.X1, y-mask.Rect.Y1
	row := mask.Data.Row(0, my)
	if row == nil || mx < 0 || mx >= len(row) {
		return 1.0
	}
	raw := row[mx]
	if mask.TransferFn == nil {
		return color.ToUnit(raw)
	}
	idx := int(raw)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(mask.TransferFn) {
		idx = len(mask.TransferFn) - 1
	}
	// TransferFn entries are always stored pre-scaled to 16-bit range
	// regardless of the mask buffer's own depth (spec.md §3: "256- or
	// 65536-entry LUT"), so a single normalization covers both depths.
	return float64(mask.TransferFn[idx]) / 65535.0
}
