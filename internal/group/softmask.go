package group

import (
	"pdf14/internal/basics"
	"pdf14/internal/color"
	"pdf14/internal/icc"
	"pdf14/internal/pdferr"
)

// MaskParams is the input to BeginMask, mirroring spec.md §6's
// begin_mask(rect, subtype, background_color[], matte[], gray_background,
// transfer_fn_lut, function_is_identity, replacing, cs_info).
type MaskParams struct {
	Rect            basics.Rect[int]
	SubType         SMaskSubtype
	BackgroundColor []T16
	Matte           []T16
	GrayBackground  bool
	TransferFn      []uint16 // 256 or 65536 entries; nil/empty means identity
	FunctionIdentity bool
	Replacing       bool
	CSInfo          ColorSpaceInfo
}

// T16 is a depth-independent 16-bit-normalized sample used for mask
// parameters that are specified independent of the Context's own sample
// depth (background/matte colors are always passed at full precision and
// rescaled on write).
type T16 = uint16

// BeginMask implements spec.md §4.6: creates a Buffer flagged as a mask
// source with the requested subtype, background color, and transfer
// function, capturing the current mask stack so it can be restored on
// pop.
func (e *Engine[T]) BeginMask(p MaskParams) (*Buffer[T], error) {
	rect := intersectRect(p.Rect, e.PageRect)
	idle := rectEmpty(rect)
	buf, err := New[T](rect, p.CSInfo.NColor, p.CSInfo.NSpots, false, false, false, idle)
	if err != nil {
		return nil, err
	}
	buf.SMaskSubType = p.SubType
	buf.Procs = p.CSInfo.Procs
	if !p.FunctionIdentity {
		buf.TransferFn = p.TransferFn
	}
	buf.BackgroundAlpha = backgroundAlphaOf(p)
	if len(p.Matte) > 0 {
		buf.Matte = make([]T, len(p.Matte))
		for i, v := range p.Matte {
			buf.Matte[i] = color.FromUnit[T](float64(v) / 65535.0)
		}
		buf.MatteNumComps = len(p.Matte)
	}
	buf.MaskStackTop = e.Masks.SaveAndClear()
	e.Stack.Push(buf)
	return buf, nil
}

// backgroundAlphaOf computes the mask's effective background fraction for
// the area outside its rect, per spec.md §4.6 and the BC (backdrop color)
// handling SPEC_FULL.md §3 recovers from ztrans.c. With no explicit
// background color the area outside the mask contributes no coverage,
// matching Scenario 5's "outside the mask rect the background α is 0".
func backgroundAlphaOf(p MaskParams) float64 {
	if len(p.BackgroundColor) == 0 {
		return 0
	}
	var sum float64
	for _, v := range p.BackgroundColor {
		sum += float64(v) / 65535.0
	}
	return sum / float64(len(p.BackgroundColor))
}

// EndMask implements spec.md §4.7.
func (e *Engine[T]) EndMask() (*MaskObject[T], error) {
	tos := e.Stack.Pop()
	if tos == nil {
		return nil, pdferr.New(pdferr.InvariantViolation, "group.EndMask: pop with empty stack")
	}
	e.Masks.RestoreFrom(tos.MaskStackTop)

	// Step 2: discard idle masks (no buffer was ever allocated).
	if tos.Data == nil {
		return nil, nil
	}

	switch tos.SMaskSubType {
	case SMaskAlpha:
		// Step 3: extract the alpha plane directly into a fresh
		// single-plane buffer.
		gray, err := New[T](tos.Rect, 1, 0, false, false, false, false)
		if err != nil {
			return nil, err
		}
		gray.Data.CopyPlaneFrom(0, tos.Data, tos.AlphaPlane())
		gray.TransferFn = tos.TransferFn
		gray.BackgroundAlpha = tos.BackgroundAlpha
		obj := newMaskObject(gray)
		e.Masks.Push(obj)
		return obj, nil

	case SMaskLuminosity:
		gray, err := e.luminosityMask(tos)
		if err != nil {
			return nil, err
		}
		gray.BackgroundAlpha = tos.BackgroundAlpha
		obj := newMaskObject(gray)
		e.Masks.Push(obj)
		return obj, nil

	default:
		return nil, pdferr.New(pdferr.InvariantViolation, "group.EndMask: buffer has no SMask subtype")
	}
}

// luminosityMask implements spec.md §4.7 step 4: if the group's color
// space is already gray, copy the gray plane directly; otherwise run the
// CMM (perceptual intent, black-point compensation off) and then fill the
// gray plane with the equal-weighted average of the color channels.
func (e *Engine[T]) luminosityMask(tos *Buffer[T]) (*Buffer[T], error) {
	gray, err := New[T](tos.Rect, 1, 0, false, false, false, false)
	if err != nil {
		return nil, err
	}
	gray.TransferFn = tos.TransferFn

	if tos.NColor == 1 {
		gray.Data.CopyPlaneFrom(0, tos.Data, 0)
		return gray, nil
	}

	link, err := e.CMM.NewLink(nil, nil, icc.Perceptual, false)
	if err != nil {
		return nil, pdferr.Wrap(pdferr.CMMFailure, err, "group.luminosityMask: NewLink")
	}
	defer link.Release()

	w := tos.Rect.X2 - tos.Rect.X1
	h := tos.Rect.Y2 - tos.Rect.Y1
	srcDesc := icc.BufferDesc{Width: w, Height: h, NComps: tos.NColor, BitsPerComp: tos.Deep}
	dstDesc := icc.BufferDesc{Width: w, Height: h, NComps: 1, BitsPerComp: tos.Deep}
	srcPlanes := samplePlanesToBytes(tos.Data, tos.NColor)
	dstPlanes := samplePlanesToBytes(gray.Data, 1)
	if err := e.CMM.MapPlanar(link, srcDesc, dstDesc, srcPlanes, dstPlanes, false); err != nil {
		return nil, pdferr.Wrap(pdferr.CMMFailure, err, "group.luminosityMask: MapPlanar")
	}
	// Whatever CMM is wired in, the gray plane MapPlanar wrote is
	// overwritten here with an equal-weighted channel average.
	for y := 0; y < h; y++ {
		dstRow := gray.Data.Row(0, y)
		for x := 0; x < w; x++ {
			var sum float64
			for c := 0; c < tos.NColor; c++ {
				sum += unitAt(tos, c, x, y)
			}
			dstRow[x] = color.FromUnit[T](sum / float64(tos.NColor))
		}
	}
	return gray, nil
}

