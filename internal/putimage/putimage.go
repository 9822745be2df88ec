// Package putimage implements the put-image root-delivery flow (spec.md
// §4.10, component C10): unblending the root buffer's premultiplied
// alpha against a background color when the device has no alpha channel,
// collapsing spot colorants into CMYK for overprint simulation, and
// delivering the finished raster either as a row callback (matching the
// teacher's callback-oriented APIs) or as a standard image.Image via
// golang.org/x/image/draw, grounded on gogpu-gg's go.mod requiring
// golang.org/x/image (SPEC_FULL.md §2).
package putimage

import (
	stdimage "image"
	stdcolor "image/color"

	"golang.org/x/image/draw"

	"pdf14/internal/basics"
	"pdf14/internal/color"
	"pdf14/internal/group"
)

// Target describes the device color model and delivery mode put-image
// negotiates with, per spec.md §4.10 and §6's target-device collaborator
// interface.
type Target struct {
	HasAlpha bool
	HasTags  bool
	// Subtractive selects the pre-blend background per spec.md §4.10
	// step 3: false gives opaque white (additive), true gives full ink
	// zero (subtractive).
	Subtractive bool
	// EquivCMYK maps each spot channel index (beyond the process
	// colorants) to its precomputed equivalent-CMYK contribution, used
	// by the spot-collapse step (spec.md §4.10 step 4).
	EquivCMYK []color.EquivCMYK
	// SimulateOverprint gates the spot-collapse step.
	SimulateOverprint bool
}

// RowWriter is the row-by-row delivery callback spec.md §6 names
// ("put_image(plane_ptrs[], n_comps, x, y, w, h, raster, alpha_offset,
// tag_offset) -> rows_written"), adapted to Go's slice-of-planes idiom.
type RowWriter func(planes [][]byte, x, y, w int) (rowsWritten int, err error)

// Deliver implements spec.md §4.10 end to end: intersect dirty with rect,
// pre-blend if the target lacks alpha, collapse spots if overprint
// simulation is active, and hand rows to w. Returns the number of rows
// actually delivered.
func Deliver[T basics.Sample](buf *group.Buffer[T], target Target, w RowWriter) (int, error) {
	region := buf.Rect
	region.Clip(buf.Dirty)
	if region.X1 >= region.X2 || region.Y1 >= region.Y2 || buf.Data == nil {
		return 0, nil
	}

	width := region.X2 - region.X1
	rows := 0
	for y := region.Y1; y < region.Y2; y++ {
		ly := y - buf.Rect.Y1
		lx0 := region.X1 - buf.Rect.X1

		planes := make([][]byte, buf.NColor+1)
		for p := 0; p <= buf.NColor; p++ {
			row := buf.Data.Row(p, ly)[lx0 : lx0+width]
			planes[p] = samplesToOutputBytes(row)
		}

		if !target.HasAlpha {
			unblendRow(planes, buf.AlphaPlane(), target)
		}
		if target.SimulateOverprint && len(target.EquivCMYK) > 0 {
			collapseSpotsRow(planes, buf.NColor-len(target.EquivCMYK), target.EquivCMYK)
		}

		n, err := w(planes, region.X1, y, width)
		rows += n
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

// samplesToOutputBytes converts one plane row to its output byte
// encoding: big-endian for 16-bit samples (spec.md §4.10 step 6: "On
// 16-bit paths, bytes are emitted big-endian"), or a direct byte copy for
// 8-bit.
func samplesToOutputBytes[T basics.Sample](row []T) []byte {
	if basics.SampleBits[T]() == 8 {
		out := make([]byte, len(row))
		for i, v := range row {
			out[i] = byte(v)
		}
		return out
	}
	out := make([]byte, len(row)*2)
	for i, v := range row {
		u := uint16(v)
		out[2*i] = byte(u >> 8)
		out[2*i+1] = byte(u)
	}
	return out
}

// unblendRow pre-blends premultiplied color planes against the
// background color a device with no alpha channel needs, per spec.md
// §4.10 step 3. Operates directly on the 8-bit byte encoding for
// simplicity; 16-bit planes are unblended at the same per-byte-pair
// granularity.
func unblendRow(planes [][]byte, alphaPlaneIdx int, target Target) {
	bg := byte(0xFF)
	if target.Subtractive {
		bg = 0x00
	}
	alpha := planes[alphaPlaneIdx]
	for p := 0; p < alphaPlaneIdx; p++ {
		row := planes[p]
		for i := range row {
			a := alpha[i%len(alpha)]
			row[i] = blendByte(row[i], bg, a)
		}
	}
}

func blendByte(src, bg, alpha byte) byte {
	a := int(alpha)
	return byte((int(src)*a + int(bg)*(255-a)) / 255)
}

// collapseSpotsRow implements spec.md §4.10 step 4: collapses spot
// channels (planes beyond spotStart) into the CMYK process planes using
// each spot's precomputed equivalent-CMYK mapping. The all-zero-spot
// identity case (spec.md §8 "Spot collapse" law) falls out naturally
// since a zero spot sample contributes zero to every CMYK plane.
func collapseSpotsRow(planes [][]byte, spotStart int, equiv []color.EquivCMYK) {
	if spotStart < 0 || spotStart+len(equiv) > len(planes)-1 {
		return
	}
	width := len(planes[0])
	for i := 0; i < width; i++ {
		var c, m, y, k float64
		for s, eq := range equiv {
			spotVal := float64(planes[spotStart+s][i]) / 255.0
			c += spotVal * eq.C
			m += spotVal * eq.M
			y += spotVal * eq.Y
			k += spotVal * eq.K
		}
		planes[0][i] = addClamped(planes[0][i], c)
		planes[1][i] = addClamped(planes[1][i], m)
		planes[2][i] = addClamped(planes[2][i], y)
		planes[3][i] = addClamped(planes[3][i], k)
	}
}

func addClamped(base byte, add float64) byte {
	v := float64(base) + add*255.0
	if v > 255 {
		v = 255
	}
	if v < 0 {
		v = 0
	}
	return byte(v)
}

// planarImage adapts a Buffer's color planes to the standard image.Image
// interface (spec.md §2 domain stack: "gives the spot-collapsed,
// color-converted root buffer a standard Go image type third parties can
// consume directly").
type planarImage[T basics.Sample] struct {
	buf    *group.Buffer[T]
	region basics.Rect[int]
}

func (p *planarImage[T]) ColorModel() stdcolor.Model { return stdcolor.RGBAModel }

func (p *planarImage[T]) Bounds() stdimage.Rectangle {
	return stdimage.Rect(0, 0, p.region.X2-p.region.X1, p.region.Y2-p.region.Y1)
}

func (p *planarImage[T]) At(x, y int) stdcolor.Color {
	lx := x + p.region.X1 - p.buf.Rect.X1
	ly := y + p.region.Y1 - p.buf.Rect.Y1
	if p.buf.Data == nil {
		return stdcolor.RGBA{}
	}
	get := func(plane int) uint8 {
		row := p.buf.Data.Row(plane, ly)
		if row == nil || lx < 0 || lx >= len(row) {
			return 0
		}
		return uint8(color.ToUnit(row[lx]) * 255.0)
	}
	r, g, b := get(0), get(0), get(0)
	if p.buf.NColor >= 3 {
		g, b = get(1), get(2)
	}
	a := get(p.buf.AlphaPlane())
	return stdcolor.RGBA{R: r, G: g, B: b, A: a}
}

// Image wraps buf's dirty region as a standard image.Image.
func Image[T basics.Sample](buf *group.Buffer[T]) stdimage.Image {
	region := buf.Rect
	region.Clip(buf.Dirty)
	return &planarImage[T]{buf: buf, region: region}
}

// ResampleTo8Bit uses golang.org/x/image/draw to resample a finished
// image.Image into an *image.RGBA at a (possibly different) target size,
// the one color-depth-reducing resample SPEC_FULL.md §2 names for
// delivering a 16-bit buffer to an 8-bit preview device.
func ResampleTo8Bit(src stdimage.Image, width, height int) *stdimage.RGBA {
	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
