package putimage

import (
	"testing"

	"pdf14/internal/basics"
	"pdf14/internal/color"
	"pdf14/internal/group"
)

func rect(x1, y1, x2, y2 int) basics.Rect[int] {
	return basics.Rect[int]{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func TestSamplesToOutputBytes8Bit(t *testing.T) {
	row := []uint8{0x12, 0x34}
	out := samplesToOutputBytes(row)
	if len(out) != 2 || out[0] != 0x12 || out[1] != 0x34 {
		t.Errorf("8-bit samplesToOutputBytes = %v, want [0x12 0x34]", out)
	}
}

func TestSamplesToOutputBytes16BitBigEndian(t *testing.T) {
	row := []uint16{0x1234}
	out := samplesToOutputBytes(row)
	if len(out) != 2 || out[0] != 0x12 || out[1] != 0x34 {
		t.Errorf("16-bit samplesToOutputBytes = %v, want [0x12 0x34] (big-endian)", out)
	}
}

func TestBlendByteFullAlphaIsSourceVerbatim(t *testing.T) {
	if got := blendByte(200, 255, 255); got != 200 {
		t.Errorf("blendByte at full alpha = %d, want 200 (source unchanged)", got)
	}
}

func TestBlendByteZeroAlphaIsBackground(t *testing.T) {
	if got := blendByte(200, 255, 0); got != 255 {
		t.Errorf("blendByte at zero alpha = %d, want 255 (pure background)", got)
	}
}

func TestAddClampedSaturates(t *testing.T) {
	if got := addClamped(250, 1.0); got != 255 {
		t.Errorf("addClamped(250, 1.0) = %d, want 255 (clamped)", got)
	}
	if got := addClamped(10, -1.0); got != 0 {
		t.Errorf("addClamped(10, -1.0) = %d, want 0 (clamped)", got)
	}
}

func TestCollapseSpotsRowAllZeroSpotIsIdentity(t *testing.T) {
	// C M Y K, spot0, alpha (the trailing plane always present in the
	// real Deliver call site, which collapseSpotsRow's bounds check
	// assumes is there).
	planes := [][]byte{{10}, {20}, {30}, {40}, {0}, {255}}
	equiv := []color.EquivCMYK{{C: 1, M: 1, Y: 1, K: 1}}
	collapseSpotsRow(planes, 4, equiv)
	want := []byte{10, 20, 30, 40}
	for i, v := range want {
		if planes[i][0] != v {
			t.Errorf("plane %d = %d, want %d (spot=0 should be identity)", i, planes[i][0], v)
		}
	}
}

func TestCollapseSpotsRowAddsEquivalentInk(t *testing.T) {
	planes := [][]byte{{0}, {0}, {0}, {0}, {255}, {255}} // full-coverage spot
	equiv := []color.EquivCMYK{{C: 0.5, M: 0, Y: 0, K: 0}}
	collapseSpotsRow(planes, 4, equiv)
	if planes[0][0] == 0 {
		t.Error("full-coverage spot with nonzero C-equivalent should add cyan ink")
	}
	if planes[1][0] != 0 || planes[2][0] != 0 || planes[3][0] != 0 {
		t.Error("channels with zero equivalent weight should be untouched")
	}
}

func newFilledBuffer(t *testing.T, w, h, nColor int, fill uint8) *group.Buffer[uint8] {
	t.Helper()
	buf, err := group.New[uint8](rect(0, 0, w, h), nColor, 0, false, false, false, false)
	if err != nil {
		t.Fatalf("group.New returned error: %v", err)
	}
	row := make([]uint8, buf.NPlanes)
	for i := range row {
		row[i] = fill
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Data.SetPixel(x, y, row)
		}
	}
	buf.ExtendDirty(rect(0, 0, w, h))
	return buf
}

func TestDeliverSkipsEmptyDirtyRect(t *testing.T) {
	buf, err := group.New[uint8](rect(0, 0, 4, 4), 3, 0, false, false, false, false)
	if err != nil {
		t.Fatalf("group.New returned error: %v", err)
	}
	called := false
	rows, err := Deliver[uint8](buf, Target{HasAlpha: true}, func(planes [][]byte, x, y, w int) (int, error) {
		called = true
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if rows != 0 || called {
		t.Error("Deliver should not call the writer when the dirty rect is empty")
	}
}

func TestDeliverWritesEveryRowInDirtyRegion(t *testing.T) {
	buf := newFilledBuffer(t, 3, 2, 3, 128)
	rowsSeen := 0
	rows, err := Deliver[uint8](buf, Target{HasAlpha: true}, func(planes [][]byte, x, y, w int) (int, error) {
		rowsSeen++
		if w != 3 {
			t.Errorf("row width = %d, want 3", w)
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if rows != 2 || rowsSeen != 2 {
		t.Errorf("Deliver delivered %d rows (writer called %d times), want 2", rows, rowsSeen)
	}
}

func TestDeliverUnblendsWhenTargetHasNoAlpha(t *testing.T) {
	// Half-alpha pixel over a filled color plane; with HasAlpha=false the
	// additive-background (opaque white) unblend should pull the color
	// toward white.
	buf, err := group.New[uint8](rect(0, 0, 1, 1), 3, 0, false, false, false, false)
	if err != nil {
		t.Fatalf("group.New returned error: %v", err)
	}
	buf.Data.SetPixel(0, 0, []uint8{0, 0, 0, 128}) // black, half alpha
	buf.ExtendDirty(rect(0, 0, 1, 1))

	var gotPlanes [][]byte
	_, err = Deliver[uint8](buf, Target{HasAlpha: false}, func(planes [][]byte, x, y, w int) (int, error) {
		gotPlanes = planes
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if gotPlanes[0][0] == 0 {
		t.Error("unblending black-over-white at half alpha should lighten the channel, got 0")
	}
}

func TestImageBoundsMatchDirtyRegion(t *testing.T) {
	buf := newFilledBuffer(t, 4, 3, 3, 64)
	img := Image[uint8](buf)
	b := img.Bounds()
	if b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("Bounds() = %v, want 4x3", b)
	}
}

func TestPlanarImageAtReadsColorAndAlpha(t *testing.T) {
	buf, err := group.New[uint8](rect(0, 0, 2, 2), 3, 0, false, false, false, false)
	if err != nil {
		t.Fatalf("group.New returned error: %v", err)
	}
	buf.Data.SetPixel(0, 0, []uint8{255, 0, 0, 255})
	buf.ExtendDirty(rect(0, 0, 2, 2))

	img := Image[uint8](buf)
	c := img.At(0, 0)
	r, g, b, a := c.RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 || a>>8 != 255 {
		t.Errorf("At(0,0) = (%d,%d,%d,%d), want (255,0,0,255)", r>>8, g>>8, b>>8, a>>8)
	}
}
