package group

import (
	"testing"

	"pdf14/internal/basics"
)

func rect(x1, y1, x2, y2 int) basics.Rect[int] {
	return basics.Rect[int]{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func TestNewBufferPlaneOrder(t *testing.T) {
	buf, err := New[uint8](rect(0, 0, 4, 4), 3, 0, true, true, true, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got := buf.AlphaPlane(); got != 3 {
		t.Errorf("AlphaPlane() = %d, want 3", got)
	}
	if got := buf.ShapePlane(); got != 4 {
		t.Errorf("ShapePlane() = %d, want 4", got)
	}
	if got := buf.AlphaGPlane(); got != 5 {
		t.Errorf("AlphaGPlane() = %d, want 5", got)
	}
	if got := buf.TagsPlane(); got != 6 {
		t.Errorf("TagsPlane() = %d, want 6", got)
	}
	if buf.NPlanes != 7 {
		t.Errorf("NPlanes = %d, want 7", buf.NPlanes)
	}
}

func TestNewBufferOptionalPlanesAbsent(t *testing.T) {
	buf, err := New[uint8](rect(0, 0, 2, 2), 1, 0, false, false, false, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got := buf.ShapePlane(); got != -1 {
		t.Errorf("ShapePlane() = %d, want -1", got)
	}
	if got := buf.AlphaGPlane(); got != -1 {
		t.Errorf("AlphaGPlane() = %d, want -1", got)
	}
	if got := buf.TagsPlane(); got != -1 {
		t.Errorf("TagsPlane() = %d, want -1", got)
	}
}

func TestNewBufferTagsPlaneSeededWithSentinel(t *testing.T) {
	buf, err := New[uint8](rect(0, 0, 2, 2), 1, 0, false, false, true, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	row := buf.Data.Row(buf.TagsPlane(), 0)
	for x, v := range row {
		if v != UntouchedTag {
			t.Errorf("tags plane [%d] = %d, want UntouchedTag", x, v)
		}
	}
}

func TestNewBufferIdleHasNilData(t *testing.T) {
	buf, err := New[uint8](rect(0, 0, 4, 4), 1, 0, false, false, false, true)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !buf.Idle {
		t.Error("Idle should be true")
	}
	if buf.Data != nil {
		t.Error("idle buffer should have nil Data")
	}
}

func TestNewBufferEmptyRectBecomesIdle(t *testing.T) {
	buf, err := New[uint8](rect(5, 5, 5, 5), 1, 0, false, false, false, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !buf.Idle {
		t.Error("zero-area rect should force Idle = true")
	}
}

func TestBufferDirtyStartsEmpty(t *testing.T) {
	buf, err := New[uint8](rect(0, 0, 4, 4), 1, 0, false, false, false, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !buf.DirtyEmpty() {
		t.Error("freshly allocated buffer should have empty Dirty rect")
	}
}

func TestExtendDirtyGrowsAndClips(t *testing.T) {
	buf, err := New[uint8](rect(0, 0, 10, 10), 1, 0, false, false, false, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	buf.ExtendDirty(rect(2, 2, 5, 5))
	if buf.DirtyEmpty() {
		t.Fatal("Dirty should no longer be empty")
	}
	buf.ExtendDirty(rect(-5, -5, 3, 3))
	// Must clip to buf.Rect (0,0)-(10,10) and grow to enclose both rects.
	if buf.Dirty.X1 != 0 || buf.Dirty.Y1 != 0 || buf.Dirty.X2 != 5 || buf.Dirty.Y2 != 5 {
		t.Errorf("Dirty = %+v, want {0 0 5 5}", buf.Dirty)
	}
}

func TestBufferFreeDropsReferences(t *testing.T) {
	buf, err := New[uint8](rect(0, 0, 2, 2), 1, 0, false, false, false, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	buf.Backdrop = &Buffer[uint8]{}
	buf.TransferFn = []uint16{1, 2, 3}
	buf.Matte = []uint8{1, 2}
	buf.Free()
	if buf.Data != nil || buf.Backdrop != nil || buf.TransferFn != nil || buf.Matte != nil {
		t.Error("Free should nil out all owned references")
	}
}
