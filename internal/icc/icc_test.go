package icc

import (
	"bytes"
	"testing"

	"pdf14/internal/gstate"
)

func TestFallbackProfileHashEq(t *testing.T) {
	f := NewFallback()
	if !f.ProfileHashEq(nil, nil) {
		t.Error("ProfileHashEq(nil, nil) should be true")
	}
	a := &gstate.ICCProfile{Hash: "abc"}
	if f.ProfileHashEq(a, nil) {
		t.Error("ProfileHashEq(a, nil) should be false")
	}
	b := &gstate.ICCProfile{Hash: "abc"}
	if !f.ProfileHashEq(a, b) {
		t.Error("ProfileHashEq with equal hashes should be true")
	}
	c := &gstate.ICCProfile{Hash: "xyz"}
	if f.ProfileHashEq(a, c) {
		t.Error("ProfileHashEq with differing hashes should be false")
	}
}

func TestFallbackNewLinkNeverErrors(t *testing.T) {
	f := NewFallback()
	link, err := f.NewLink(nil, nil, Perceptual, false)
	if err != nil {
		t.Fatalf("NewLink returned error: %v", err)
	}
	link.Release() // must not panic
}

func TestMapPlanarCopiesMatchingPlanes(t *testing.T) {
	f := NewFallback()
	src := [][]byte{{1, 2, 3}, {4, 5, 6}}
	dst := [][]byte{make([]byte, 3), make([]byte, 3)}
	desc := BufferDesc{Width: 3, Height: 1, NComps: 2, BitsPerComp: 8}

	if err := f.MapPlanar(nil, desc, desc, src, dst, false); err != nil {
		t.Fatalf("MapPlanar returned error: %v", err)
	}
	for p := range src {
		if !bytes.Equal(dst[p], src[p]) {
			t.Errorf("plane %d = %v, want %v", p, dst[p], src[p])
		}
	}
}

func TestMapPlanarZeroFillsExtraDestPlanes(t *testing.T) {
	f := NewFallback()
	src := [][]byte{{9, 9}}
	dst := [][]byte{make([]byte, 2), {7, 7}}
	srcDesc := BufferDesc{NComps: 1}
	dstDesc := BufferDesc{NComps: 2}

	if err := f.MapPlanar(nil, srcDesc, dstDesc, src, dst, false); err != nil {
		t.Fatalf("MapPlanar returned error: %v", err)
	}
	if !bytes.Equal(dst[0], []byte{9, 9}) {
		t.Errorf("plane 0 = %v, want copied from src", dst[0])
	}
	if !bytes.Equal(dst[1], []byte{0, 0}) {
		t.Errorf("extra plane 1 = %v, want zero-filled", dst[1])
	}
}

func TestMapPlanarByteSwap(t *testing.T) {
	f := NewFallback()
	src := [][]byte{{0x01, 0x02, 0x03, 0x04}}
	dst := [][]byte{make([]byte, 4)}
	desc := BufferDesc{NComps: 1}

	if err := f.MapPlanar(nil, desc, desc, src, dst, true); err != nil {
		t.Fatalf("MapPlanar returned error: %v", err)
	}
	want := []byte{0x02, 0x01, 0x04, 0x03}
	if !bytes.Equal(dst[0], want) {
		t.Errorf("byte-swapped plane = %v, want %v", dst[0], want)
	}
}
