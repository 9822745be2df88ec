package color

// EquivCMYK is the precomputed equivalent-CMYK mapping for one spot
// colorant, used by the put-image spot-to-process collapse (C10).
type EquivCMYK struct {
	C, M, Y, K float64
}
