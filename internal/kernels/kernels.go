// Package kernels defines the collaborator interfaces the encoder
// core treats as external: the reconstruction/pixel kernels, the
// rate controller, and the SIMD-strategy dispatcher. The CTU
// pipeline and motion search still need *some* concrete
// implementation to be compilable and testable, so this package also
// provides a single generic (non-SIMD) Go back-end for arbitrary
// power-of-two block sizes, registered through the same dispatch
// table a SIMD build would use.
package kernels

// Pixel groups the per-block reconstruction primitives the CTU
// pipeline and motion search call into: blit, SAD/SATD cost, the
// forward/inverse transform+quant pair, fractional-pel interpolation,
// and the three in-loop filter "apply" steps (SAO, deblock, ALF).
// Classification (ALF's class map, SAO's parameter search) lives
// outside this module; only the apply step is named here
// because the CTU pipeline must be able to call it.
type Pixel interface {
	// Blit copies an s-major w x h block from src (stride srcStride)
	// to dst (stride dstStride).
	Blit(dst []uint16, dstStride int, src []uint16, srcStride int, w, h int)

	// SAD returns the sum of absolute differences between two w x h
	// blocks, used by integer motion search.
	SAD(a []uint16, aStride int, b []uint16, bStride int, w, h int) int64

	// SATD returns the Hadamard-transformed sum of absolute
	// differences, used by fractional motion search and bipred
	// scoring.
	SATD(a []uint16, aStride int, b []uint16, bStride int, w, h int) int64

	// TransformQuant runs the forward transform and quantizer on an
	// w x h residual block at the given QP, returning the nonzero
	// coefficient count (feeds the CBF decision).
	TransformQuant(residual []int32, w, h, qp int, coeffsOut []int32) int

	// InverseTransformDequant reconstructs a residual block from
	// coefficients at the given QP.
	InverseTransformDequant(coeffs []int32, w, h, qp int, residualOut []int32)

	// Interpolate produces a fractional-pel-shifted w x h prediction
	// block from a reference plane, with UVG_LUMA_FILTER_OFFSET
	// padding already present around the source region.
	Interpolate(dst []uint16, dstStride int, ref []uint16, refStride int, w, h int, fracX, fracY int)

	// ApplySAO/ApplyDeblock/ApplyALF filter samples in place over the
	// given rectangle; their parameter search lives outside this
	// module.
	ApplySAO(plane []uint16, stride, x, y, w, h int, params SAOParams)
	ApplyDeblock(plane []uint16, stride, x, y, w, h int, strength int)
	ApplyALF(plane []uint16, stride, x, y, w, h int, classMap []uint8, coeffs [][]int32)
}

// SAOParams is the per-CTU SAO parameter set produced by the (external)
// SAO search and consumed by ApplySAO.
type SAOParams struct {
	Type   SAOType
	Class  int
	Offset [4]int32
}

// SAOType enumerates the SAO filter classes.
type SAOType int

const (
	SAOOff SAOType = iota
	SAOBandOffset
	SAOEdgeOffset
)

// RateController assigns lambda/QP per picture and per CTU. The
// concrete algorithms (lambda-RC, OBA) are external; the CTU
// pipeline only needs the interface for its per-CTU QP/lambda
// assignment.
type RateController interface {
	PictureQP(sliceType int, pocDistanceFromIRAP int) (qp int, lambda float64)
	CTUQP(pictureQP int, ctuIndex int, bitsSoFar, bitsBudget int64) (qp int, lambda float64)
	// RecordCTUBits feeds back the coded size of a finished CTU into
	// the frame's running bit counter.
	RecordCTUBits(bits int64)
}

// Strategy is the SIMD back-end dispatcher. This module registers
// exactly one back-end under the name "generic": a cpuid-gated
// dispatch table collapsed to its single always-available entry.
type Strategy struct {
	Name  string
	Pixel Pixel
}

var registered = map[string]Strategy{}

// Register adds a named strategy to the global registry. Called from
// an init() in each backend file; the generic backend registers
// itself this way in generic.go.
func Register(s Strategy) {
	registered[s.Name] = s
}

// Select returns the strategy registered under name, defaulting to
// "generic" when name is empty.
func Select(name string) (Strategy, bool) {
	if name == "" {
		name = "generic"
	}
	s, ok := registered[name]
	return s, ok
}
