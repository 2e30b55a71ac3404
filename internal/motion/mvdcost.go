package motion

import "github.com/shoalforge/uvgo/internal/bitio"

// expGolombBits returns the bit length of an order-k Exp-Golomb code
// for value, independently retracing the same loop structure as
// bitio.Encoder.EncodeExpGolombEP so a cost estimate can be computed
// without touching a real coder.
func expGolombBits(value uint32, k uint32) int {
	numBins := 0
	count := k
	for value >= uint32(1)<<count {
		numBins++
		value -= uint32(1) << count
		count++
	}
	numBins++
	numBins += int(count)
	return numBins
}

// signedToEGMagnitudeBits returns the estimated bit count of one
// signed MVD component: the EG1 code length of its magnitude, plus
// one sign bit when nonzero. It is a cost estimate for the integer
// search, not the exact VVC mvd_coding() binarization.
func signedToEGMagnitudeBits(v int32) int {
	mag := v
	if mag < 0 {
		mag = -mag
	}
	bits := expGolombBits(uint32(mag), 1)
	if mag != 0 {
		bits++ // sign bit
	}
	return bits
}

// MVDCostFast is the fast Exp-Golomb-bit MVD cost: a
// pure bit-count estimate of coding mvd = mv - predictor, with no
// CABAC context modeling. lambda scales the bit count into the same
// units as a SAD/SATD distortion term: cost = lambda * bits.
func MVDCostFast(mv, predictor MV, lambda float64) float64 {
	mvd := MV{X: mv.X - predictor.X, Y: mv.Y - predictor.Y}
	bits := signedToEGMagnitudeBits(mvd.X) + signedToEGMagnitudeBits(mvd.Y)
	return lambda * float64(bits)
}

// MVDCostCABAC is the RDO-accurate MVD cost: it forks
// the caller's CABAC state (via Clone, so the fork cannot mutate the
// canonical context set or its carry chain) and measures the bit
// length a real CABAC pass would spend coding mvd, using a counting
// sink so no bytes are produced.
func MVDCostCABAC(coder *bitio.Encoder, mv, predictor MV, lambda float64) float64 {
	// A counting sink only sees bits at Finish, so the cost is the
	// difference between finishing a fork with and without the MVD.
	baseSink := &bitio.CountingSink{}
	coder.Clone(baseSink).Finish()

	sink := &bitio.CountingSink{}
	fork := coder.Clone(sink)
	fork.SetUpdate(false) // cost probe only; must not mutate canonical contexts

	mvd := MV{X: mv.X - predictor.X, Y: mv.Y - predictor.Y}
	encodeMVDComponent(fork, mvd.X)
	encodeMVDComponent(fork, mvd.Y)
	fork.Finish()

	return lambda * float64(sink.Tell()-baseSink.Tell())
}

// encodeMVDComponent codes one signed MVD component: a greater-than-0
// regular bin, then (if nonzero) a greater-than-1 regular bin, an
// EG1 bypass remainder when magnitude > 1, and finally a bypass sign
// bit — the standard VVC mvd_coding() binarization shape.
func encodeMVDComponent(e *bitio.Encoder, v int32) {
	mag := v
	if mag < 0 {
		mag = -mag
	}
	if mag == 0 {
		e.EncodeBin(0)
		return
	}
	e.EncodeBin(1)
	if mag > 1 {
		e.EncodeBin(1)
		e.EncodeExpGolombEP(uint32(mag-2), 1)
	} else {
		e.EncodeBin(0)
	}
	sign := uint32(0)
	if v < 0 {
		sign = 1
	}
	e.EncodeBinEP(sign)
}
