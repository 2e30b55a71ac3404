package kernels

import "math"

// LambdaRC is a simple OBA-style (one-bit-allocation) rate controller:
// a fixed QP-to-lambda mapping per picture, then per-CTU QP held
// constant except for a soft adjustment based on how far the frame's
// coded-bit count has drifted from its proportional budget. It exists
// so the CTU pipeline and frame controller are exercisable end to end
// even though the real rate-control algorithms are external
// collaborators; a production encoder would swap this out.
type LambdaRC struct {
	BaseQP int

	bitsCoded int64
}

var _ RateController = (*LambdaRC)(nil)

// sliceLambdaFactor mirrors the standard HEVC/VVC lambda-from-QP
// relationship (lambda doubles every 3 QP steps), with a small
// per-slice-type weight (I frames get a lower lambda, pushing more
// bits toward intra frames that future pictures predict from).
func sliceLambdaFactor(sliceType int) float64 {
	switch sliceType {
	case 0: // I
		return 0.57
	case 2: // B
		return 0.68
	default: // P
		return 0.6
	}
}

func qpToLambda(qp int, factor float64) float64 {
	return factor * math.Pow(2, (float64(qp)-12)/3)
}

// PictureQP returns the configured base QP, offset slightly deeper
// into the GOP the further a picture sits from the last IRAP (mirrors
// the common hierarchical-B QP-cascade heuristic), plus the matching
// lambda.
func (rc *LambdaRC) PictureQP(sliceType int, pocDistanceFromIRAP int) (int, float64) {
	qp := rc.BaseQP
	switch {
	case pocDistanceFromIRAP <= 0:
		// IRAP itself: no offset.
	case pocDistanceFromIRAP == 1:
		qp += 1
	default:
		qp += 3
	}
	if qp > 51 {
		qp = 51
	}
	return qp, qpToLambda(qp, sliceLambdaFactor(sliceType))
}

// CTUQP nudges the picture QP by +/-1 once the running bit count for
// the frame has drifted more than 12% from ctuIndex/100 of the
// frame's bit budget, a minimal closed-loop adjustment standing in
// for a real OBA controller. The frame's CTU count is not an input,
// so the expected share equals the proportional one only for a
// 100-CTU frame.
func (rc *LambdaRC) CTUQP(pictureQP int, ctuIndex int, bitsSoFar, bitsBudget int64) (int, float64) {
	qp := pictureQP
	if bitsBudget > 0 {
		expected := bitsBudget * int64(ctuIndex)
		actual := bitsSoFar * 100
		switch {
		case actual > expected*112/100:
			qp++
		case actual < expected*88/100 && qp > 1:
			qp--
		}
	}
	if qp > 51 {
		qp = 51
	}
	if qp < 0 {
		qp = 0
	}
	return qp, qpToLambda(qp, sliceLambdaFactor(0))
}

// RecordCTUBits accumulates the frame's coded-bit counter. Callers
// must serialize access under the per-frame rate-control mutex; this
// type itself does not lock.
func (rc *LambdaRC) RecordCTUBits(bits int64) {
	rc.bitsCoded += bits
}
