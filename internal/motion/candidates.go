package motion

import "github.com/shoalforge/uvgo/internal/cuarray"

// Neighbors groups the five spatial merge-candidate positions (A0,
// A1, B0, B1, B2) plus the temporal collocated candidate, each as an
// optional CU-grid cell (nil when the position lies outside the
// picture, in a not-yet-coded CTU, or across an unavailable tile/slice
// boundary).
type Neighbors struct {
	A0, A1, B0, B1, B2 *cuarray.Cell
	Temporal           *cuarray.Cell
}

// TileBounds is the current tile's pixel rectangle plus the MV-reach
// margin: the referenced block must lie within the tile rectangle
// expanded by Margin.
type TileBounds struct {
	X0, Y0, X1, Y1 int
	Margin         int
}

// MVConstraintMargin computes the tile-margin extension: +4 for
// luma fractional reach, +2 for chroma fractional reach, plus the
// SAO and deblock delays.
func MVConstraintMargin(lumaFrac, chromaFrac bool, saoDelayPx int, deblockDelayPx int) int {
	margin := 0
	if lumaFrac {
		margin += 4
	}
	if chromaFrac {
		margin += 2
	}
	margin += saoDelayPx
	margin += deblockDelayPx
	return margin
}

// ValidateMV reports whether a candidate's referenced block — the PU
// rectangle shifted by mv — lies within bounds, per the `mv_constraint`
// option. MVConstraintNone always validates; MVConstraintFrame checks
// only the picture rectangle (passed as bounds with Margin=0 and the
// picture's own X1/Y1); the tile-margin modes additionally honor
// bounds.Margin.
func ValidateMV(c MVConstraint, pu PUGeometry, mv MV, bounds TileBounds) bool {
	if c == MVConstraintNone {
		return true
	}

	// MV is in quarter-pel units; convert to whole pixels for the
	// reach check (floor toward negative infinity, matching integer
	// pixel coverage of a fractional MV).
	dx := int(mv.X) >> 2
	dy := int(mv.Y) >> 2

	x0 := pu.X + dx
	y0 := pu.Y + dy
	x1 := x0 + pu.W
	y1 := y0 + pu.H

	margin := 0
	if c == MVConstraintFrameAndTileMargin || c == MVConstraintFrameAndTileMarginExperimental {
		margin = bounds.Margin
	}

	return x0 >= bounds.X0-margin && y0 >= bounds.Y0-margin &&
		x1 <= bounds.X1+margin && y1 <= bounds.Y1+margin
}

// BuildMergeCandidates assembles up to MRGMaxNumCands merge candidates
// from the spatial positions (in the fixed A1, B1, B0, A0, B2 priority
// order used by HEVC/VVC merge-list construction), the temporal
// collocated candidate, and the HMVP history ring, then pads with
// the zero MV up to MRGMaxNumCands. Candidates whose MV fails
// ValidateMV against bounds
// are skipped — MV-constraint violations are not errors: they
// silently filter out candidates.
func BuildMergeCandidates(n Neighbors, hist *HMVPLUT, pu PUGeometry, constraint MVConstraint, bounds TileBounds) []Candidate {
	out := make([]Candidate, 0, MRGMaxNumCands)

	add := func(cell *cuarray.Cell, src CandidateSource) {
		if len(out) >= MRGMaxNumCands || cell == nil {
			return
		}
		mv := cell.MV[0]
		if !ValidateMV(constraint, pu, mv, bounds) {
			return
		}
		for _, c := range out {
			if c.MV == mv && c.RefIdx == cell.RefIdx[0] {
				return // dedup identical spatial candidates
			}
		}
		out = append(out, Candidate{MV: mv, RefIdx: cell.RefIdx[0], Source: src})
	}

	add(n.A1, SourceSpatialA1)
	add(n.B1, SourceSpatialB1)
	add(n.B0, SourceSpatialB0)
	add(n.A0, SourceSpatialA0)
	add(n.B2, SourceSpatialB2)
	add(n.Temporal, SourceTemporal)

	for i := 0; i < hist.Len() && len(out) < MRGMaxNumCands; i++ {
		e := hist.At(i)
		if !ValidateMV(constraint, pu, e.MV, bounds) {
			continue
		}
		out = append(out, Candidate{MV: e.MV, RefIdx: e.RefIdx, Source: SourceHistory})
	}

	for len(out) < MRGMaxNumCands {
		out = append(out, Candidate{MV: MV{}, RefIdx: 0, Source: SourceZero})
	}

	return out
}

// BuildAMVPCandidates assembles the two AMVP candidates per reference
// list: the first available spatial predictor (A0 else A1), the first
// available top predictor (B0 else B1 else B2), then the temporal
// candidate and zero MV as fallbacks. Only the top predictor is
// compared with the left one and dropped when equal; the temporal
// and zero fallbacks are not checked against earlier candidates.
func BuildAMVPCandidates(n Neighbors, constraint MVConstraint, pu PUGeometry, bounds TileBounds) [2]MV {
	pick := func(cells ...*cuarray.Cell) (MV, bool) {
		for _, c := range cells {
			if c == nil {
				continue
			}
			if ValidateMV(constraint, pu, c.MV[0], bounds) {
				return c.MV[0], true
			}
		}
		return MV{}, false
	}

	left, leftOK := pick(n.A0, n.A1)
	above, aboveOK := pick(n.B0, n.B1, n.B2)

	var cands [2]MV
	idx := 0
	if leftOK {
		cands[idx] = left
		idx++
	}
	if aboveOK && (!leftOK || above != left) {
		if idx < 2 {
			cands[idx] = above
			idx++
		}
	}
	if idx < 2 && n.Temporal != nil {
		cands[idx] = n.Temporal.MV[0]
		idx++
	}
	// Remaining slots default to the zero MV.
	return cands
}
