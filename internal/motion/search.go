package motion

// CostFunc evaluates SAD (or SATD, for fractional search) plus
// lambda-weighted MVD coding cost for a candidate MV, combined into
// one RD cost value. Callers build this by closing over the actual
// source/reference blocks (via kernels.Pixel) and a chosen MVDCostFast
// or MVDCostCABAC — search.go itself never touches pixels; the
// reconstruction kernels are external collaborators.
type CostFunc func(mv MV) int64

// hexagonOffsets are the six large-hexagon probe points used by both
// the initial hexagon search and TZ's hexagon refinement phase.
var hexagonOffsets = [6]MV{
	{X: -4, Y: 0}, {X: -2, Y: 4}, {X: 2, Y: 4},
	{X: 4, Y: 0}, {X: 2, Y: -4}, {X: -2, Y: -4},
}

// smallHexagonOffsets are the four small-hexagon early-termination
// probes evaluated around the best point after the main hexagon.
var smallHexagonOffsets = [4]MV{
	{X: -1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1},
}

var diamondOffsets = [4]MV{
	{X: -2, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: -2},
}

// IntegerSearchResult is the outcome of one PU's integer-pel search.
type IntegerSearchResult struct {
	Best     MV
	BestCost int64
	Probes   int
}

// startingPoints enumerates the initial MV candidates: the zero MV,
// any extra MV from the prior frame's co-located CU, and the merge
// candidates.
func startingPoints(colocated *MV, merge []Candidate) []MV {
	pts := []MV{{}}
	if colocated != nil {
		pts = append(pts, *colocated)
	}
	for _, c := range merge {
		pts = append(pts, c.MV)
	}
	return pts
}

// IntegerSearch runs the configured IME algorithm from the best of
// the starting points, then (for hexagon) the small-hexagon early
// termination pass.
func IntegerSearch(algo IMEAlgorithm, colocated *MV, merge []Candidate, cost CostFunc, sensitive bool) IntegerSearchResult {
	starts := startingPoints(colocated, merge)
	best := starts[0]
	bestCost := cost(best)
	probes := 1
	for _, p := range starts[1:] {
		c := cost(p)
		probes++
		if c < bestCost {
			best, bestCost = p, c
		}
	}

	switch algo {
	case IMEHexagon:
		best, bestCost, probes = hexagonSearch(best, bestCost, cost, probes)
		best, bestCost, probes = smallHexagonTerminate(best, bestCost, cost, probes, sensitive)
	case IMEDiamond:
		best, bestCost, probes = patternSearch(best, bestCost, cost, probes, diamondOffsets[:])
	case IMETZ:
		best, bestCost, probes = tzRasterSearch(best, bestCost, cost, probes)
		best, bestCost, probes = hexagonSearch(best, bestCost, cost, probes)
		best, bestCost, probes = smallHexagonTerminate(best, bestCost, cost, probes, sensitive)
	case IMEFull8:
		best, bestCost, probes = fullWindowSearch(best, bestCost, cost, probes, 8)
	case IMEFull16:
		best, bestCost, probes = fullWindowSearch(best, bestCost, cost, probes, 16)
	case IMEFull32:
		best, bestCost, probes = fullWindowSearch(best, bestCost, cost, probes, 32)
	case IMEFull64:
		best, bestCost, probes = fullWindowSearch(best, bestCost, cost, probes, 64)
	}

	return IntegerSearchResult{Best: best, BestCost: bestCost, Probes: probes}
}

// hexagonSearch repeatedly probes the six large-hexagon offsets around
// the current best, recentering whenever a probe improves cost, until
// no offset improves on the center (a standard UMH/hexagon-search
// fixed point).
func hexagonSearch(center MV, centerCost int64, cost CostFunc, probes int) (MV, int64, int) {
	for {
		improved := false
		for _, off := range hexagonOffsets {
			cand := MV{X: center.X + off.X, Y: center.Y + off.Y}
			c := cost(cand)
			probes++
			if c < centerCost {
				center, centerCost = cand, c
				improved = true
			}
		}
		if !improved {
			return center, centerCost, probes
		}
	}
}

// smallHexagonTerminate runs the four-probe early-termination pass:
// if none of the four small-hexagon offsets around best lowers cost,
// the search stops. Under sensitive termination the improvement
// threshold tightens to 95% of the current best.
func smallHexagonTerminate(center MV, centerCost int64, cost CostFunc, probes int, sensitive bool) (MV, int64, int) {
	for {
		improved := false
		for _, off := range smallHexagonOffsets {
			cand := MV{X: center.X + off.X, Y: center.Y + off.Y}
			c := cost(cand)
			probes++
			threshold := centerCost
			if sensitive {
				threshold = centerCost * 95 / 100
			}
			if c < threshold {
				center, centerCost = cand, c
				improved = true
			}
		}
		if !improved {
			return center, centerCost, probes
		}
	}
}

// Test-zone raster stage: a coarse grid scan over a window around the
// start point, run before the hexagon refinement so the search can
// escape a local minimum the hexagon walk would settle into.
const (
	tzRasterWindow = 15
	tzRasterStep   = 5
)

func tzRasterSearch(center MV, centerCost int64, cost CostFunc, probes int) (MV, int64, int) {
	origin := center
	for dy := int32(-tzRasterWindow); dy <= tzRasterWindow; dy += tzRasterStep {
		for dx := int32(-tzRasterWindow); dx <= tzRasterWindow; dx += tzRasterStep {
			if dx == 0 && dy == 0 {
				continue
			}
			cand := MV{X: origin.X + dx, Y: origin.Y + dy}
			c := cost(cand)
			probes++
			if c < centerCost {
				center, centerCost = cand, c
			}
		}
	}
	return center, centerCost, probes
}

func patternSearch(center MV, centerCost int64, cost CostFunc, probes int, pattern []MV) (MV, int64, int) {
	for {
		improved := false
		for _, off := range pattern {
			cand := MV{X: center.X + off.X, Y: center.Y + off.Y}
			c := cost(cand)
			probes++
			if c < centerCost {
				center, centerCost = cand, c
				improved = true
			}
		}
		if !improved {
			return center, centerCost, probes
		}
	}
}

// fullWindowSearch exhaustively probes a (2*size+1)^2 window around
// center, the full{8,16,32,64} IME algorithms.
func fullWindowSearch(center MV, centerCost int64, cost CostFunc, probes int, size int32) (MV, int64, int) {
	origin := center
	for dy := -size; dy <= size; dy++ {
		for dx := -size; dx <= size; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			cand := MV{X: origin.X + dx, Y: origin.Y + dy}
			c := cost(cand)
			probes++
			if c < centerCost {
				center, centerCost = cand, c
			}
		}
	}
	return center, centerCost, probes
}

// FracPass names one of the four fractional-refinement filter
// passes: halfpel H/V, halfpel diagonal, quarterpel H/V, quarterpel
// diagonal.
type FracPass int

const (
	FracHalfAxis FracPass = iota
	FracHalfDiag
	FracQuarterAxis
	FracQuarterDiag
)

// fracOffsets gives the 9-point square's 8 neighbor offsets (in
// eighth-pel units so quarter-pel == 2, half-pel == 4) for each pass,
// restricted to axis-aligned or diagonal points as appropriate.
func fracOffsets(pass FracPass) []MV {
	switch pass {
	case FracHalfAxis:
		return []MV{{X: -4, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: -4}, {X: 0, Y: 4}}
	case FracHalfDiag:
		return []MV{{X: -4, Y: -4}, {X: 4, Y: -4}, {X: -4, Y: 4}, {X: 4, Y: 4}}
	case FracQuarterAxis:
		return []MV{{X: -2, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: -2}, {X: 0, Y: 2}}
	case FracQuarterDiag:
		return []MV{{X: -2, Y: -2}, {X: 2, Y: -2}, {X: -2, Y: 2}, {X: 2, Y: 2}}
	}
	return nil
}

// FractionalSearch refines bestInt (an integer-pel MV converted to
// eighth-pel units by the caller) using up to fmeLevel of the four
// filter passes, each scored by SATD via cost.
func FractionalSearch(bestInt MV, bestCost int64, cost CostFunc, fmeLevel int) (MV, int64) {
	passes := []FracPass{FracHalfAxis, FracHalfDiag, FracQuarterAxis, FracQuarterDiag}
	center, centerCost := bestInt, bestCost
	for i, pass := range passes {
		if i >= fmeLevel {
			break
		}
		for _, off := range fracOffsets(pass) {
			cand := MV{X: center.X + off.X, Y: center.Y + off.Y}
			c := cost(cand)
			if c < centerCost {
				center, centerCost = cand, c
			}
		}
	}
	return center, centerCost
}
