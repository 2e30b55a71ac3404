package motion

import "testing"

// bowlCost returns a synthetic RD cost shaped like a single-minimum
// bowl centered at target, convex enough that hill-climbing pattern
// searches (hexagon, diamond, full-window) are guaranteed to reach it.
func bowlCost(target MV) CostFunc {
	return func(mv MV) int64 {
		dx := int64(mv.X - target.X)
		dy := int64(mv.Y - target.Y)
		return dx*dx + dy*dy
	}
}

func TestIntegerSearch_HexagonConverges(t *testing.T) {
	target := MV{X: 6, Y: -2}
	res := IntegerSearch(IMEHexagon, nil, nil, bowlCost(target), false)
	if res.Best != target {
		t.Fatalf("hexagon search landed on %+v, want %+v (cost %d)", res.Best, target, res.BestCost)
	}
	if res.BestCost != 0 {
		t.Fatalf("bestCost = %d, want 0", res.BestCost)
	}
}

func TestIntegerSearch_DiamondConverges(t *testing.T) {
	target := MV{X: -4, Y: 4}
	res := IntegerSearch(IMEDiamond, nil, nil, bowlCost(target), false)
	if res.Best != target {
		t.Fatalf("diamond search landed on %+v, want %+v", res.Best, target)
	}
}

func TestIntegerSearch_FullWindowFindsGlobalMinimum(t *testing.T) {
	target := MV{X: 3, Y: -5}
	res := IntegerSearch(IMEFull8, nil, nil, bowlCost(target), false)
	if res.Best != target {
		t.Fatalf("full8 search landed on %+v, want %+v", res.Best, target)
	}
}

// TestIntegerSearch_TZRasterEscapesLocalMinimum puts the only zero
// cost on a raster-grid point surrounded by a flat plateau: the
// hexagon walk sees no gradient and stays at the origin, while TZ's
// coarse raster scan lands on the minimum directly.
func TestIntegerSearch_TZRasterEscapesLocalMinimum(t *testing.T) {
	target := MV{X: 15, Y: 15}
	needle := func(mv MV) int64 {
		if mv == target {
			return 0
		}
		return 1000
	}

	hex := IntegerSearch(IMEHexagon, nil, nil, needle, false)
	if hex.Best == target {
		t.Fatal("plateau should defeat the hexagon walk; the scenario is miscalibrated")
	}

	tz := IntegerSearch(IMETZ, nil, nil, needle, false)
	if tz.Best != target {
		t.Fatalf("tz raster stage landed on %+v, want %+v", tz.Best, target)
	}
	if tz.BestCost != 0 {
		t.Fatalf("tz bestCost = %d, want 0", tz.BestCost)
	}
}

// TestIntegerSearch_StartingPointsIncludeMergeAndColocated checks that
// a merge candidate sitting exactly on the cost minimum is picked up
// even when the hill-climbing passes alone would not reach it (the
// minimum is outside the hexagon probe's reach from the zero MV).
func TestIntegerSearch_StartingPointsIncludeMergeAndColocated(t *testing.T) {
	target := MV{X: 500, Y: -500}
	merge := []Candidate{{MV: target}}
	res := IntegerSearch(IMEDiamond, nil, merge, bowlCost(target), false)
	if res.Best != target {
		t.Fatalf("search did not pick up merge-candidate starting point at global minimum: got %+v", res.Best)
	}
}

// TestSmallHexagonTerminate_SensitiveTighter checks that the
// "sensitive" termination threshold (95% of current best) accepts
// fewer marginal improvements than the default threshold.
func TestSmallHexagonTerminate_SensitiveTighter(t *testing.T) {
	center := MV{X: 0, Y: 0}
	const centerCost = int64(100)
	// A candidate at 97% of centerCost: improves under the default
	// threshold (< centerCost) but not under the tightened 95% one.
	marginal := func(mv MV) int64 {
		if mv == (MV{X: -1, Y: 0}) {
			return 97
		}
		return 1000
	}

	_, defaultCost, _ := smallHexagonTerminate(center, centerCost, marginal, 0, false)
	if defaultCost != 97 {
		t.Fatalf("default threshold: cost = %d, want 97 (should accept marginal improvement)", defaultCost)
	}

	_, sensitiveCost, _ := smallHexagonTerminate(center, centerCost, marginal, 0, true)
	if sensitiveCost != centerCost {
		t.Fatalf("sensitive threshold: cost = %d, want %d (should reject marginal improvement)", sensitiveCost, centerCost)
	}
}

func TestFractionalSearch_FMELevelBoundsPassCount(t *testing.T) {
	target := MV{X: 2, Y: -2} // within quarter-pel diagonal reach
	best, cost := FractionalSearch(MV{}, bowlCost(target)(MV{}), bowlCost(target), 4)
	if best != target || cost != 0 {
		t.Fatalf("fme_level=4: got %+v cost=%d, want %+v cost=0", best, cost, target)
	}

	// With fme_level=0 no passes run at all; result must equal the
	// starting point untouched.
	start := MV{X: 7, Y: 7}
	best0, cost0 := FractionalSearch(start, bowlCost(target)(start), bowlCost(target), 0)
	if best0 != start {
		t.Fatalf("fme_level=0 moved the starting MV: got %+v want %+v", best0, start)
	}
	_ = cost0
}
