package motion

import "sort"

// MaxBipredPairs is the cap on (L0, L1) candidate pairs enumerated
// by the bipred search.
const MaxBipredPairs = 12

// priorityList0 and priorityList1 give, per pair slot, which unipred
// candidate index feeds each list. The ordering front-loads the
// pairs most likely to win: best-with-best, then cross combinations.
var (
	priorityList0 = [MaxBipredPairs]int{0, 1, 0, 2, 1, 2, 0, 3, 1, 3, 2, 3}
	priorityList1 = [MaxBipredPairs]int{0, 0, 1, 0, 1, 1, 2, 0, 2, 1, 2, 2}
)

// UnipredResult is one per-list search winner fed into the bipred
// pairing, ranked by its unipred cost.
type UnipredResult struct {
	MV     MV
	RefIdx int8
	Cost   int64
}

// BipredCandidate is one scored (L0, L1) pair.
type BipredCandidate struct {
	MV     [2]MV
	RefIdx [2]int8
	Cost   int64
}

// BipredScoreFunc reconstructs the bi-prediction (average of the two
// interpolated reference blocks) for an (L0, L1) MV pair and returns
// its SATD against the source block. Built by the caller over
// kernels.Pixel, like CostFunc.
type BipredScoreFunc func(l0, l1 MV) int64

// AMVPMap collects the best candidates per motion direction, sorted
// by cost. The RDO caller reads the front entry of each direction to
// pick the overall winner.
type AMVPMap struct {
	byDir [3][]BipredCandidate // indexed by Dir* below
}

// Motion directions recorded in an AMVPMap.
const (
	DirIdxL0 = iota
	DirIdxL1
	DirIdxBi
)

// Record inserts cand into dir's list, keeping the list cost-sorted.
func (m *AMVPMap) Record(dir int, cand BipredCandidate) {
	lst := append(m.byDir[dir], cand)
	sort.Slice(lst, func(i, j int) bool { return lst[i].Cost < lst[j].Cost })
	m.byDir[dir] = lst
}

// Best returns the cheapest candidate for dir, or false when the
// direction was never searched (e.g. bipred disabled or invalid
// geometry).
func (m *AMVPMap) Best(dir int) (BipredCandidate, bool) {
	if len(m.byDir[dir]) == 0 {
		return BipredCandidate{}, false
	}
	return m.byDir[dir][0], true
}

// BipredAllowed reports whether the PU geometry admits bipred at
// all: width + height must reach 16.
func BipredAllowed(pu PUGeometry) bool {
	return pu.W+pu.H >= 16
}

// BipredSearch enumerates up to MaxBipredPairs (L0, L1) pairs from
// the two unipred candidate rankings, validates each side against the
// MV constraint, scores the pair by bi-prediction SATD, and records
// every valid pair in amvp under DirIdxBi. Returns the best pair and
// whether any pair was valid.
func BipredSearch(l0, l1 []UnipredResult, pu PUGeometry, constraint MVConstraint, bounds TileBounds, score BipredScoreFunc, amvp *AMVPMap) (BipredCandidate, bool) {
	if !BipredAllowed(pu) || len(l0) == 0 || len(l1) == 0 {
		return BipredCandidate{}, false
	}

	var best BipredCandidate
	found := false
	for pair := 0; pair < MaxBipredPairs; pair++ {
		i0 := priorityList0[pair]
		i1 := priorityList1[pair]
		if i0 >= len(l0) || i1 >= len(l1) {
			continue
		}
		c0, c1 := l0[i0], l1[i1]
		if !ValidateMV(constraint, pu, c0.MV, bounds) || !ValidateMV(constraint, pu, c1.MV, bounds) {
			continue
		}
		cand := BipredCandidate{
			MV:     [2]MV{c0.MV, c1.MV},
			RefIdx: [2]int8{c0.RefIdx, c1.RefIdx},
			Cost:   score(c0.MV, c1.MV),
		}
		amvp.Record(DirIdxBi, cand)
		if !found || cand.Cost < best.Cost {
			best = cand
			found = true
		}
	}
	return best, found
}
