// Package motion implements the inter-picture motion search engine:
// integer and fractional-pel search, AMVP/merge candidate
// management, bipred search, and intra-block-copy hash search.
// Per-CTU-row mutable state (the HMVP ring, the IBC hash map) is
// scoped to one row's worker so no locking is needed.
package motion

import "github.com/shoalforge/uvgo/internal/cuarray"

// MV is a motion vector in quarter-pel luma units.
type MV = cuarray.MV

// RefList names which reference-picture list a candidate or search
// belongs to.
type RefList int

const (
	ListL0 RefList = iota
	ListL1
)

// MRGMaxNumCands is the maximum number of merge candidates
// considered per PU.
const MRGMaxNumCands = 6

// Candidate is one merge or AMVP candidate: a motion vector, the
// reference index it pairs with, and (for merge) whether it came from
// a spatial, temporal, or history (HMVP) source.
type Candidate struct {
	MV       MV
	RefIdx   int8
	Source   CandidateSource
}

// CandidateSource enumerates where a merge/AMVP candidate came from.
type CandidateSource int

const (
	SourceSpatialA0 CandidateSource = iota
	SourceSpatialA1
	SourceSpatialB0
	SourceSpatialB1
	SourceSpatialB2
	SourceTemporal
	SourceHistory
	SourceZero
)

// PUGeometry is one prediction-unit shape within a CU, the unit the
// RDO splitter hands to motion search.
type PUGeometry struct {
	X, Y, W, H int
}

// IMEAlgorithm selects the integer motion-estimation search pattern
// (the ime_algorithm encoder option).
type IMEAlgorithm int

const (
	IMEHexagon IMEAlgorithm = iota
	IMEDiamond
	IMETZ
	IMEFull8
	IMEFull16
	IMEFull32
	IMEFull64
)

// MVConstraint selects the tile/wavefront MV validity gate (the
// mv_constraint encoder option).
type MVConstraint int

const (
	MVConstraintNone MVConstraint = iota
	MVConstraintFrame
	MVConstraintFrameAndTileMargin

	// MVConstraintFrameAndTileMarginExperimental is excluded from the
	// normal mv_constraint enum ladder above and requires this
	// explicit opt-in constant because
	// it has a known non-determinism under concurrent tile encoding
	// when MVs are confined to the current tile — the tile-margin
	// computation in ValidateMV depends on fractional-pel reach that itself
	// depends on the not-yet-finalized neighbor tile's filter
	// selection in that mode. Treat as experimental only.
	MVConstraintFrameAndTileMarginExperimental
)

// Options groups the motion-search configuration surface.
type Options struct {
	IME           IMEAlgorithm
	FMELevel      int // 0..4 fractional refinement passes
	Sensitive     bool
	RDOLevel      int // 0..3
	Bipred        bool
	MVConstraint  MVConstraint
	SAODelayPx    int
	IBCEnabled    bool
	IBCHashEnable bool
}
