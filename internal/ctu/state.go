package ctu

import (
	"github.com/shoalforge/uvgo/internal/bitio"
	"github.com/shoalforge/uvgo/internal/motion"
)

// LeafState is one leaf-level encoder state: per WPP row in wavefront
// mode, per tile otherwise. It owns a CABAC coder, the substream
// writer the coder emits into, and the row-scoped mutable search
// state (HMVP ring, IBC hash map). All of these are single-threaded
// by construction: wavefront dependencies sequence every access.
type LeafState struct {
	Cabac  *bitio.Encoder
	Writer *bitio.Writer

	Row  int
	Tile int

	HMVP    *motion.HMVPLUT
	IBCHash *motion.IBCHashMap

	// NextRow is the leaf state of the WPP row below, the only
	// permitted context escape path across leaf states;
	// nil for the last row and in tile mode.
	NextRow *LeafState

	// LastQP is the predictor fallback for the first quantization
	// group of the row's next CTU.
	LastQP int8

	// handedOff guards the once-per-row context hand-off.
	handedOff bool
}

// NewLeafState creates a leaf state for one WPP row or tile,
// pre-sizing the substream writer for widthCTUs CTUs.
func NewLeafState(row, tile, widthCTUs int, sliceQP int8) *LeafState {
	w := bitio.NewWriter(widthCTUs * 256)
	return &LeafState{
		Cabac:   bitio.NewEncoder(w),
		Writer:  w,
		Row:     row,
		Tile:    tile,
		HMVP:    &motion.HMVPLUT{},
		IBCHash: motion.NewIBCHashMap(),
		LastQP:  sliceQP,
	}
}

// ResetSlice re-initializes the coder for a new slice: contexts from
// the QP-dependent table, arithmetic state from scratch. Contexts
// never persist across frames.
func (s *LeafState) ResetSlice(slice bitio.SliceType, qp int) {
	s.Writer.Reset()
	s.Cabac.Start(s.Writer)
	s.Cabac.InitContexts(slice, qp)
	s.handedOff = false
}

// HandOffContexts copies this row's CABAC contexts into the next
// row's coder. Called after the second CTU of the row has been
// emitted; later calls are no-ops so the hand-off happens exactly
// once per row.
func (s *LeafState) HandOffContexts() {
	if s.NextRow == nil || s.handedOff {
		return
	}
	s.NextRow.Cabac.CopyContexts(s.Cabac)
	s.handedOff = true
}
