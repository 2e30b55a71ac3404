package ctu

import (
	"github.com/shoalforge/uvgo/internal/bitio"
	"github.com/shoalforge/uvgo/internal/cuarray"
	"github.com/shoalforge/uvgo/internal/kernels"
	"github.com/shoalforge/uvgo/internal/motion"
)

// WriteSAOSyntax codes one CTU's SAO parameter set: merge-left and
// merge-up flags (when the neighbor exists), then the type index and
// offsets when not merged.
func WriteSAOSyntax(e *bitio.Encoder, params kernels.SAOParams, mergeLeft, mergeUp, hasLeft, hasUp bool) {
	if hasLeft {
		e.SetCtx(CtxSaoMerge)
		e.EncodeBin(b2u(mergeLeft))
		if mergeLeft {
			return
		}
	}
	if hasUp {
		e.SetCtx(CtxSaoMerge)
		e.EncodeBin(b2u(mergeUp))
		if mergeUp {
			return
		}
	}

	e.SetCtx(CtxSaoTypeIdx)
	if params.Type == kernels.SAOOff {
		e.EncodeBin(0)
		return
	}
	e.EncodeBin(1)
	e.EncodeBinEP(b2u(params.Type == kernels.SAOEdgeOffset))

	for _, off := range params.Offset {
		mag := off
		if mag < 0 {
			mag = -mag
		}
		e.EncodeUnaryMaxEP(uint32(mag), 7)
		if params.Type == kernels.SAOBandOffset && mag != 0 {
			e.EncodeBinEP(b2u(off < 0))
		}
	}
	if params.Type == kernels.SAOBandOffset {
		e.EncodeBinsEP(uint32(params.Class), 5)
	} else {
		e.EncodeBinsEP(uint32(params.Class), 2)
	}
}

// WriteALFCtb codes the per-CTU ALF enable flags (luma, Cb, Cr).
func WriteALFCtb(e *bitio.Encoder, lumaOn, cbOn, crOn bool) {
	e.SetCtx(CtxAlfCtbFlag)
	e.EncodeBin(b2u(lumaOn))
	e.SetCtx(CtxAlfCtbFlag + 3)
	e.EncodeBin(b2u(cbOn))
	e.SetCtx(CtxAlfCtbFlag + 6)
	e.EncodeBin(b2u(crOn))
}

// TreePlane selects which channel tree a coding-tree pass emits.
// With dual tree active on an I slice the luma tree is coded first
// and the chroma tree second.
type TreePlane int

const (
	TreeShared TreePlane = iota
	TreeLuma
	TreeChroma
)

// EncodeCodingTree recursively codes the coding tree for the node
// covering rect (in 4x4 cells) of view, reading the CU geometry the
// RDO search recorded in the grid: a node splits while the cell at
// its origin describes a CU smaller than the node.
func EncodeCodingTree(e *bitio.Encoder, view cuarray.View, rect cuarray.Rect, tree SplitTree, plane TreePlane, hmvp *motion.HMVPLUT) {
	cell := view.At(rect.X, rect.Y)
	nodeCells := rect.W // nodes are square until the leaf
	cuCells := 1 << (cell.Log2Width - 2)

	canSplit := nodeCells > 1
	mustSplit := canSplit && cuCells < nodeCells

	if canSplit {
		e.SetCtx(splitFlagCtx(tree, neighborSplitCount(view, rect, nodeCells)))
		e.EncodeBin(b2u(mustSplit))
	}
	if mustSplit {
		half := nodeCells / 2
		child := tree.Push(SplitQT)
		for _, q := range [4][2]int{{0, 0}, {half, 0}, {0, half}, {half, half}} {
			sub := cuarray.Rect{X: rect.X + q[0], Y: rect.Y + q[1], W: half, H: half}
			if sub.X < view.Rect().W && sub.Y < view.Rect().H {
				EncodeCodingTree(e, view, sub, child, plane, hmvp)
			}
		}
		return
	}

	encodeCU(e, cell, plane, hmvp)
}

// neighborSplitCount counts how many of the left/above neighbor cells
// describe CUs smaller than this node, feeding split-flag context
// selection.
func neighborSplitCount(view cuarray.View, rect cuarray.Rect, nodeCells int) int {
	n := 0
	if rect.X > 0 {
		if 1<<(view.At(rect.X-1, rect.Y).Log2Width-2) < nodeCells {
			n++
		}
	}
	if rect.Y > 0 {
		if 1<<(view.At(rect.X, rect.Y-1).Log2Width-2) < nodeCells {
			n++
		}
	}
	return n
}

// encodeCU codes one CU's prediction syntax and residual flags. The
// emit path is the one place HMVP learns a committed inter CU's
// motion: search is speculative, the bitstream pass updates the
// causal state.
func encodeCU(e *bitio.Encoder, cell cuarray.Cell, plane TreePlane, hmvp *motion.HMVPLUT) {
	if plane != TreeChroma {
		e.SetCtx(CtxSkipFlag)
		e.EncodeBin(b2u(cell.Mode == cuarray.ModeSkip))
		if cell.Mode == cuarray.ModeSkip {
			e.SetCtx(CtxMergeIdx)
			e.EncodeUnaryMax(uint32(cell.MergeIdx), motion.MRGMaxNumCands-1)
			if hmvp != nil {
				pushHMVP(hmvp, cell)
			}
			return
		}

		e.SetCtx(CtxPredMode)
		e.EncodeBin(b2u(cell.Mode == cuarray.ModeIntra))
		if cell.Mode == cuarray.ModeIBC {
			e.SetCtx(CtxIBCFlag)
			e.EncodeBin(1)
		} else if cell.Mode == cuarray.ModeInter {
			e.SetCtx(CtxIBCFlag)
			e.EncodeBin(0)
		}
	}

	switch {
	case cell.Mode == cuarray.ModeIntra || plane == TreeChroma:
		encodeIntraModes(e, cell, plane)
	case cell.Mode == cuarray.ModeInter:
		encodeInterPred(e, cell)
		if hmvp != nil {
			pushHMVP(hmvp, cell)
		}
	case cell.Mode == cuarray.ModeIBC:
		// IBC signals its block vector as an MVD against (0,0).
		writeMVD(e, cell.MV[0].X, cell.MV[0].Y)
	}

	encodeCbf(e, cell, plane)
}

func encodeIntraModes(e *bitio.Encoder, cell cuarray.Cell, plane TreePlane) {
	if plane != TreeChroma {
		e.SetCtx(CtxIntraPlanar)
		if cell.IntraLuma == 0 {
			e.EncodeBin(1)
		} else {
			e.EncodeBin(0)
			e.EncodeTruncBin(uint32(cell.IntraLuma-1), 66)
		}
	}
	if plane != TreeLuma {
		e.SetCtx(CtxIntraChroma)
		if cell.IntraChroma == cell.IntraLuma {
			e.EncodeBin(1) // derived mode
		} else {
			e.EncodeBin(0)
			e.EncodeBinsEP(uint32(cell.IntraChroma&3), 2)
		}
	}
}

func encodeInterPred(e *bitio.Encoder, cell cuarray.Cell) {
	merged := cell.MergeIdx >= 0
	e.SetCtx(CtxMergeFlag)
	e.EncodeBin(b2u(merged))
	if merged {
		e.SetCtx(CtxMergeIdx)
		e.EncodeUnaryMax(uint32(cell.MergeIdx), motion.MRGMaxNumCands-1)
		return
	}

	e.SetCtx(CtxInterDir)
	e.EncodeBin(b2u(cell.Dir == cuarray.DirL0|cuarray.DirL1))

	for list := 0; list < 2; list++ {
		if cell.Dir&(cuarray.DirL0<<uint(list)) == 0 {
			continue
		}
		e.SetCtx(CtxRefIdx)
		e.EncodeUnaryMax(uint32(cell.RefIdx[list]), 15)
		writeMVD(e, cell.MV[list].X, cell.MV[list].Y)
		e.SetCtx(CtxMVPIdx)
		e.EncodeBin(uint32(cell.CandIdx) & 1)
	}
}

// writeMVD codes a signed MV difference pair in the standard
// mvd_coding() shape: per component a greater-than-0 regular bin, a
// greater-than-1 regular bin, an EG1 bypass remainder, and a bypass
// sign bit.
func writeMVD(e *bitio.Encoder, x, y int32) {
	for _, v := range [2]int32{x, y} {
		mag := v
		if mag < 0 {
			mag = -mag
		}
		e.SetCtx(CtxMVDGreater0)
		if mag == 0 {
			e.EncodeBin(0)
			continue
		}
		e.EncodeBin(1)
		e.SetCtx(CtxMVDGreater1)
		if mag > 1 {
			e.EncodeBin(1)
			e.EncodeExpGolombEP(uint32(mag-2), 1)
		} else {
			e.EncodeBin(0)
		}
		e.EncodeBinEP(b2u(v < 0))
	}
}

func encodeCbf(e *bitio.Encoder, cell cuarray.Cell, plane TreePlane) {
	if plane != TreeChroma {
		e.SetCtx(CtxCbfLuma)
		e.EncodeBin(uint32(cell.CBF) & 1)
	}
	if plane != TreeLuma {
		e.SetCtx(CtxCbfCb)
		e.EncodeBin(uint32(cell.CBF>>1) & 1)
		e.SetCtx(CtxCbfCr)
		e.EncodeBin(uint32(cell.CBF>>2) & 1)
		if cell.JointCbCr && cell.CBF&6 != 0 {
			e.SetCtx(CtxJointCbCr)
			e.EncodeBin(1)
		} else if cell.CBF&6 != 0 {
			e.SetCtx(CtxJointCbCr)
			e.EncodeBin(0)
		}
	}
	if cell.CBF&1 != 0 && plane != TreeChroma {
		e.SetCtx(CtxTransformSkip)
		e.EncodeBin(uint32(cell.TrSkip) & 1)
	}
}

func pushHMVP(hmvp *motion.HMVPLUT, cell cuarray.Cell) {
	list := motion.ListL0
	idx := 0
	if cell.Dir&cuarray.DirL0 == 0 && cell.Dir&cuarray.DirL1 != 0 {
		list = motion.ListL1
		idx = 1
	}
	hmvp.Push(motion.HMVPEntry{MV: cell.MV[idx], RefIdx: cell.RefIdx[idx], List: list})
}

// EncodeResidual codes a coefficient block: the last significant
// position as capped unary codes, then for each coefficient up to it
// a significance flag, greater-than-1 and greater-than-3 flags,
// parity, a Rice-coded remainder, and a bypass sign.
func EncodeResidual(e *bitio.Encoder, coeffs []int32, n int) {
	last := -1
	for i := 0; i < n; i++ {
		if coeffs[i] != 0 {
			last = i
		}
	}
	if last < 0 {
		return
	}

	e.SetCtx(CtxLastSigX)
	e.EncodeUnaryMax(uint32(last&7), 7)
	e.SetCtx(CtxLastSigY)
	e.EncodeUnaryMax(uint32(last>>3), uint32((n-1)>>3))

	for i := last; i >= 0; i-- {
		v := coeffs[i]
		mag := v
		if mag < 0 {
			mag = -mag
		}
		if i != last {
			e.SetCtx(CtxSigCoeff)
			e.EncodeBin(b2u(mag != 0))
			if mag == 0 {
				continue
			}
		}
		e.SetCtx(CtxGt1)
		e.EncodeBin(b2u(mag > 1))
		if mag > 1 {
			e.SetCtx(CtxParity)
			e.EncodeBin(uint32(mag) & 1)
			e.SetCtx(CtxGt3)
			e.EncodeBin(b2u(mag > 3))
			if mag > 3 {
				e.EncodeCoeffRemain(uint32(mag-4)>>1, 1, 5)
			}
		}
		e.EncodeBinEP(b2u(v < 0))
	}
}

// EndSubstream terminates a CABAC substream (end of a WPP row, a
// tile, or the slice): a terminating bin, the arithmetic flush, the
// rbsp stop bit, and zero alignment; then the coder restarts for the
// next substream when one follows.
func EndSubstream(e *bitio.Encoder, w *bitio.Writer, restart bool) {
	e.EncodeBinTrm(1)
	e.Finish()
	w.Put(1, 1)
	w.AlignZero()
	if restart {
		e.Start(w)
	}
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
