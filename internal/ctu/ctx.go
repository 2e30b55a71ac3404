// Package ctu implements the per-CTU encode pipeline: the LCU order
// element, rate-distortion staging, reconstruction and in-loop
// filter scheduling (deblock, SAO, ALF), per-QG QP propagation, and
// the CABAC syntax emission pass with WPP context hand-off.
package ctu

import "github.com/shoalforge/uvgo/internal/bitio"

// Context model layout: base index and count per syntax element,
// summing to bitio.NumContexts. The slot order matches the rows of
// bitio's initialization tables.
const (
	CtxSplitCUFlag    bitio.CtxID = 0  // 9
	CtxSplitQTFlag    bitio.CtxID = 9  // 6
	CtxMTTSplitVert   bitio.CtxID = 15 // 5
	CtxMTTSplitBinary bitio.CtxID = 20 // 4
	CtxSkipFlag       bitio.CtxID = 24 // 3
	CtxMergeFlag      bitio.CtxID = 27 // 1
	CtxMergeIdx       bitio.CtxID = 28 // 1
	CtxPredMode       bitio.CtxID = 29 // 2
	CtxIBCFlag        bitio.CtxID = 31 // 3
	CtxIntraLumaMPM   bitio.CtxID = 34 // 2
	CtxIntraPlanar    bitio.CtxID = 36 // 2
	CtxIntraChroma    bitio.CtxID = 38 // 1
	CtxInterDir       bitio.CtxID = 39 // 6
	CtxRefIdx         bitio.CtxID = 45 // 2
	CtxMVPIdx         bitio.CtxID = 47 // 1
	CtxMVDGreater0    bitio.CtxID = 48 // 1
	CtxMVDGreater1    bitio.CtxID = 49 // 1
	CtxRootCbf        bitio.CtxID = 50 // 1
	CtxCbfLuma        bitio.CtxID = 51 // 4
	CtxCbfCb          bitio.CtxID = 55 // 2
	CtxCbfCr          bitio.CtxID = 57 // 3
	CtxJointCbCr      bitio.CtxID = 60 // 3
	CtxTransformSkip  bitio.CtxID = 63 // 2
	CtxSaoMerge       bitio.CtxID = 65 // 1
	CtxSaoTypeIdx     bitio.CtxID = 66 // 1
	CtxModeCons       bitio.CtxID = 67 // 2
	CtxAlfCtbFlag     bitio.CtxID = 69 // 9
	CtxAlfUseAps      bitio.CtxID = 78 // 1
	CtxAlfCcCb        bitio.CtxID = 79 // 3
	CtxAlfCcCr        bitio.CtxID = 82 // 3
	CtxLastSigX       bitio.CtxID = 85  // 23
	CtxLastSigY       bitio.CtxID = 108 // 23
	CtxSigCoeffGroup  bitio.CtxID = 131 // 4
	CtxSigCoeff       bitio.CtxID = 135 // 12
	CtxParity         bitio.CtxID = 147 // 6
	CtxGt1            bitio.CtxID = 153 // 12
	CtxGt3            bitio.CtxID = 165 // 12
	CtxCuQpDeltaAbs   bitio.CtxID = 177 // 2
	CtxBDPCM          bitio.CtxID = 179 // 4
	CtxMTSIdx         bitio.CtxID = 183 // 4
	CtxLFNSTIdx       bitio.CtxID = 187 // 1
)
