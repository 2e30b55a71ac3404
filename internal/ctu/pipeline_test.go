package ctu

import (
	"bytes"
	"testing"

	"github.com/shoalforge/uvgo/internal/bitio"
	"github.com/shoalforge/uvgo/internal/cuarray"
	"github.com/shoalforge/uvgo/internal/kernels"
	"github.com/shoalforge/uvgo/internal/picture"
)

// stubSearch fills each CTU with one 64x64 intra CU carrying a luma
// residual, enough structure to drive the syntax pass.
func stubSearch(el *OrderElement, view cuarray.View, qp int8, lambda float64) int {
	view.FillAll(cuarray.Cell{
		Log2Width:  6,
		Log2Height: 6,
		Mode:       cuarray.ModeIntra,
		IntraLuma:  1,
		CBF:        1,
		QP:         qp,
	})
	return 0
}

func newTestFrame(t *testing.T, w, h int, opts Options) *FrameState {
	t.Helper()
	pic := picture.New(w, h, picture.Chroma420, 8)
	for i := range pic.Source.Y.Data {
		pic.Source.Y.Data[i] = uint16(i % 251)
	}
	rc := &kernels.LambdaRC{BaseQP: 27}
	return NewFrameState(pic, opts, bitio.SliceI, 27, kernels.Default, rc, stubSearch)
}

// runSequential drives all search then all bitstream jobs in raster
// order, a valid linearization of the wavefront DAG.
func runSequential(f *FrameState) {
	for r := 0; r < f.HeightCTUs; r++ {
		for c := 0; c < f.WidthCTUs; c++ {
			f.SearchCTU(r, c)
		}
	}
	for r := 0; r < f.HeightCTUs; r++ {
		for c := 0; c < f.WidthCTUs; c++ {
			f.BitstreamCTU(r, c)
		}
	}
}

func TestWPPContextHandoff(t *testing.T) {
	f := newTestFrame(t, 192, 128, Options{WPP: true})
	if f.HeightCTUs < 2 || f.WidthCTUs < 3 {
		t.Fatal("test frame must span at least 2x3 CTUs")
	}

	for c := 0; c < f.WidthCTUs; c++ {
		f.SearchCTU(0, c)
		f.SearchCTU(1, c)
	}

	f.BitstreamCTU(0, 0)
	f.BitstreamCTU(0, 1)

	// Snapshot row 0's contexts right after its second CTU emitted.
	var want [bitio.NumContexts]bitio.Context
	for i := range want {
		want[i] = f.Rows[0].Cabac.Ctx(bitio.CtxID(i))
	}

	// Row 1's coder must already carry exactly that state.
	for i := range want {
		if got := f.Rows[1].Cabac.Ctx(bitio.CtxID(i)); got != want[i] {
			t.Fatalf("ctx %d: row 1 starts with %+v, want row 0's post-CTU(0,1) state %+v", i, got, want[i])
		}
	}

	// Later CTUs of row 0 must not re-seed row 1.
	f.BitstreamCTU(0, f.WidthCTUs-1)
	for i := range want {
		if got := f.Rows[1].Cabac.Ctx(bitio.CtxID(i)); got != want[i] {
			t.Fatalf("ctx %d: hand-off repeated after CTU (0,%d)", i, f.WidthCTUs-1)
		}
	}
}

func TestSubstreamEndings_Deterministic(t *testing.T) {
	run := func() []byte {
		f := newTestFrame(t, 128, 128, Options{WPP: true})
		runSequential(f)
		return f.Substreams()
	}
	a := run()
	b := run()
	if !bytes.Equal(a, b) {
		t.Fatal("substream bytes must be a deterministic function of the input")
	}
	if len(a) == 0 {
		t.Fatal("expected nonempty substreams")
	}

	// Each WPP row ends byte-aligned: with 2 rows, both leaf writers
	// finished aligned.
	f := newTestFrame(t, 128, 128, Options{WPP: true})
	runSequential(f)
	for r, leaf := range f.Rows {
		if !leaf.Writer.Aligned() {
			t.Fatalf("row %d substream not byte-aligned after trailer", r)
		}
		if len(leaf.Writer.Bytes()) == 0 {
			t.Fatalf("row %d substream empty", r)
		}
	}
}

func TestALFSimulatedPass_NoBytesButContextsAdvance(t *testing.T) {
	f := newTestFrame(t, 64, 64, Options{ALFEnabled: true})
	f.SearchCTU(0, 0)

	before := f.Rows[0].Cabac.Ctx(CtxSkipFlag)
	bytesBefore := len(f.Rows[0].Writer.Bytes())

	// Run only the simulated half by hand: fork with a counting sink.
	fork := f.Rows[0].Cabac.Clone(&bitio.CountingSink{})
	f.writeCTUSyntax(fork, f.el(0, 0))
	f.Rows[0].Cabac.CopyContexts(fork)

	if len(f.Rows[0].Writer.Bytes()) != bytesBefore {
		t.Fatal("simulated pass must not emit bytes")
	}
	after := f.Rows[0].Cabac.Ctx(CtxSkipFlag)
	if before == after {
		t.Fatal("simulated pass must advance context state")
	}
}

func TestPropagateQP_AnchorAndPrediction(t *testing.T) {
	grid := cuarray.New(32, 16)
	view := cuarray.NewView(grid, cuarray.Rect{X: 0, Y: 0, W: 8, H: 4})

	// One 16x16 QG (4x4 cells) with the anchor at cell (1, 0): the
	// cell before it takes the prediction, the rest take the anchor
	// QP.
	base := cuarray.Cell{Log2Width: 2, Log2Height: 2, QP: 30}
	view.FillAll(base)
	anchor := base
	anchor.CBF = 1
	anchor.QP = 33
	view.Set(1, 0, anchor)

	last := PropagateQP(view.Sub(cuarray.Rect{X: 0, Y: 0, W: 4, H: 4}), 28)

	if got := view.At(0, 0).QP; got != 28 {
		t.Fatalf("pre-anchor cell QP = %d, want predicted 28 (both neighbors fall back to lastQP)", got)
	}
	if got := view.At(1, 0).QP; got != 33 {
		t.Fatalf("anchor QP = %d, want 33", got)
	}
	if got := view.At(3, 3).QP; got != 33 {
		t.Fatalf("post-anchor cell QP = %d, want anchor 33", got)
	}
	if last != 33 {
		t.Fatalf("carried lastQP = %d, want anchor 33", last)
	}
}

func TestPropagateQP_NoResidualInheritsPrediction(t *testing.T) {
	grid := cuarray.New(16, 16)
	view := cuarray.NewView(grid, cuarray.Rect{X: 0, Y: 0, W: 4, H: 4})
	view.FillAll(cuarray.Cell{Log2Width: 2, Log2Height: 2, QP: 40})

	last := PropagateQP(view, 26)
	if got := view.At(2, 2).QP; got != 26 {
		t.Fatalf("QP = %d, want predicted 26 when no CBF set anywhere", got)
	}
	if last != 26 {
		t.Fatalf("carried lastQP = %d, want 26", last)
	}
}

func TestSplitTree_PushAndDepth(t *testing.T) {
	var tr SplitTree
	tr = tr.Push(SplitQT).Push(SplitBTHor).Push(SplitTTVer)
	if tr.Depth() != 3 {
		t.Fatalf("depth = %d, want 3", tr.Depth())
	}
	if tr.CodeAt(0) != SplitQT || tr.CodeAt(1) != SplitBTHor || tr.CodeAt(2) != SplitTTVer {
		t.Fatalf("history mismatch: %v %v %v", tr.CodeAt(0), tr.CodeAt(1), tr.CodeAt(2))
	}
	tr = tr.WithModeTypeDepth(2)
	if tr.ModeTypeDepth() != 2 {
		t.Fatalf("mode-type depth = %d, want 2", tr.ModeTypeDepth())
	}
	if tr.Depth() != 3 {
		t.Fatal("mode-type depth write clobbered depth")
	}
}

func TestSAORegions_DeferredEdges(t *testing.T) {
	order := BuildOrder(2, 2, 0, 0, 128, 128)
	params := func(x, y int) kernels.SAOParams {
		return kernels.SAOParams{Type: kernels.SAOBandOffset, Class: y*2 + x}
	}

	// Top-left CTU: no neighbors, so a single self region starting at
	// the frame corner and stopping SAODelayPx short of its
	// bottom/right edges.
	regions := saoRegions(&order[0], 128, 128, params)
	if len(regions) != 1 {
		t.Fatalf("corner CTU regions = %d, want 1", len(regions))
	}
	r := regions[0]
	if r.x != 0 || r.y != 0 {
		t.Fatalf("corner region origin (%d,%d), want (0,0)", r.x, r.y)
	}
	if r.x+r.w != LCUWidth-SAODelayPx || r.y+r.h != LCUWidth-SAODelayPx {
		t.Fatalf("corner region extent (%d,%d), want deferred edge at %d", r.x+r.w, r.y+r.h, LCUWidth-SAODelayPx)
	}

	// Bottom-right CTU: all three neighbor strips plus self, and the
	// deferred strips filter in place up to the frame edge.
	regions = saoRegions(&order[3], 128, 128, params)
	if len(regions) != 4 {
		t.Fatalf("interior CTU regions = %d, want 4 (upper-left, upper, left, self)", len(regions))
	}
	last := regions[3]
	if last.x+last.w != 128 || last.y+last.h != 128 {
		t.Fatalf("frame-edge CTU must filter its deferred strips in place, got extent (%d,%d)", last.x+last.w, last.y+last.h)
	}
}

func TestDualTree_CodesTwoTreesOnISlice(t *testing.T) {
	pass := func(opts Options) (int, bitio.Context) {
		f := newTestFrame(t, 64, 64, opts)
		f.SearchCTU(0, 0)
		sink := &bitio.CountingSink{}
		fork := f.Rows[0].Cabac.Clone(sink)
		f.writeCTUSyntax(fork, f.el(0, 0))
		fork.Finish()
		return sink.Tell(), fork.Ctx(CtxSplitCUFlag)
	}
	singleBits, singleCtx := pass(Options{})
	dualBits, dualCtx := pass(Options{DualTree: true})
	if dualBits < singleBits {
		t.Fatalf("dual tree dropped syntax: %d bits vs %d", dualBits, singleBits)
	}
	// The chroma tree re-codes the split flag, so its context must
	// have taken one more update than in the shared-tree pass.
	if dualCtx == singleCtx {
		t.Fatal("dual tree on an I slice must code a second (chroma) coding tree")
	}
}
