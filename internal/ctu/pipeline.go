package ctu

import (
	"sync"

	"github.com/shoalforge/uvgo/internal/bitio"
	"github.com/shoalforge/uvgo/internal/cuarray"
	"github.com/shoalforge/uvgo/internal/kernels"
	"github.com/shoalforge/uvgo/internal/motion"
	"github.com/shoalforge/uvgo/internal/picture"
)

// Options is the CTU-pipeline slice of the configuration surface;
// the frame controller fills it from the encoder's config.
type Options struct {
	WPP           bool
	DeblockEnable bool
	SAOEnabled    bool
	ALFEnabled    bool
	IBC           uint8 // bit 0 enables IBC, bit 1 the hash map
	DualTree      bool
	JCCR          bool
}

// SearchFunc is the recursive RDO mode search, an external
// collaborator: it writes the winning CU geometry,
// modes, and MVs into view and the quantized coefficients into
// el.Coeff, and returns the number of coefficient values produced.
type SearchFunc func(el *OrderElement, view cuarray.View, qp int8, lambda float64) int

// SAOSearchFunc is the external SAO parameter search.
type SAOSearchFunc func(el *OrderElement) kernels.SAOParams

// FrameState drives the per-CTU pipeline for one frame (or one tile
// of it). The scheduler calls SearchCTU and BitstreamCTU as its job
// bodies; FrameState supplies the data they share.
type FrameState struct {
	Pic  *picture.Picture
	Grid *cuarray.Grid
	Px   kernels.Pixel
	RC   kernels.RateController

	Opts      Options
	SliceType bitio.SliceType
	BaseQP    int

	WidthCTUs, HeightCTUs int
	Order                 []OrderElement
	Rows                  []*LeafState

	// IntraBounds holds post-recon boundary rows/columns for the next
	// CTU's intra reference samples; SAOBounds holds the pre-SAO
	// deblocked snapshot.
	IntraBounds *BoundaryBuffers
	SAOBounds   *BoundaryBuffers

	saoParams []kernels.SAOParams
	alfLuma   []bool

	Search    SearchFunc
	SAOSearch SAOSearchFunc

	// Rate-control counters shared across the frame's CTUs, mutated
	// under the per-frame mutex.
	rcMu       sync.Mutex
	bitsCoded  int64
	bitsBudget int64
}

// NewFrameState builds the per-frame pipeline state: the CTU order,
// one leaf state per WPP row (or a single one without WPP), and the
// boundary buffers.
func NewFrameState(pic *picture.Picture, opts Options, slice bitio.SliceType, baseQP int, px kernels.Pixel, rc kernels.RateController, search SearchFunc) *FrameState {
	wc := (pic.Width + LCUWidth - 1) / LCUWidth
	hc := (pic.Height + LCUWidth - 1) / LCUWidth
	f := &FrameState{
		Pic:         pic,
		Grid:        cuarray.New(pic.Width, pic.Height),
		Px:          px,
		RC:          rc,
		Opts:        opts,
		SliceType:   slice,
		BaseQP:      baseQP,
		WidthCTUs:   wc,
		HeightCTUs:  hc,
		Order:       BuildOrder(wc, hc, 0, 0, pic.Width, pic.Height),
		IntraBounds: NewBoundaryBuffers(wc, hc),
		SAOBounds:   NewBoundaryBuffers(wc, hc),
		saoParams:   make([]kernels.SAOParams, wc*hc),
		alfLuma:     make([]bool, wc*hc),
		Search:      search,
	}

	numLeaf := 1
	if opts.WPP {
		numLeaf = hc
	}
	f.Rows = make([]*LeafState, numLeaf)
	for i := range f.Rows {
		f.Rows[i] = NewLeafState(i, 0, wc, int8(baseQP))
		f.Rows[i].ResetSlice(slice, baseQP)
	}
	if opts.WPP {
		for i := 0; i+1 < numLeaf; i++ {
			f.Rows[i].NextRow = f.Rows[i+1]
		}
	}
	for i := range f.Order {
		f.Order[i].Owner = f.leaf(f.Order[i].Y)
	}
	return f
}

// leaf returns the leaf state owning a CTU row. Without WPP every
// row shares one coder and one substream, so the scheduler must
// chain the bitstream jobs in strict raster order (the WPP lattice
// would let two jobs mutate the shared coder concurrently).
func (f *FrameState) leaf(row int) *LeafState {
	if f.Opts.WPP {
		return f.Rows[row]
	}
	return f.Rows[0]
}

func (f *FrameState) el(r, c int) *OrderElement {
	return &f.Order[r*f.WidthCTUs+c]
}

// ctuView returns the CU-grid view covering el, in 4x4 cells.
func (f *FrameState) ctuView(el *OrderElement) cuarray.View {
	return cuarray.NewView(f.Grid, cuarray.Rect{
		X: el.PxX / 4, Y: el.PxY / 4,
		W: (el.PxW + 3) / 4, H: (el.PxH + 3) / 4,
	})
}

// SearchCTU is the search-job body; the numbered steps below run in
// a fixed order ending just before syntax emission.
func (f *FrameState) SearchCTU(r, c int) {
	el := f.el(r, c)
	leaf := el.Owner

	// 1. QP/lambda from the rate controller.
	f.rcMu.Lock()
	bits := f.bitsCoded
	budget := f.bitsBudget
	f.rcMu.Unlock()
	qp, lambda := f.RC.CTUQP(f.BaseQP, el.Index, bits, budget)

	// 2-5. HMVP snapshot around the speculative search; 3. IBC
	// hashing of the source CTU into the row's map.
	if f.Opts.IBC&2 != 0 {
		luma := motion.IBCPlane{Data: f.Pic.Source.Y.Data, Stride: f.Pic.Source.Y.Stride}
		cb := motion.IBCPlane{Data: f.Pic.Source.U.Data, Stride: f.Pic.Source.U.Stride}
		cr := motion.IBCPlane{Data: f.Pic.Source.V.Data, Stride: f.Pic.Source.V.Stride}
		leaf.IBCHash.InsertCTU(luma, cb, cr, el.PxX, el.PxY, el.PxW, el.PxH)
	}

	view := f.ctuView(el)
	el.Coeff = make([]int32, el.PxW*el.PxH*2) // freed after the bitstream job
	leaf.HMVP.WithSpeculativeSearch(func(*motion.Snapshot) {
		// 4. Recursive RDO search (external) fills the grid and the
		// coefficient buffer. 5. The deferred restore undoes any
		// speculative HMVP pushes; only the bitstream pass commits.
		f.Search(el, view, int8(qp), lambda)
	})

	// 6. Reconstruction boundary rows/columns for the CTU below/right.
	f.IntraBounds.Save(el, &f.Pic.Recon.Y)

	// 7. IBC rolling-window shift at the buffer boundary.
	if f.Opts.IBC&2 != 0 && el.PxX >= motion.IBCBufferWidth {
		leaf.IBCHash.ShiftWindow(el.PxX + el.PxW)
	}

	// 8. Per-CU QP propagation through the quantization groups.
	leaf.LastQP = PropagateQP(view, leaf.LastQP)

	// 9. Deblock.
	if f.Opts.DeblockEnable {
		f.Px.ApplyDeblock(f.Pic.Recon.Y.Data, f.Pic.Recon.Y.Stride, el.PxX, el.PxY, el.PxW, el.PxH, 2)
	}

	// 10. Pre-SAO snapshot of the deblocked boundary.
	f.SAOBounds.Save(el, &f.Pic.Recon.Y)

	// 11. SAO search and reconstruct.
	if f.Opts.SAOEnabled {
		params := kernels.SAOParams{}
		if f.SAOSearch != nil {
			params = f.SAOSearch(el)
		}
		f.saoParams[el.Index] = params
		ReconstructSAO(f.Px, el, &f.Pic.Recon.Y, f.Pic.Width, f.Pic.Height, func(x, y int) kernels.SAOParams {
			return f.saoParams[y*f.WidthCTUs+x]
		})
	}
}

// SetALFDecision records the frame-wide ALF job's per-CTU decision
// before the bitstream jobs run.
func (f *FrameState) SetALFDecision(r, c int, lumaOn bool) {
	f.alfLuma[r*f.WidthCTUs+c] = lumaOn
}

// BitstreamCTU is the bitstream-job body: the optional simulated
// pass, the real syntax pass, substream trailing, and the WPP
// context hand-off.
func (f *FrameState) BitstreamCTU(r, c int) {
	el := f.el(r, c)
	leaf := el.Owner
	startBits := leaf.Writer.Tell()

	// 12. Simulated pass (only_count) when ALF is active: a fork with
	// a counting sink walks the same syntax so the context models
	// advance without emitting bytes, then the updated contexts are
	// copied back.
	if f.Opts.ALFEnabled {
		fork := leaf.Cabac.Clone(&bitio.CountingSink{})
		f.writeCTUSyntax(fork, el)
		leaf.Cabac.CopyContexts(fork)
	}

	// 13. The real bitstream pass.
	f.writeCTUSyntax(leaf.Cabac, el)

	// End-of-row / end-of-slice trailing.
	lastInRow := c == f.WidthCTUs-1
	lastInFrame := lastInRow && r == f.HeightCTUs-1
	if f.Opts.WPP && lastInRow {
		EndSubstream(leaf.Cabac, leaf.Writer, !lastInFrame)
	} else if lastInFrame {
		EndSubstream(leaf.Cabac, leaf.Writer, false)
	}

	// WPP context hand-off after the second CTU of the row.
	if f.Opts.WPP && c == 1 {
		leaf.HandOffContexts()
	}

	el.Coeff = nil

	f.rcMu.Lock()
	f.bitsCoded += int64(leaf.Writer.Tell() - startBits)
	f.RC.RecordCTUBits(int64(leaf.Writer.Tell() - startBits))
	f.rcMu.Unlock()
}

// writeCTUSyntax emits one CTU's full syntax tree: SAO, ALF, then the
// coding tree (luma first, chroma second under dual tree on I
// slices).
func (f *FrameState) writeCTUSyntax(e *bitio.Encoder, el *OrderElement) {
	if f.Opts.SAOEnabled {
		WriteSAOSyntax(e, f.saoParams[el.Index], false, false, el.Left != nil, el.Above != nil)
	}
	if f.Opts.ALFEnabled {
		on := f.alfLuma[el.Index]
		WriteALFCtb(e, on, on, on)
	}

	view := f.ctuView(el)
	root := cuarray.Rect{X: 0, Y: 0, W: view.Rect().W, H: view.Rect().H}
	hmvp := el.Owner.HMVP
	if e.OnlyCounting() {
		hmvp = nil // the simulated pass must not advance causal state
	}
	if f.Opts.DualTree && f.SliceType == bitio.SliceI {
		EncodeCodingTree(e, view, root, 0, TreeLuma, hmvp)
		EncodeCodingTree(e, view, root, 0, TreeChroma, nil)
	} else {
		EncodeCodingTree(e, view, root, 0, TreeShared, hmvp)
	}

	// Coefficient payload for the CTU: luma first, then chroma, from
	// the buffer the RDO search filled.
	if el.Coeff != nil {
		n := el.PxW * el.PxH
		EncodeResidual(e, el.Coeff[:n], n)
		EncodeResidual(e, el.Coeff[n:], len(el.Coeff)-n)
	}
}

// Substreams concatenates the per-row substream bytes in row order,
// the per-frame emit job's NAL payload.
func (f *FrameState) Substreams() []byte {
	var out []byte
	for _, leaf := range f.Rows {
		out = append(out, leaf.Writer.Bytes()...)
	}
	return out
}

// SetBitsBudget installs the frame's bit budget for the closed-loop
// CTU QP adjustment.
func (f *FrameState) SetBitsBudget(bits int64) {
	f.rcMu.Lock()
	f.bitsBudget = bits
	f.rcMu.Unlock()
}
