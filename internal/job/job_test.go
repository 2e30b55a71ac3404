package job

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJob_RunsOnceAfterAllPredecessors(t *testing.T) {
	p := NewPool(4, 1, nil)
	defer p.Close()

	var order []string
	var mu sync.Mutex
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	a := p.New("a", record("a"))
	b := p.New("b", record("b"))
	c := p.New("c", record("c"))
	c.DependOn(a)
	c.DependOn(b)

	// Submit the dependent first: edges, not submit order, drive
	// execution order.
	c.Submit()
	a.Submit()
	b.Submit()
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 3)
	require.Equal(t, "c", order[2])
}

func TestJob_EveryEnqueuedJobEventuallyRuns(t *testing.T) {
	// Every submitted job must eventually run, at enough scale to
	// exercise the spill path of the bounded queue.
	p := NewPool(3, 1, nil)
	defer p.Close()

	const n = 500
	var ran atomic.Int32
	jobs := make([]*Job, n)
	for i := range jobs {
		jobs[i] = p.New("j", func() { ran.Add(1) })
		if i > 0 {
			jobs[i].DependOn(jobs[i-1])
		}
	}
	for i := n - 1; i >= 0; i-- {
		jobs[i].Submit()
	}
	jobs[n-1].Wait()
	require.EqualValues(t, n, ran.Load())
}

func TestJob_DoubleSubmitPanics(t *testing.T) {
	p := NewPool(1, 1, nil)
	defer p.Close()
	j := p.New("j", func() {})
	j.Submit()
	j.Wait()
	require.Panics(t, func() { j.Submit() })
}

// wavefrontTrace builds a frame graph over a shared completion trace
// so tests can assert ordering invariants after the fact.
type wavefrontTrace struct {
	mu        sync.Mutex
	searches  map[[2]int]int // (r,c) -> completion sequence
	bitstream map[[2]int]int
	seq       int
}

func newWavefrontTrace() *wavefrontTrace {
	return &wavefrontTrace{searches: map[[2]int]int{}, bitstream: map[[2]int]int{}}
}

func (w *wavefrontTrace) search(r, c int) {
	w.mu.Lock()
	w.seq++
	w.searches[[2]int{r, c}] = w.seq
	w.mu.Unlock()
}

func (w *wavefrontTrace) bits(r, c int) {
	w.mu.Lock()
	w.seq++
	w.bitstream[[2]int{r, c}] = w.seq
	w.mu.Unlock()
}

func TestFrameGraph_WavefrontOrdering(t *testing.T) {
	p := NewPool(8, 1, nil)
	defer p.Close()

	tr := newWavefrontTrace()
	g := p.BuildFrameGraph(FrameGraphConfig{
		Rows: 4, Cols: 6,
		WPP:       true,
		Search:    tr.search,
		Bitstream: tr.bits,
		Emit:      func() {},
	})
	g.Submit()
	g.Wait()

	for r := 0; r < 4; r++ {
		for c := 0; c < 6; c++ {
			if c > 0 {
				require.Less(t, tr.searches[[2]int{r, c - 1}], tr.searches[[2]int{r, c}],
					"search raster order within row %d", r)
				require.Less(t, tr.bitstream[[2]int{r, c - 1}], tr.bitstream[[2]int{r, c}])
			}
			if r > 0 {
				cAbove := c + 1
				if cAbove > 5 {
					cAbove = 5
				}
				require.Less(t, tr.searches[[2]int{r - 1, cAbove}], tr.searches[[2]int{r, c}],
					"wavefront stagger at (%d,%d)", r, c)
				// A row's first emission waits for the CTU above-right
				// whose emission seeds this row's contexts.
				require.Less(t, tr.bitstream[[2]int{r - 1, cAbove}], tr.bitstream[[2]int{r, c}],
					"bitstream stagger at (%d,%d)", r, c)
			}
			require.Less(t, tr.searches[[2]int{r, c}], tr.bitstream[[2]int{r, c}])
		}
	}
}

func TestFrameGraph_SingleCoderRasterChain(t *testing.T) {
	p := NewPool(8, 1, nil)
	defer p.Close()

	tr := newWavefrontTrace()
	g := p.BuildFrameGraph(FrameGraphConfig{
		Rows: 3, Cols: 4,
		Search:    tr.search,
		Bitstream: tr.bits,
		Emit:      func() {},
	})
	g.Submit()
	g.Wait()

	// Without per-row coders the shared substream must be written in
	// strict raster order: every bitstream job follows its raster
	// predecessor, across row boundaries included.
	prev := 0
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			seq := tr.bitstream[[2]int{r, c}]
			require.Greater(t, seq, prev, "bitstream (%d,%d) out of raster order", r, c)
			prev = seq
		}
	}
}

func TestFrameGraph_ALFGatesBitstream(t *testing.T) {
	p := NewPool(8, 1, nil)
	defer p.Close()

	tr := newWavefrontTrace()
	var alfSeq int
	g := p.BuildFrameGraph(FrameGraphConfig{
		Rows: 2, Cols: 3,
		ALFEnabled: true,
		Search:     tr.search,
		Bitstream:  tr.bits,
		ALF: func() {
			tr.mu.Lock()
			tr.seq++
			alfSeq = tr.seq
			tr.mu.Unlock()
		},
		Emit: func() {},
	})
	g.Submit()
	g.Wait()

	for pos, seq := range tr.searches {
		require.Less(t, seq, alfSeq, "alf must follow search %v", pos)
	}
	for pos, seq := range tr.bitstream {
		require.Greater(t, seq, alfSeq, "bitstream %v must follow alf", pos)
	}
}

func TestFrameGraph_EmitOrderAcrossFrames(t *testing.T) {
	p := NewPool(8, 4, nil)
	defer p.Close()

	var mu sync.Mutex
	var emitted []int

	var prev *FrameGraph
	graphs := make([]*FrameGraph, 6)
	for n := 0; n < 6; n++ {
		n := n
		g := p.BuildFrameGraph(FrameGraphConfig{
			Rows: 2, Cols: 2,
			Search:    func(r, c int) {},
			Bitstream: func(r, c int) {},
			Emit: func() {
				mu.Lock()
				emitted = append(emitted, n)
				mu.Unlock()
			},
		})
		g.LinkEmitAfter(prev)
		g.Submit()
		graphs[n] = g
		prev = g
	}
	graphs[5].Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, emitted,
		"bitstream emission must serialize in frame order")
}

func TestSchedulerOWFGopLenEdge(t *testing.T) {
	// Regression for the owf > gop_len open-GOP dependency
	// at owf=8, gop_len=4: with the extra
	// predecessor edge in place, a deep frame pipeline must still
	// drain with a small worker count and each frame's searches must
	// follow the predecessor frame's collocated searches.
	p := NewPool(2, 8, nil)
	defer p.Close()

	const frames = 10
	type key struct{ frame, r, c int }
	var mu sync.Mutex
	done := map[key]int{}
	seq := 0

	var prev *FrameGraph
	var last *FrameGraph
	for n := 0; n < frames; n++ {
		n := n
		g := p.BuildFrameGraph(FrameGraphConfig{
			Rows: 2, Cols: 2,
			OWF: 8, GOPLen: 4, OpenGOP: true,
			Search: func(r, c int) {
				mu.Lock()
				seq++
				done[key{n, r, c}] = seq
				mu.Unlock()
			},
			Bitstream: func(r, c int) {},
			Emit:      func() {},
		})
		g.LinkOpenGOPPredecessor(prev)
		g.LinkEmitAfter(prev)
		g.Submit()
		prev = g
		last = g
	}
	last.Wait()

	mu.Lock()
	defer mu.Unlock()
	for n := 1; n < frames; n++ {
		for r := 0; r < 2; r++ {
			for c := 0; c < 2; c++ {
				require.Less(t, done[key{n - 1, r, c}], done[key{n, r, c}],
					"frame %d search (%d,%d) ran before its predecessor edge", n, r, c)
			}
		}
	}
}

func TestLinkOpenGOPPredecessor_NoEdgeWhenOWFSmall(t *testing.T) {
	p := NewPool(4, 2, nil)
	defer p.Close()

	// owf <= gop_len: no extra edge, so frame 1's searches may run
	// before frame 0's. We only assert both frames complete (absence
	// of the edge is not directly observable without racing).
	mk := func() *FrameGraph {
		return p.BuildFrameGraph(FrameGraphConfig{
			Rows: 1, Cols: 2,
			OWF: 2, GOPLen: 4, OpenGOP: true,
			Search:    func(r, c int) {},
			Bitstream: func(r, c int) {},
			Emit:      func() {},
		})
	}
	g0 := mk()
	g1 := mk()
	g1.LinkOpenGOPPredecessor(g0)
	g1.LinkEmitAfter(g0)
	g0.Submit()
	g1.Submit()
	g1.Wait()
	require.True(t, g0.EmitJob.Done())
}
