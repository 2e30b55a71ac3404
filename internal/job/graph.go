package job

import "fmt"

// MaxInterRefLCU is the per-frame bound on how far (in CTUs) an
// inter MV may reach into a reference frame below/right of the
// collocated CTU, used to derive the cross-frame dependency offsets.
type MaxInterRefLCU struct {
	Down, Right int
}

// FrameGraphConfig describes one frame's job topology.
type FrameGraphConfig struct {
	Rows, Cols int

	// ALFEnabled switches the bitstream gating between the per-CTU
	// wavefront topology and the frame-wide alf_process barrier.
	ALFEnabled bool

	// AltTopology makes search(r, c) depend on bitstream(r, c-1)
	// instead of search(r, c-1).
	AltTopology bool

	// WPP selects the bitstream-edge shape. With per-row coders the
	// bitstream jobs form the wavefront lattice, with the row-above
	// edge taken above-right so a row cannot start emitting before
	// the previous row's second CTU has handed its contexts down.
	// Without WPP every CTU shares one coder and one substream, so
	// the bitstream jobs need a strict raster chain instead.
	WPP bool

	// OWF, GOPLen, and OpenGOP feed the extra-edge rule: with
	// owf > gop_len under an open GOP, every search additionally
	// depends on the predecessor frame's collocated search to break a
	// specific frame-parallel deadlock.
	OWF, GOPLen int
	OpenGOP     bool

	Search    func(r, c int)
	Bitstream func(r, c int)
	ALF       func()
	Emit      func()
}

// FrameGraph is one frame's job table. Jobs are indexed here rather
// than stored in per-LCU records.
type FrameGraph struct {
	cfg       FrameGraphConfig
	Search    [][]*Job
	Bitstream [][]*Job
	ALFJob    *Job
	EmitJob   *Job
}

// BuildFrameGraph creates the frame's jobs and all intra-frame
// edges. Nothing is submitted yet; cross-frame edges (LinkRef,
// LinkIRAPPredecessor, LinkEmitAfter, LinkOpenGOPPredecessor) must be
// added before Submit.
func (p *Pool) BuildFrameGraph(cfg FrameGraphConfig) *FrameGraph {
	g := &FrameGraph{cfg: cfg}
	g.Search = make([][]*Job, cfg.Rows)
	g.Bitstream = make([][]*Job, cfg.Rows)
	for r := 0; r < cfg.Rows; r++ {
		g.Search[r] = make([]*Job, cfg.Cols)
		g.Bitstream[r] = make([]*Job, cfg.Cols)
		for c := 0; c < cfg.Cols; c++ {
			r, c := r, c
			g.Search[r][c] = p.New(fmt.Sprintf("search %d %d", r, c), func() { cfg.Search(r, c) })
			g.Bitstream[r][c] = p.New(fmt.Sprintf("bitstream %d %d", r, c), func() { cfg.Bitstream(r, c) })
		}
	}
	if cfg.ALFEnabled {
		g.ALFJob = p.New("alf", cfg.ALF)
	}
	g.EmitJob = p.New("emit", cfg.Emit)

	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			search := g.Search[r][c]
			if c > 0 {
				if cfg.AltTopology {
					search.DependOn(g.Bitstream[r][c-1])
				} else {
					search.DependOn(g.Search[r][c-1])
				}
			}
			// The above-right search gives the wavefront its >= 2-CTU
			// row stagger: search(r, c) needs row r-1 reconstructed
			// through column c+1 for intra reference samples and merge
			// candidates.
			if r > 0 {
				cAbove := c + 1
				if cAbove >= cfg.Cols {
					cAbove = cfg.Cols - 1
				}
				search.DependOn(g.Search[r-1][cAbove])
			}

			bs := g.Bitstream[r][c]
			bs.DependOn(search)
			if cfg.ALFEnabled {
				bs.DependOn(g.ALFJob)
			}
			// Bitstream ordering edges apply in both ALF topologies.
			if cfg.WPP {
				// Per-row coders: chain within the row, and take the
				// row-above edge above-right so bitstream(r, 0) waits
				// for bitstream(r-1, 1) — the CTU whose emission hands
				// the contexts down to row r. A same-column edge would
				// let row r start from slice-init contexts and race
				// the hand-off.
				if c > 0 {
					bs.DependOn(g.Bitstream[r][c-1])
				}
				if r > 0 {
					cAbove := c + 1
					if cAbove >= cfg.Cols {
						cAbove = cfg.Cols - 1
					}
					bs.DependOn(g.Bitstream[r-1][cAbove])
				}
			} else {
				// One shared coder and substream: a strict raster
				// chain is the only order that keeps the single coder
				// single-threaded and the substream in raster order.
				switch {
				case c > 0:
					bs.DependOn(g.Bitstream[r][c-1])
				case r > 0:
					bs.DependOn(g.Bitstream[r-1][cfg.Cols-1])
				}
			}
			g.EmitJob.DependOn(bs)
		}
	}
	if cfg.ALFEnabled {
		for r := 0; r < cfg.Rows; r++ {
			for c := 0; c < cfg.Cols; c++ {
				g.ALFJob.DependOn(g.Search[r][c])
			}
		}
	}
	return g
}

// LinkRef adds the inter-frame edges: search(r, c) depends on ref's
// search(r+D, c+R) where D = reach.Down, R = reach.Right + 1,
// clamped to the reference frame's bounds.
func (g *FrameGraph) LinkRef(ref *FrameGraph, reach MaxInterRefLCU) {
	d := reach.Down
	rr := reach.Right + 1
	for r := 0; r < g.cfg.Rows; r++ {
		for c := 0; c < g.cfg.Cols; c++ {
			depR := r + d
			depC := c + rr
			if depR >= len(ref.Search) {
				depR = len(ref.Search) - 1
			}
			if depC >= len(ref.Search[depR]) {
				depC = len(ref.Search[depR]) - 1
			}
			g.Search[r][c].DependOn(ref.Search[depR][depC])
		}
	}
}

// LinkIRAPPredecessor adds the I-reference hardening edge: when the
// reference is an IRAP with num > 0 and OWF > 1, each search
// also depends on the reference's predecessor frame's same CTU.
func (g *FrameGraph) LinkIRAPPredecessor(pred *FrameGraph) {
	for r := 0; r < g.cfg.Rows; r++ {
		for c := 0; c < g.cfg.Cols; c++ {
			depR, depC := r, c
			if depR >= len(pred.Search) {
				depR = len(pred.Search) - 1
			}
			if depC >= len(pred.Search[depR]) {
				depC = len(pred.Search[depR]) - 1
			}
			g.Search[r][c].DependOn(pred.Search[depR][depC])
		}
	}
}

// LinkOpenGOPPredecessor applies the deadlock-compensation edge:
// under an open GOP with owf > gop_len, every search depends on the
// predecessor frame's
// collocated search. Callers invoke it unconditionally per frame; the
// guard lives here so the rule stays in one place.
func (g *FrameGraph) LinkOpenGOPPredecessor(pred *FrameGraph) {
	if !g.cfg.OpenGOP || g.cfg.OWF <= g.cfg.GOPLen || pred == nil {
		return
	}
	g.LinkIRAPPredecessor(pred)
}

// LinkEmitAfter serializes bitstream output across frames: frame
// N's emit precedes frame N+1's, even though encoding is parallel.
func (g *FrameGraph) LinkEmitAfter(prev *FrameGraph) {
	if prev != nil {
		g.EmitJob.DependOn(prev.EmitJob)
	}
}

// Submit releases every job in the frame for execution. All edges,
// including cross-frame ones, must be in place.
func (g *FrameGraph) Submit() {
	for r := range g.Search {
		for c := range g.Search[r] {
			g.Search[r][c].Submit()
			g.Bitstream[r][c].Submit()
		}
	}
	if g.ALFJob != nil {
		g.ALFJob.Submit()
	}
	g.EmitJob.Submit()
}

// Wait blocks until the frame's emit job has run.
func (g *FrameGraph) Wait() {
	g.EmitJob.Wait()
}
