// Package cuarray implements the dense 4x4 coding-unit grid: one
// record per smallest-CU cell, with sub-array views over a rectangle
// that mutate the parent grid by construction rather than through
// raw pointer aliasing.
package cuarray

// Mode is the prediction mode recorded per CU.
type Mode int

const (
	ModeIntra Mode = iota
	ModeInter
	ModeIBC
	ModeSkip
)

// MV is a single motion vector in quarter/eighth-pel units depending
// on profile; the grid itself is unit-agnostic.
type MV struct {
	X, Y int32
}

// DirMask bit-flags which reference-list directions are active for a
// CU's motion.
type DirMask uint8

const (
	DirL0 DirMask = 1 << iota
	DirL1
)

// Cell is one 4x4 smallest-CU record. Every 4x4 cell inside the
// bounding box of a coded CU holds an identical copy of that CU's
// Cell value.
type Cell struct {
	Log2Width, Log2Height uint8
	Mode                  Mode

	IntraLuma, IntraChroma uint8

	MV        [2]MV // per reference list
	RefIdx    [2]int8
	Dir       DirMask

	CBF          uint8 // per-plane coded-block-flag bits
	TrSkip       uint8 // per-plane transform-skip flags
	JointCbCr    bool

	QP int8

	MergeIdx int8
	CandIdx  int8
}

// Rect is a 4x4-grid-unit rectangle: X, Y, W, H are all in units of
// 4x4 cells, not pixels.
type Rect struct {
	X, Y, W, H int
}

// Grid is the CU-grid for one picture, addressed in 4x4-cell units.
// WidthCells/HeightCells are ceil(picture_width/4), ceil(picture_height/4).
type Grid struct {
	cells                  []Cell
	WidthCells, HeightCells int
}

// New allocates a Grid sized for a picture of pixWidth x pixHeight.
func New(pixWidth, pixHeight int) *Grid {
	wc := (pixWidth + 3) / 4
	hc := (pixHeight + 3) / 4
	return &Grid{
		cells:       make([]Cell, wc*hc),
		WidthCells:  wc,
		HeightCells: hc,
	}
}

func (g *Grid) index(x, y int) int { return y*g.WidthCells + x }

// At returns the cell at 4x4-grid coordinates (x, y).
func (g *Grid) At(x, y int) Cell { return g.cells[g.index(x, y)] }

// Set writes the cell at 4x4-grid coordinates (x, y).
func (g *Grid) Set(x, y int, c Cell) { g.cells[g.index(x, y)] = c }

// FillRect writes c into every cell inside r, establishing the
// "identical copy per 4x4 cell" invariant for a CU whose bounding box
// is r.
func (g *Grid) FillRect(r Rect, c Cell) {
	for y := r.Y; y < r.Y+r.H; y++ {
		row := g.index(r.X, y)
		for x := 0; x < r.W; x++ {
			g.cells[row+x] = c
		}
	}
}

// View is a logical rectangle over a Grid. Reads and writes through a
// View address the parent Grid's backing storage directly — View
// holds no cell data of its own — so a mutation through a sub-View is
// visible in the parent and in any other View that overlaps it.
type View struct {
	grid *Grid
	rect Rect
}

// NewView creates a View over r within g. r must lie within g's
// bounds; callers (the RDO search and CTU pipeline) are expected to
// derive r from the CTU/CU geometry, which is always in-bounds by
// construction.
func NewView(g *Grid, r Rect) View {
	return View{grid: g, rect: r}
}

// Rect returns the view's rectangle in parent grid-cell coordinates.
func (v View) Rect() Rect { return v.rect }

// At returns the cell at view-local coordinates (x, y).
func (v View) At(x, y int) Cell {
	return v.grid.At(v.rect.X+x, v.rect.Y+y)
}

// Set writes the cell at view-local coordinates (x, y), mutating the
// parent grid in place.
func (v View) Set(x, y int, c Cell) {
	v.grid.Set(v.rect.X+x, v.rect.Y+y, c)
}

// FillAll writes c into every cell of the view's rectangle.
func (v View) FillAll(c Cell) {
	v.grid.FillRect(v.rect, c)
}

// Sub derives a narrower View over a rectangle relative to this
// view's origin; composing views this way (rather than copying cells)
// is what makes writes through nested sub-views compose back to the
// root Grid.
func (v View) Sub(r Rect) View {
	return View{
		grid: v.grid,
		rect: Rect{X: v.rect.X + r.X, Y: v.rect.Y + r.Y, W: r.W, H: r.H},
	}
}

// AllIdenticalInRect reports whether every cell inside r holds an
// equal Cell value, the per-CU replication invariant.
func (g *Grid) AllIdenticalInRect(r Rect) bool {
	if r.W == 0 || r.H == 0 {
		return true
	}
	want := g.At(r.X, r.Y)
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			if g.At(x, y) != want {
				return false
			}
		}
	}
	return true
}
