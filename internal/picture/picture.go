// Package picture implements the immutable-source / mutable-recon
// plane triple of one frame, for arbitrary width/height and
// 4:2:0/4:4:4 chroma subsampling at 8-10 bits.
package picture

// ChromaFormat names the subsampling of a Picture's chroma planes.
type ChromaFormat int

const (
	Chroma420 ChromaFormat = iota
	Chroma444
)

// Plane is one 2D sample array with an explicit stride, so sub-blocks
// can be addressed without a copy.
type Plane struct {
	Data   []uint16 // 8-10 bit samples stored widened to 16 bits
	Width  int
	Height int
	Stride int
}

// At returns the sample at (x, y).
func (p *Plane) At(x, y int) uint16 {
	return p.Data[y*p.Stride+x]
}

// Set writes the sample at (x, y).
func (p *Plane) Set(x, y int, v uint16) {
	p.Data[y*p.Stride+x] = v
}

// Sub returns a Plane that aliases a rectangular region of p without
// copying. Mutation through the sub-plane is visible in p, since both
// share the same backing Data slice and this Plane's Stride still
// reflects p's original row length.
func (p *Plane) Sub(x, y, w, h int) Plane {
	return Plane{
		Data:   p.Data[y*p.Stride+x:],
		Width:  w,
		Height: h,
		Stride: p.Stride,
	}
}

// Triple groups the Y, U, V planes of one picture state (source or
// reconstructed).
type Triple struct {
	Y, U, V Plane
}

// Picture is one input/output frame: an immutable source plane triple
// (plus, when LMCS is enabled, a tone-mapped mirror), a mutable
// reconstructed plane triple mirroring the source geometry, and
// bookkeeping shared with the reference list and frame controller.
//
// A sub-picture (e.g. a tile's view) aliases its parent's planes and
// sets Owned=false so release logic never frees shared backing
// storage twice.
type Picture struct {
	Width, Height int
	Chroma        ChromaFormat
	BitDepth      int // 8, 9, or 10

	Source Triple
	Recon  Triple

	// LMCSMapped holds the luma-mapped source mirror when lmcs_enable
	// is set; nil otherwise.
	LMCSMapped *Plane

	POC  int64
	PTS  int64
	Refs int32 // reference count; see reflist.List for release rules

	Owned bool
}

// New allocates a Picture with freshly-owned source and recon planes
// sized for (width, height, chroma, bitDepth).
func New(width, height int, chroma ChromaFormat, bitDepth int) *Picture {
	p := &Picture{
		Width:    width,
		Height:   height,
		Chroma:   chroma,
		BitDepth: bitDepth,
		Owned:    true,
	}
	p.Source = newTriple(width, height, chroma)
	p.Recon = newTriple(width, height, chroma)
	return p
}

func newTriple(w, h int, chroma ChromaFormat) Triple {
	cw, ch := w, h
	if chroma == Chroma420 {
		cw, ch = (w+1)/2, (h+1)/2
	}
	return Triple{
		Y: Plane{Data: make([]uint16, w*h), Width: w, Height: h, Stride: w},
		U: Plane{Data: make([]uint16, cw*ch), Width: cw, Height: ch, Stride: cw},
		V: Plane{Data: make([]uint16, cw*ch), Width: cw, Height: ch, Stride: cw},
	}
}

// AddRef increments the picture's reference count. Called by the
// reference list when the picture enters an L0/L1 list.
func (p *Picture) AddRef() { p.Refs++ }

// Release decrements the reference count and reports whether the
// picture has no remaining referrers and may be returned to the
// output queue / freed.
func (p *Picture) Release() bool {
	p.Refs--
	return p.Refs <= 0
}
