package ctu

import (
	"github.com/shoalforge/uvgo/internal/kernels"
	"github.com/shoalforge/uvgo/internal/picture"
)

// BoundaryBuffers are the per-tile horizontal/vertical sample
// buffers: one saved row and one saved column per CTU, taken from
// the deblocked-but-not-yet-SAO-filtered reconstruction, so SAO can
// filter across CTU boundaries after the neighbor has already been
// overwritten. Each buffer row spans 1+SAODelayPx+LCUWidth samples:
// one corner sample, the delayed overlap, and the CTU body.
// Exclusively owned by the tile's leaf states; wavefront
// dependencies sequence access.
type BoundaryBuffers struct {
	widthCTUs, heightCTUs int

	hor [][]uint16 // [ctuIndex] bottommost row of the CTU
	ver [][]uint16 // [ctuIndex] rightmost column of the CTU
}

// NewBoundaryBuffers allocates buffers for a tile of widthCTUs x
// heightCTUs CTUs.
func NewBoundaryBuffers(widthCTUs, heightCTUs int) *BoundaryBuffers {
	n := widthCTUs * heightCTUs
	b := &BoundaryBuffers{widthCTUs: widthCTUs, heightCTUs: heightCTUs,
		hor: make([][]uint16, n), ver: make([][]uint16, n)}
	for i := range b.hor {
		b.hor[i] = make([]uint16, 1+SAODelayPx+LCUWidth)
		b.ver[i] = make([]uint16, 1+SAODelayPx+LCUWidth)
	}
	return b
}

// Save snapshots el's bottommost row and rightmost column from plane
// into the tile buffers, the pre-SAO snapshot. The extra
// leading sample holds the corner; the trailing SAODelayPx samples
// hold the overlap into the next CTU when it exists.
func (b *BoundaryBuffers) Save(el *OrderElement, plane *picture.Plane) {
	i := el.Y*b.widthCTUs + el.X

	lastRow := el.PxY + el.PxH - 1
	x0 := el.PxX - 1
	hor := b.hor[i]
	for k := range hor {
		x := x0 + k
		if x < 0 {
			x = 0
		}
		if x >= plane.Width {
			x = plane.Width - 1
		}
		hor[k] = plane.At(x, lastRow)
	}

	lastCol := el.PxX + el.PxW - 1
	y0 := el.PxY - 1
	ver := b.ver[i]
	for k := range ver {
		y := y0 + k
		if y < 0 {
			y = 0
		}
		if y >= plane.Height {
			y = plane.Height - 1
		}
		ver[k] = plane.At(lastCol, y)
	}
}

// Hor returns the saved bottom-row buffer of the CTU at (x, y).
func (b *BoundaryBuffers) Hor(x, y int) []uint16 { return b.hor[y*b.widthCTUs+x] }

// Ver returns the saved right-column buffer of the CTU at (x, y).
func (b *BoundaryBuffers) Ver(x, y int) []uint16 { return b.ver[y*b.widthCTUs+x] }

// saoRegion is one of the four subregions a CTU filters: its own
// interior plus the deferred strips of the upper-left, upper, and
// left neighbors.
type saoRegion struct {
	x, y, w, h int
	params     kernels.SAOParams
}

// saoRegions computes the four filter rectangles for el, honoring the
// deferral rule: each CTU filters from SAODelayPx inside its
// neighbors above/left up to SAODelayPx short of its own bottom/right
// edge, and the deferred strip is filtered in place at the frame
// edge. paramsAt returns the SAO parameters chosen for the CTU that
// owns a given region.
func saoRegions(el *OrderElement, frameW, frameH int, paramsAt func(x, y int) kernels.SAOParams) []saoRegion {
	// Filtered extent of this CTU's pass.
	x0 := el.PxX - SAODelayPx
	y0 := el.PxY - SAODelayPx
	if el.PxX == 0 {
		x0 = 0
	}
	if el.PxY == 0 {
		y0 = 0
	}
	x1 := el.PxX + el.PxW - SAODelayPx
	y1 := el.PxY + el.PxH - SAODelayPx
	if el.PxX+el.PxW >= frameW {
		x1 = frameW // frame edge: deferred columns filtered in place
	}
	if el.PxY+el.PxH >= frameH {
		y1 = frameH
	}

	self := paramsAt(el.X, el.Y)
	var regions []saoRegion
	add := func(rx0, ry0, rx1, ry1 int, p kernels.SAOParams) {
		if rx1 > rx0 && ry1 > ry0 {
			regions = append(regions, saoRegion{x: rx0, y: ry0, w: rx1 - rx0, h: ry1 - ry0, params: p})
		}
	}

	// Upper-left corner, upper strip, left strip: deferred regions of
	// the three already-completed neighbors, filtered with their own
	// parameters.
	if el.Above != nil && el.Left != nil {
		add(x0, y0, el.PxX, el.PxY, paramsAt(el.X-1, el.Y-1))
	}
	if el.Above != nil {
		lx := el.PxX
		if el.Left == nil {
			lx = x0
		}
		add(lx, y0, x1, el.PxY, paramsAt(el.X, el.Y-1))
	}
	if el.Left != nil {
		ty := el.PxY
		if el.Above == nil {
			ty = y0
		}
		add(x0, ty, el.PxX, y1, paramsAt(el.X-1, el.Y))
	}
	// Self interior.
	sx, sy := el.PxX, el.PxY
	if el.Left == nil {
		sx = x0
	}
	if el.Above == nil {
		sy = y0
	}
	add(sx, sy, x1, y1, self)
	return regions
}

// ReconstructSAO runs the SAO apply pass for el over plane, filtering
// the four subregions with the saved neighbor boundaries already in
// the tile buffers.
func ReconstructSAO(px kernels.Pixel, el *OrderElement, plane *picture.Plane, frameW, frameH int, paramsAt func(x, y int) kernels.SAOParams) {
	for _, r := range saoRegions(el, frameW, frameH, paramsAt) {
		if r.params.Type == kernels.SAOOff {
			continue
		}
		px.ApplySAO(plane.Data, plane.Stride, r.x, r.y, r.w, r.h, r.params)
	}
}
