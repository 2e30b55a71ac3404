package ctu

// LCUWidth is the coding-tree-unit edge length in luma pixels.
const LCUWidth = 64

// SAODelayPx is how far SAO may reach past the nominal CTU edge into
// the following CTU.
const SAODelayPx = 4

// DeblockDelayPx is the deblocking filter's reach past the CTU edge,
// a component of the MV-constraint margin.
const DeblockDelayPx = 4

// OrderElement is one CTU's position in the frame's encode order:
// raster index, pixel position, neighbor links (nil at the frame or
// tile edge), the CTU's coefficient buffer, and a back-pointer to
// the leaf state that owns its row. An explicit per-CTU record is
// needed because the wavefront scheduler visits CTUs out of raster
// order.
type OrderElement struct {
	Index      int // raster index within the tile
	X, Y       int // CTU coordinates
	PxX, PxY   int // pixel position of the CTU's top-left corner
	PxW, PxH   int // CTU extent, clipped at the frame edge

	Above, Left, Below, Right *OrderElement

	// Coeff is allocated at search start and freed after the CTU's
	// bitstream job. Layout: luma plane
	// followed by the two chroma planes.
	Coeff []int32

	Owner *LeafState
}

// BuildOrder lays out the CTU grid for a tile of widthCTUs x
// heightCTUs CTUs whose top-left corner sits at (pxX0, pxY0) in a
// frame of pxW x pxH pixels, linking the four neighbor pointers.
func BuildOrder(widthCTUs, heightCTUs, pxX0, pxY0, pxW, pxH int) []OrderElement {
	order := make([]OrderElement, widthCTUs*heightCTUs)
	for y := 0; y < heightCTUs; y++ {
		for x := 0; x < widthCTUs; x++ {
			i := y*widthCTUs + x
			el := &order[i]
			el.Index = i
			el.X, el.Y = x, y
			el.PxX = pxX0 + x*LCUWidth
			el.PxY = pxY0 + y*LCUWidth
			el.PxW = min(LCUWidth, pxW-el.PxX)
			el.PxH = min(LCUWidth, pxH-el.PxY)
			if x > 0 {
				el.Left = &order[i-1]
				order[i-1].Right = el
			}
			if y > 0 {
				el.Above = &order[i-widthCTUs]
				order[i-widthCTUs].Below = el
			}
		}
	}
	return order
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
