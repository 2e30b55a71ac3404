package ctu

import "github.com/shoalforge/uvgo/internal/cuarray"

// QGLog2Size is the quantization-group edge length as log2 pixels: a
// 16x16 region shares one coded QP.
const QGLog2Size = 4

// qgCells is the QG edge in 4x4 grid cells.
const qgCells = 1 << (QGLog2Size - 2)

// PropagateQP walks one CTU's region of the CU-grid after search:
// within each quantization group, the first CU (in raster
// cell order) with any CBF bit set anchors the coded QP; every
// earlier CU in the group inherits the predicted QP
// (qp_left + qp_above + 1) >> 1, where a missing left/above neighbor
// falls back to the QP carried from the previous group (lastQP for
// the first). Returns the QP to carry forward as the next CTU's
// lastQP: the QP of the last group walked, its anchor QP or, when it
// coded no residual, its predicted QP (lastQP unchanged when nothing
// in the CTU coded a residual).
func PropagateQP(view cuarray.View, lastQP int8) int8 {
	r := view.Rect()
	carry := lastQP

	for qy := 0; qy < r.H; qy += qgCells {
		for qx := 0; qx < r.W; qx += qgCells {
			qw := min(qgCells, r.W-qx)
			qh := min(qgCells, r.H-qy)

			pred := predictQP(view, qx, qy, carry)

			// Locate the anchor: first cell with a CBF bit set.
			anchorX, anchorY := -1, -1
			for y := qy; y < qy+qh && anchorY < 0; y++ {
				for x := qx; x < qx+qw; x++ {
					if view.At(x, y).CBF != 0 {
						anchorX, anchorY = x, y
						break
					}
				}
			}

			if anchorY < 0 {
				// No residual anywhere in the group: every CU takes
				// the predicted QP and nothing is coded.
				setQPRange(view, qx, qy, qw, qh, pred)
				carry = pred
				continue
			}

			anchorQP := view.At(anchorX, anchorY).QP
			// Cells before the anchor (raster order within the group)
			// inherit the prediction; the anchor and everything after
			// share the coded QP.
			for y := qy; y < qy+qh; y++ {
				for x := qx; x < qx+qw; x++ {
					c := view.At(x, y)
					if y < anchorY || (y == anchorY && x < anchorX) {
						c.QP = pred
					} else {
						c.QP = anchorQP
					}
					view.Set(x, y, c)
				}
			}
			carry = anchorQP
		}
	}
	return carry
}

// predictQP forms the QG's predicted QP from the left and above
// neighbors inside the CTU view, substituting fallback where a
// neighbor row/column does not exist.
func predictQP(view cuarray.View, qx, qy int, fallback int8) int8 {
	left, above := fallback, fallback
	if qx > 0 {
		left = view.At(qx-1, qy).QP
	}
	if qy > 0 {
		above = view.At(qx, qy-1).QP
	}
	return int8((int(left) + int(above) + 1) >> 1)
}

func setQPRange(view cuarray.View, x0, y0, w, h int, qp int8) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			c := view.At(x, y)
			c.QP = qp
			view.Set(x, y, c)
		}
	}
}
