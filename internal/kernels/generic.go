package kernels

// genericPixel is the single always-available Pixel back-end. It
// favors clarity over speed — real SIMD back-ends live outside this
// module — but implements every operation the CTU pipeline and
// motion search actually call, unlike a stub that would panic
// mid-search.
type genericPixel struct{}

func init() {
	Register(Strategy{Name: "generic", Pixel: genericPixel{}})
}

// Default is the generic Pixel back-end, usable directly by callers
// that don't need Strategy's name-based lookup.
var Default Pixel = genericPixel{}

func (genericPixel) Blit(dst []uint16, dstStride int, src []uint16, srcStride int, w, h int) {
	for y := 0; y < h; y++ {
		copy(dst[y*dstStride:y*dstStride+w], src[y*srcStride:y*srcStride+w])
	}
}

func (genericPixel) SAD(a []uint16, aStride int, b []uint16, bStride int, w, h int) int64 {
	var sum int64
	for y := 0; y < h; y++ {
		ar := a[y*aStride : y*aStride+w]
		br := b[y*bStride : y*bStride+w]
		for x := 0; x < w; x++ {
			d := int32(ar[x]) - int32(br[x])
			if d < 0 {
				d = -d
			}
			sum += int64(d)
		}
	}
	return sum
}

// SATD applies a separable 4x4 Hadamard transform over the residual
// and sums absolute coefficients, the standard cheap SATD
// approximation used for fractional-pel and bipred cost (actual
// precision requirements for the real kernel are out of scope; this
// generic implementation only needs to order candidates consistently
// for the module's own search logic to be testable).
func (genericPixel) SATD(a []uint16, aStride int, b []uint16, bStride int, w, h int) int64 {
	var total int64
	for by := 0; by < h; by += 4 {
		for bx := 0; bx < w; bx += 4 {
			var diff [4][4]int32
			for y := 0; y < 4 && by+y < h; y++ {
				ar := a[(by+y)*aStride+bx:]
				br := b[(by+y)*bStride+bx:]
				for x := 0; x < 4 && bx+x < w; x++ {
					diff[y][x] = int32(ar[x]) - int32(br[x])
				}
			}
			hadamard4x4(&diff)
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					v := diff[y][x]
					if v < 0 {
						v = -v
					}
					total += int64(v)
				}
			}
		}
	}
	return (total + 2) / 4
}

func hadamard4x4(b *[4][4]int32) {
	// Rows.
	for y := 0; y < 4; y++ {
		a0, a1, a2, a3 := b[y][0], b[y][1], b[y][2], b[y][3]
		b[y][0] = a0 + a1 + a2 + a3
		b[y][1] = a0 + a1 - a2 - a3
		b[y][2] = a0 - a1 - a2 + a3
		b[y][3] = a0 - a1 + a2 - a3
	}
	// Columns.
	for x := 0; x < 4; x++ {
		a0, a1, a2, a3 := b[0][x], b[1][x], b[2][x], b[3][x]
		b[0][x] = a0 + a1 + a2 + a3
		b[1][x] = a0 + a1 - a2 - a3
		b[2][x] = a0 - a1 - a2 + a3
		b[3][x] = a0 - a1 + a2 - a3
	}
}

// quantScale mirrors the HEVC/VVC QP-to-scale relationship
// (multiplicative step doubling every 6 QP steps) without replicating
// the real coefficient-level quant tables, which belong to the
// external reconstruction kernel.
func quantScale(qp int) int32 {
	base := [6]int32{40, 45, 51, 57, 64, 72}
	shift := qp / 6
	step := base[qp%6]
	return step << uint(shift)
}

func (genericPixel) TransformQuant(residual []int32, w, h, qp int, coeffsOut []int32) int {
	scale := quantScale(qp)
	nz := 0
	for i := 0; i < w*h; i++ {
		c := residual[i] * 16 / scale
		coeffsOut[i] = c
		if c != 0 {
			nz++
		}
	}
	return nz
}

func (genericPixel) InverseTransformDequant(coeffs []int32, w, h, qp int, residualOut []int32) {
	scale := quantScale(qp)
	for i := 0; i < w*h; i++ {
		residualOut[i] = coeffs[i] * scale / 16
	}
}

// Interpolate applies a separable bilinear fractional-pel filter.
// fracX/fracY are in eighth-pel units [0,7]; callers needing the real
// 8-tap VVC interpolation filter (supplied externally) would replace
// this back-end, not this interface.
func (genericPixel) Interpolate(dst []uint16, dstStride int, ref []uint16, refStride int, w, h int, fracX, fracY int) {
	if fracX == 0 && fracY == 0 {
		genericPixel{}.Blit(dst, dstStride, ref, refStride, w, h)
		return
	}
	wx := int32(fracX)
	wy := int32(fracY)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p00 := int32(ref[y*refStride+x])
			p01 := int32(ref[y*refStride+x+1])
			p10 := int32(ref[(y+1)*refStride+x])
			p11 := int32(ref[(y+1)*refStride+x+1])
			top := p00*(8-wx) + p01*wx
			bot := p10*(8-wx) + p11*wx
			v := (top*(8-wy) + bot*wy + 32) >> 6
			dst[y*dstStride+x] = uint16(v)
		}
	}
}

func (genericPixel) ApplySAO(plane []uint16, stride, x, y, w, h int, params SAOParams) {
	if params.Type == SAOOff {
		return
	}
	off := params.Offset[params.Class%4]
	for j := 0; j < h; j++ {
		row := (y+j)*stride + x
		for i := 0; i < w; i++ {
			v := int32(plane[row+i]) + off
			plane[row+i] = clampSample(v)
		}
	}
}

func (genericPixel) ApplyDeblock(plane []uint16, stride, x, y, w, h int, strength int) {
	if strength <= 0 {
		return
	}
	// Simple symmetric smoothing across the boundary column at x,
	// standing in for the real multi-tap deblock filter (out of
	// scope here): blend the two columns straddling the edge.
	for j := 0; j < h; j++ {
		row := (y + j) * stride
		if x == 0 || x >= stride {
			continue
		}
		left := int32(plane[row+x-1])
		right := int32(plane[row+x])
		delta := (right - left) * int32(strength) / 8
		plane[row+x-1] = clampSample(left + delta)
		plane[row+x] = clampSample(right - delta)
	}
}

func (genericPixel) ApplyALF(plane []uint16, stride, x, y, w, h int, classMap []uint8, coeffs [][]int32) {
	if len(coeffs) == 0 {
		return
	}
	for j := 0; j < h; j++ {
		row := (y+j)*stride + x
		for i := 0; i < w; i++ {
			class := 0
			if classMap != nil {
				idx := j*w + i
				if idx < len(classMap) {
					class = int(classMap[idx]) % len(coeffs)
				}
			}
			tap := coeffs[class]
			if len(tap) == 0 {
				continue
			}
			center := int32(plane[row+i])
			v := center + tap[0]
			plane[row+i] = clampSample(v)
		}
	}
}

func clampSample(v int32) uint16 {
	if v < 0 {
		return 0
	}
	if v > 1023 {
		return 1023
	}
	return uint16(v)
}
