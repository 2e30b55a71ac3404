package motion

import (
	"encoding/binary"
	"hash/crc32"
)

// IBCBufferWidth is the rolling-window width (in luma pixels) of the
// intra-block-copy reference area to the left of the current CTU. The
// hash map never returns hits outside this window.
const IBCBufferWidth = 256

// IBCHashBlockSize is the luma granularity of the hash map: one
// CRC32C entry per 8x8 luma block (plus two 4x4 chroma hashes when
// the picture is not monochrome).
const IBCHashBlockSize = 8

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// IBCPos is the pixel position of a previously-coded hashed block.
type IBCPos struct {
	X, Y int
}

// IBCHashMap is the per-CTU-row hash map: inserts happen as each
// CTU's source is hashed at the head of its search job, queries
// happen during that row's searches only, so the map needs no
// locking.
type IBCHashMap struct {
	hits map[uint64][]IBCPos
}

// NewIBCHashMap returns an empty map.
func NewIBCHashMap() *IBCHashMap {
	return &IBCHashMap{hits: make(map[uint64][]IBCPos)}
}

func crcSamples(block []uint16, stride, w, h int) uint32 {
	var row [2 * 64]byte
	crc := uint32(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			binary.LittleEndian.PutUint16(row[2*x:], block[y*stride+x])
		}
		crc = crc32.Update(crc, crc32cTable, row[:2*w])
	}
	return crc
}

// HashBlock computes the combined key for one 8x8 luma block and, when
// chroma planes are supplied (nil for monochrome), its two co-located
// 4x4 chroma blocks. The luma CRC occupies the high 32 bits; the two
// chroma CRCs are folded into the low 32.
func HashBlock(luma []uint16, lumaStride int, cb, cr []uint16, chromaStride int) uint64 {
	key := uint64(crcSamples(luma, lumaStride, IBCHashBlockSize, IBCHashBlockSize)) << 32
	if cb != nil && cr != nil {
		key |= uint64(crcSamples(cb, chromaStride, 4, 4) ^ crcSamples(cr, chromaStride, 4, 4))
	}
	return key
}

// Insert records pos as a coded occurrence of the hashed block.
func (m *IBCHashMap) Insert(key uint64, pos IBCPos) {
	m.hits[key] = append(m.hits[key], pos)
}

// Hits returns the recorded positions for key that still lie within
// the rolling window ending at curX: candidates must satisfy
// pos.X >= curX - IBCBufferWidth. The returned slice aliases internal
// storage only when no filtering was needed.
func (m *IBCHashMap) Hits(key uint64, curX int) []IBCPos {
	all := m.hits[key]
	minX := curX - IBCBufferWidth
	if minX <= 0 {
		return all
	}
	out := make([]IBCPos, 0, len(all))
	for _, p := range all {
		if p.X >= minX {
			out = append(out, p)
		}
	}
	return out
}

// ShiftWindow drops every entry whose position has fallen out of the
// rolling window ending at curX, the shift-left buffer update run
// when a CTU crosses the window boundary.
func (m *IBCHashMap) ShiftWindow(curX int) {
	minX := curX - IBCBufferWidth
	for key, positions := range m.hits {
		kept := positions[:0]
		for _, p := range positions {
			if p.X >= minX {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(m.hits, key)
			continue
		}
		m.hits[key] = kept
	}
}

// IBCPlane is the minimal source-plane access the hasher needs.
type IBCPlane struct {
	Data   []uint16
	Stride int
}

// blockAt slices the w-agnostic block starting at (x, y).
func (p IBCPlane) blockAt(x, y int) []uint16 {
	return p.Data[y*p.Stride+x:]
}

// InsertCTU hashes every aligned 8x8 luma block of the CTU at pixel
// rectangle (ctuX, ctuY, w, h) into the map, the pipeline's "IBC
// hashing of the source CTU into the row's hash map" step. cb/cr may
// be nil for monochrome; chroma coordinates assume 4:2:0 (halved).
func (m *IBCHashMap) InsertCTU(luma IBCPlane, cb, cr IBCPlane, ctuX, ctuY, w, h int) {
	for y := 0; y+IBCHashBlockSize <= h; y += IBCHashBlockSize {
		for x := 0; x+IBCHashBlockSize <= w; x += IBCHashBlockSize {
			px, py := ctuX+x, ctuY+y
			var cbBlock, crBlock []uint16
			chromaStride := 0
			if cb.Data != nil && cr.Data != nil {
				cbBlock = cb.blockAt(px/2, py/2)
				crBlock = cr.blockAt(px/2, py/2)
				chromaStride = cb.Stride
			}
			key := HashBlock(luma.blockAt(px, py), luma.Stride, cbBlock, crBlock, chromaStride)
			m.Insert(key, IBCPos{X: px, Y: py})
		}
	}
}

// IBCSearch looks up IBC candidates for the w x h block at (x, y):
// for each hash hit of the block's top-left 8x8 tile inside the
// rolling window, it verifies that every remaining 8x8 tile of the
// block hashes to the same value as the correspondingly-offset tile
// at the candidate position (the "block-contiguous hash match"
// acceptance rule) before emitting the candidate MV. MVs are returned
// in quarter-pel units. Only candidates strictly above-or-left of the
// current block qualify — IBC references previously-coded samples of
// the current picture.
func IBCSearch(m *IBCHashMap, luma IBCPlane, cb, cr IBCPlane, x, y, w, h int) []MV {
	chromaStride := 0
	hashAt := func(px, py int) uint64 {
		var cbBlock, crBlock []uint16
		if cb.Data != nil && cr.Data != nil {
			cbBlock = cb.blockAt(px/2, py/2)
			crBlock = cr.blockAt(px/2, py/2)
			chromaStride = cb.Stride
		}
		return HashBlock(luma.blockAt(px, py), luma.Stride, cbBlock, crBlock, chromaStride)
	}

	anchor := hashAt(x, y)
	var out []MV
	for _, pos := range m.Hits(anchor, x) {
		if pos.Y > y || (pos.Y == y && pos.X >= x) {
			continue
		}
		match := true
		for ty := 0; ty+IBCHashBlockSize <= h && match; ty += IBCHashBlockSize {
			for tx := 0; tx+IBCHashBlockSize <= w; tx += IBCHashBlockSize {
				if tx == 0 && ty == 0 {
					continue
				}
				if hashAt(pos.X+tx, pos.Y+ty) != hashAt(x+tx, y+ty) {
					match = false
					break
				}
			}
		}
		if match {
			out = append(out, MV{X: int32(pos.X-x) << 2, Y: int32(pos.Y-y) << 2})
		}
	}
	return out
}
