// Package bitio also implements the CABAC (context-adaptive binary
// arithmetic coding) engine that rides on top of the bitstream Writer.
//
// The state machine is the HEVC/VVC reference coder: carry-chain
// buffering in low/range/bitsLeft, a 6-bit-state + MPS-flag context
// byte, and regular/bypass/terminating/truncated-binary/Exp-Golomb
// binarizations.
package bitio

// NumContexts is the size of the context model array carried by a
// CABAC state (one leaf encoder state per WPP row or per tile).
const NumContexts = 188

// renormTable maps lps>>3 (0..31) to the number of bits to shift low
// and range by when the LPS path is taken.
var renormTable = [32]uint8{
	6, 5, 4, 4, 3, 3, 3, 3, 2, 2, 2, 2, 2, 2, 2, 2,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
}

// lpsTable is indexed by [state][range>>6 & 3] and gives the LPS
// range value, the standard 64-state VVC/HEVC table.
var lpsTable = [64][4]uint8{
	{128, 176, 208, 240}, {128, 167, 197, 227}, {128, 158, 187, 216}, {123, 150, 178, 205},
	{116, 142, 169, 195}, {111, 135, 160, 185}, {105, 128, 152, 175}, {100, 122, 144, 166},
	{95, 116, 137, 158}, {90, 110, 130, 150}, {85, 104, 123, 142}, {81, 99, 117, 135},
	{77, 94, 111, 128}, {73, 89, 105, 122}, {69, 85, 100, 116}, {66, 80, 95, 110},
	{62, 76, 90, 104}, {59, 72, 86, 99}, {56, 69, 81, 94}, {53, 65, 77, 89},
	{51, 62, 73, 85}, {48, 59, 69, 80}, {46, 56, 66, 76}, {43, 53, 63, 72},
	{41, 50, 59, 69}, {39, 48, 56, 65}, {37, 45, 54, 62}, {35, 43, 51, 59},
	{33, 41, 48, 56}, {32, 39, 46, 53}, {30, 37, 43, 50}, {29, 35, 41, 48},
	{27, 33, 39, 45}, {26, 31, 37, 43}, {24, 30, 35, 41}, {23, 28, 33, 39},
	{22, 27, 32, 37}, {21, 26, 30, 35}, {20, 24, 29, 33}, {19, 23, 27, 31},
	{18, 22, 26, 30}, {17, 21, 25, 28}, {16, 20, 23, 27}, {15, 19, 22, 25},
	{14, 18, 21, 24}, {14, 17, 20, 23}, {13, 16, 19, 22}, {12, 15, 18, 21},
	{12, 14, 17, 20}, {11, 14, 16, 19}, {11, 13, 15, 18}, {10, 12, 15, 17},
	{10, 12, 14, 16}, {9, 11, 13, 15}, {9, 11, 12, 14}, {8, 10, 12, 14},
	{8, 9, 11, 13}, {7, 9, 11, 12}, {7, 9, 10, 12}, {7, 8, 10, 11},
	{6, 8, 9, 11}, {6, 7, 9, 10}, {6, 7, 8, 9}, {2, 2, 2, 2},
}

// transIdxLPS and transIdxMPS are the standard VVC/HEVC state
// transition tables: next state on an LPS or MPS decision.
var transIdxLPS = [64]uint8{
	0, 0, 1, 2, 2, 4, 4, 5, 6, 7, 8, 9, 9, 11, 11, 12,
	13, 13, 15, 15, 16, 16, 18, 18, 19, 19, 21, 21, 22, 22, 23, 24,
	24, 25, 26, 26, 27, 27, 28, 29, 29, 30, 30, 30, 31, 32, 32, 33,
	33, 33, 34, 34, 35, 35, 35, 36, 36, 36, 37, 37, 37, 38, 38, 63,
}

var transIdxMPS = [64]uint8{
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
	17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32,
	33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48,
	49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 62, 63,
}

// tbMax is the truncated-binary "thresh" parameter,
// floor(log2(max_value)): a 257-entry lookup for small max_value,
// generalized above that with a loop.
var tbMax = [257]uint8{
	0, 0, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 8,
}

// CtxID identifies one of the 188 context models maintained by a
// CABAC state. Concrete enumerations (split flags, CBF, merge flag,
// ...) live in the ctu package; this package only needs the raw
// index space.
type CtxID int

// Context is a single context model: a 6-bit state index and an MPS
// bit, one byte of information in total, but represented
// as two struct fields instead of bit-packed so cloning for
// speculative RDO never needs to unpack.
type Context struct {
	State uint8
	MPS   uint8
}

// Sink is the capability a CABAC state writes bits to: either a real
// bitstream Writer (emit) or a pure bit counter (simulation). Unifying
// emit and only-count under one interface leaves finish() with no
// `only_count` branch; write() still checks for a CountingSink and,
// for one, only tallies the flushed byte in numBufferedByte.
type Sink interface {
	PutByte(b byte) error
	Put(value uint32, n int)
	Tell() int
}

// CountingSink implements Sink without ever holding bytes; used by the
// ALF-gated "only_count" simulation pass. Tell reports only the bits
// pushed to the sink, which for a counting coder happens in Finish;
// bins coded since the last Finish are not included.
type CountingSink struct {
	bits int
}

func (c *CountingSink) PutByte(b byte) error { c.bits += 8; return nil }
func (c *CountingSink) Put(value uint32, n int) {
	c.bits += n
}
func (c *CountingSink) Tell() int { return c.bits }

// Encoder is the per-leaf-state CABAC arithmetic coder: one per
// WPP-row or per-tile encoder state, reset per slice, cloned for
// speculative RDO forks and simulation passes.
type Encoder struct {
	low             uint32
	rng             uint32
	bitsLeft        int
	numBufferedByte int
	bufferedByte    uint8

	contexts [NumContexts]Context
	curCtx   CtxID

	update bool // whether encode_bin updates the context model
	sink   Sink
}

// NewEncoder creates a CABAC encoder writing to sink, with context
// updating on; SetUpdate turns it off for RDO cost-estimation forks
// that must not mutate the canonical context set.
func NewEncoder(sink Sink) *Encoder {
	e := &Encoder{update: true}
	e.Start(sink)
	return e
}

// Start (re)initializes the coder state for a new slice/tile/row:
// low=0, range=510, bits_left=23, no buffered byte.
func (e *Encoder) Start(sink Sink) {
	e.low = 0
	e.rng = 510
	e.bitsLeft = 23
	e.numBufferedByte = 0
	e.bufferedByte = 0xff
	e.sink = sink
}

// OnlyCounting reports whether this coder is writing to a CountingSink
// (the ALF-gated simulation path).
func (e *Encoder) OnlyCounting() bool {
	_, ok := e.sink.(*CountingSink)
	return ok
}

// SetUpdate toggles whether encode_bin updates context state.
func (e *Encoder) SetUpdate(update bool) { e.update = update }

// SetCtx selects the current context model. Holding an index rather
// than a pointer keeps clones of the coder free of aliasing into the
// original's context array.
func (e *Encoder) SetCtx(id CtxID) { e.curCtx = id }

// Ctx returns the context model at id.
func (e *Encoder) Ctx(id CtxID) Context { return e.contexts[id] }

// SetCtxState installs ctx at id directly (used by context-table
// initialization at slice start).
func (e *Encoder) SetCtxState(id CtxID, ctx Context) { e.contexts[id] = ctx }

// CopyContexts replaces this coder's 188 context bytes with src's,
// the WPP row hand-off operation: "copy_contexts(dst, src)... used
// after the second CTU of a row completes to seed the next row."
func (e *Encoder) CopyContexts(src *Encoder) {
	e.contexts = src.contexts
}

// EncodeBin encodes one regular (context-coded) bin using the current
// context model.
func (e *Encoder) EncodeBin(bin uint32) {
	ctx := &e.contexts[e.curCtx]
	lps := uint32(lpsTable[ctx.State][(e.rng>>6)&3])
	e.rng -= lps

	mps := uint32(ctx.MPS)
	if bin != mps {
		numBits := int(renormTable[lps>>3])
		e.low = (e.low + e.rng) << uint(numBits)
		e.rng = lps << uint(numBits)
		e.bitsLeft -= numBits
		if e.bitsLeft < 12 {
			e.write()
		}
	} else if e.rng < 256 {
		e.low <<= 1
		e.rng <<= 1
		e.bitsLeft--
		if e.bitsLeft < 12 {
			e.write()
		}
	}

	if e.update {
		e.updateCtx(ctx, bin)
	}
}

// updateCtx applies the standard VVC/HEVC state-update rule: the MPS
// flips iff the bin disagreed with the old MPS while state==0,
// otherwise the state index walks the MPS/LPS transition table.
func (e *Encoder) updateCtx(ctx *Context, bin uint32) {
	if bin == uint32(ctx.MPS) {
		ctx.State = transIdxMPS[ctx.State]
		return
	}
	if ctx.State == 0 {
		ctx.MPS = 1 - ctx.MPS
	}
	ctx.State = transIdxLPS[ctx.State]
}

// write performs the carry-chain flush.
func (e *Encoder) write() {
	leadByte := e.low >> uint(24-e.bitsLeft)
	e.bitsLeft += 8
	if e.bitsLeft < 32 {
		e.low &= 0xffffffff >> uint(e.bitsLeft)
	} else {
		e.low = 0
	}

	if _, counting := e.sink.(*CountingSink); counting {
		e.numBufferedByte++
		return
	}

	if leadByte == 0xff {
		e.numBufferedByte++
		return
	}

	if e.numBufferedByte > 0 {
		carry := leadByte >> 8
		b := uint32(e.bufferedByte) + carry
		e.bufferedByte = uint8(leadByte & 0xff)
		e.sink.PutByte(byte(b))

		fill := byte((0xff + carry) & 0xff)
		for e.numBufferedByte > 1 {
			e.sink.PutByte(fill)
			e.numBufferedByte--
		}
	} else {
		e.numBufferedByte = 1
		e.bufferedByte = uint8(leadByte)
	}
}

// Finish flushes the tail of the coder. Call once at the end of a
// substream (tile, WPP row, slice).
func (e *Encoder) Finish() {
	if e.low>>uint(32-e.bitsLeft) != 0 {
		e.sink.PutByte(e.bufferedByte + 1)
		for e.numBufferedByte > 1 {
			e.sink.PutByte(0)
			e.numBufferedByte--
		}
		e.low -= 1 << uint(32-e.bitsLeft)
	} else {
		if e.numBufferedByte > 0 {
			e.sink.PutByte(e.bufferedByte)
		}
		for e.numBufferedByte > 1 {
			e.sink.PutByte(0xff)
			e.numBufferedByte--
		}
	}
	bits := 24 - e.bitsLeft
	e.sink.Put(e.low>>8, bits)
}

// EncodeBinTrm encodes the terminating bin.
func (e *Encoder) EncodeBinTrm(bin uint8) {
	e.rng -= 2
	if bin != 0 {
		e.low += e.rng
		e.low <<= 7
		e.rng = 2 << 7
		e.bitsLeft -= 7
	} else if e.rng >= 256 {
		return
	} else {
		e.low <<= 1
		e.rng <<= 1
		e.bitsLeft--
	}
	if e.bitsLeft < 12 {
		e.write()
	}
}

// EncodeBinEP encodes a single bypass bin.
func (e *Encoder) EncodeBinEP(bin uint32) {
	e.low <<= 1
	if bin != 0 {
		e.low += e.rng
	}
	e.bitsLeft--
	if e.bitsLeft < 12 {
		e.write()
	}
}

// EncodeBinsEP encodes up to 32 bypass bins packed MSB-first in
// binValues, chunking by 8 and taking the range==256 fast path when
// applicable.
func (e *Encoder) EncodeBinsEP(binValues uint32, numBins int) {
	if e.rng == 256 {
		e.encodeAlignedBinsEP(binValues, numBins)
		return
	}
	for numBins > 8 {
		numBins -= 8
		pattern := binValues >> uint(numBins)
		e.low <<= 8
		e.low += e.rng * pattern
		binValues -= pattern << uint(numBins)
		e.bitsLeft -= 8
		if e.bitsLeft < 12 {
			e.write()
		}
	}
	e.low <<= uint(numBins)
	e.low += e.rng * binValues
	e.bitsLeft -= numBins
	if e.bitsLeft < 12 {
		e.write()
	}
}

func (e *Encoder) encodeAlignedBinsEP(binValues uint32, numBins int) {
	remBins := numBins
	for remBins > 0 {
		binsToCode := remBins
		if binsToCode > 8 {
			binsToCode = 8
		}
		mask := uint32(1)<<uint(binsToCode) - 1
		newBins := (binValues >> uint(remBins-binsToCode)) & mask
		e.low = (e.low << uint(binsToCode)) + (newBins << 8)
		remBins -= binsToCode
		e.bitsLeft -= binsToCode
		if e.bitsLeft < 12 {
			e.write()
		}
	}
}

// EncodeUnaryMax encodes symbol as a regular-coded unary code capped
// at maxSymbol.
func (e *Encoder) EncodeUnaryMax(symbol, maxSymbol uint32) {
	if maxSymbol == 0 {
		return
	}
	codeLast := maxSymbol > symbol
	bin := uint32(0)
	if symbol != 0 {
		bin = 1
	}
	e.EncodeBin(bin)
	if symbol == 0 {
		return
	}
	for symbol--; symbol > 0; symbol-- {
		e.EncodeBin(1)
	}
	if codeLast {
		e.EncodeBin(0)
	}
}

// EncodeUnaryMaxEP encodes symbol as a bypass unary code capped at
// maxSymbol (used for truncated-Rice binarization with a zero Rice
// parameter).
func (e *Encoder) EncodeUnaryMaxEP(symbol, maxSymbol uint32) {
	codeLast := maxSymbol > symbol
	bin := uint32(0)
	if symbol != 0 {
		bin = 1
	}
	e.EncodeBinEP(bin)
	if symbol == 0 {
		return
	}
	for symbol--; symbol > 0; symbol-- {
		e.EncodeBinEP(1)
	}
	if codeLast {
		e.EncodeBinEP(0)
	}
}

// EncodeTruncBin encodes a truncated-binary code for symbol in
// [0, maxValue).
func (e *Encoder) EncodeTruncBin(symbol, maxValue uint32) {
	var thresh int
	if maxValue > 256 {
		threshVal := uint32(1) << 8
		thresh = 8
		for threshVal <= maxValue {
			thresh++
			threshVal <<= 1
		}
		thresh--
	} else {
		thresh = int(tbMax[maxValue])
	}

	val := uint32(1) << uint(thresh)
	b := maxValue - val

	if symbol < val-b {
		e.EncodeBinsEP(symbol, thresh)
	} else {
		e.EncodeBinsEP(symbol+val-b, thresh+1)
	}
}

// EncodeExpGolombEP encodes symbol as an order-k Exp-Golomb code in
// bypass bins.
func (e *Encoder) EncodeExpGolombEP(symbol, k uint32) {
	var bins uint32
	var numBins int32
	count := k
	for symbol >= uint32(1)<<count {
		bins = 2*bins + 1
		numBins++
		symbol -= uint32(1) << count
		count++
	}
	bins = 2 * bins
	numBins++

	bins = (bins << count) | symbol
	numBins += int32(count)

	e.EncodeBinsEP(bins, int(numBins))
}

// EncodeCoeffRemain encodes a transform coefficient remainder under
// Rice parameter riceParam with the given prefix/suffix cutoff.
func (e *Encoder) EncodeCoeffRemain(remainder, riceParam, cutoff uint32) {
	threshold := cutoff << riceParam
	bins := remainder

	if bins < threshold {
		length := (bins >> riceParam) + 1
		e.EncodeBinsEP((uint32(1)<<length)-2, int(length))
		e.EncodeBinsEP(bins&((uint32(1)<<riceParam)-1), int(riceParam))
		return
	}

	const maxDynamicRange = 15
	maxPrefixLength := 32 - cutoff - maxDynamicRange
	var prefixLength uint32
	codeValue := (bins >> riceParam) - cutoff
	var suffixLength uint32
	if codeValue >= (uint32(1)<<maxPrefixLength)-1 {
		prefixLength = maxPrefixLength
		suffixLength = maxDynamicRange
	} else {
		for codeValue > (uint32(2)<<prefixLength)-2 {
			prefixLength++
		}
		suffixLength = prefixLength + riceParam + 1
	}
	totalPrefixLength := prefixLength + cutoff
	bitMask := (uint32(1) << riceParam) - 1
	prefix := (uint32(1) << totalPrefixLength) - 1
	suffix := ((codeValue - ((1 << prefixLength) - 1)) << riceParam) | (bins & bitMask)
	e.EncodeBinsEP(prefix, int(totalPrefixLength))
	e.EncodeBinsEP(suffix, int(suffixLength))
}

// Range exposes the current interval width; used by tests that pin
// boundary behavior and by RDO forks that need to assert range
// invariants.
func (e *Encoder) Range() uint32 { return e.rng }

// Low exposes the current low bound, for the same reason as Range.
func (e *Encoder) Low() uint32 { return e.low }

// BitsLeft exposes the carry-chain countdown, for tests and forking.
func (e *Encoder) BitsLeft() int { return e.bitsLeft }

// Clone produces an independent copy of the coder's full state
// (contexts, low/range/bits-left, buffered carry), used for
// speculative RDO search paths that must not affect the canonical
// coder. The clone's sink must be supplied separately since Sink
// identity (real emit vs. counting) is a per-fork decision.
func (e *Encoder) Clone(sink Sink) *Encoder {
	clone := *e
	clone.sink = sink
	return &clone
}
