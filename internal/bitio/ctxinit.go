package bitio

// SliceType indexes the per-slice-type context initialization tables.
// The values match the frame controller's slice-type encoding.
type SliceType int

const (
	SliceI SliceType = iota
	SliceP
	SliceB
)

// ctxInit derives a Context from an 8-bit packed initValue and the
// slice QP, the HEVC/VVC context-initialization formula:
//
//	slope  = (initValue >> 4) * 5 - 45
//	offset = ((initValue & 15) << 3) - 16
//	state  = clip3(1, 126, ((slope * qp) >> 4) + offset)
//
// with state >= 64 selecting MPS=1 at index state-64 and state < 64
// selecting MPS=0 at index 63-state.
func ctxInit(initValue uint8, qp int) Context {
	if qp < 0 {
		qp = 0
	}
	if qp > 51 {
		qp = 51
	}
	slope := int(initValue>>4)*5 - 45
	offset := int(initValue&15)<<3 - 16
	state := (slope*qp)>>4 + offset
	if state < 1 {
		state = 1
	}
	if state > 126 {
		state = 126
	}
	if state >= 64 {
		return Context{State: uint8(state - 64), MPS: 1}
	}
	return Context{State: uint8(63 - state), MPS: 0}
}

// CNU ("context no update") is the neutral initValue used for context
// slots whose statistics do not depend on slice type.
const cnu = 154

// initTables holds one packed-initValue row per slice type. Slot
// order matches the CtxID enumeration consumed by the syntax layer;
// this package treats the table as an opaque 188-entry row.
var initTables = [3][NumContexts]uint8{
	// I slice
	{
		// split flags (quad/MTT), mode constraint
		107, 139, 126, 107, 139, 126, 107, 139, 126, 139, 126, 107, 139, 126, 107,
		153, 138, 138, 124, 138, 94, 224, 167, 122,
		// skip / merge / pred mode / IBC
		cnu, cnu, cnu, cnu, cnu, 149, 128, 165, 152, 137,
		// intra modes
		183, 152, 154, 154, 63,
		// inter dir / ref idx / mvp / mvd
		cnu, cnu, cnu, cnu, cnu, cnu, cnu, cnu, cnu, cnu, cnu,
		// root cbf, cbf luma/cb/cr, joint CbCr
		79, 153, 111, 138, 138, 149, 107, 167, 154, 154, 154, 154, 154,
		// transform skip, SAO, mode constraint
		139, 139, 154, 154, 153, 160,
		// ALF
		100, 153, 200, 100, 153, 200, 100, 153, 200, 154, 141, 154, 159, 141, 154, 159,
		// last significant X
		110, 110, 124, 125, 140, 153, 125, 127, 140, 109, 111, 143, 127, 111, 79, 108, 123, 63, 110, 110, 124, 125, 140,
		// last significant Y
		110, 110, 124, 125, 140, 153, 125, 127, 140, 109, 111, 143, 127, 111, 79, 108, 123, 63, 110, 110, 124, 125, 140,
		// sig coeff group, sig coeff
		91, 171, 134, 141, 111, 111, 125, 110, 110, 94, 124, 108, 124, 107, 125, 141,
		// parity
		121, 140, 61, 154, 155, 127,
		// gt1
		140, 92, 137, 138, 140, 152, 138, 139, 153, 74, 149, 92,
		// gt3
		138, 153, 136, 167, 152, 152, 139, 139, 111, 136, 139, 111,
		// cu_qp_delta_abs, BDPCM, MTS, LFNST
		154, 154, 40, 154, 139, 154, 153, 139, 139, 139, 154,
	},
	// P slice
	{
		107, 139, 126, 107, 139, 126, 107, 139, 126, 139, 126, 107, 139, 126, 107,
		124, 138, 94, 138, 124, 94, 224, 167, 122,
		197, 185, 201, 149, 154, 110, 122, 134, 152, 137,
		154, 152, 154, 154, 63,
		95, 79, 63, 31, 31, 95, 153, 153, 168, 140, 198,
		121, 153, 111, 138, 138, 149, 107, 167, 154, 154, 154, 154, 154,
		139, 139, 154, 154, 153, 185,
		100, 153, 200, 100, 153, 200, 100, 153, 200, 154, 141, 154, 159, 141, 154, 159,
		125, 110, 94, 110, 95, 79, 125, 111, 110, 78, 110, 111, 111, 95, 94, 108, 123, 108, 125, 110, 94, 110, 95,
		125, 110, 94, 110, 95, 79, 125, 111, 110, 78, 110, 111, 111, 95, 94, 108, 123, 108, 125, 110, 94, 110, 95,
		121, 140, 61, 154, 155, 154, 139, 153, 139, 123, 123, 63, 153, 166, 183, 140,
		136, 153, 139, 154, 155, 127,
		154, 196, 196, 167, 154, 152, 167, 182, 182, 134, 149, 136,
		153, 121, 136, 137, 169, 194, 166, 167, 154, 167, 137, 182,
		154, 154, 40, 154, 139, 154, 153, 139, 139, 139, 154,
	},
	// B slice
	{
		107, 139, 126, 107, 139, 126, 107, 139, 126, 139, 126, 107, 139, 126, 107,
		93, 138, 107, 122, 124, 94, 224, 167, 122,
		197, 185, 201, 134, 154, 110, 122, 134, 152, 137,
		154, 152, 154, 154, 63,
		95, 79, 63, 31, 31, 95, 153, 153, 168, 140, 198,
		121, 153, 111, 138, 138, 149, 92, 167, 154, 154, 154, 154, 154,
		139, 139, 154, 154, 153, 200,
		100, 153, 200, 100, 153, 200, 100, 153, 200, 154, 141, 154, 159, 141, 154, 159,
		125, 110, 124, 110, 95, 94, 125, 111, 111, 79, 125, 126, 111, 111, 79, 108, 123, 93, 125, 110, 124, 110, 95,
		125, 110, 124, 110, 95, 94, 125, 111, 111, 79, 125, 126, 111, 111, 79, 108, 123, 93, 125, 110, 124, 110, 95,
		121, 140, 61, 154, 170, 154, 139, 153, 139, 123, 123, 63, 124, 166, 183, 140,
		136, 153, 139, 154, 155, 127,
		154, 196, 167, 167, 154, 152, 167, 182, 182, 134, 149, 136,
		153, 121, 136, 122, 169, 208, 166, 167, 154, 152, 167, 182,
		154, 154, 40, 154, 139, 154, 153, 139, 139, 139, 154,
	},
}

// InitContexts re-initializes all 188 context models from the
// per-slice-type QP-dependent table, called at every slice start.
// Contexts never persist across frames.
func (e *Encoder) InitContexts(slice SliceType, qp int) {
	table := &initTables[slice]
	for i := 0; i < NumContexts; i++ {
		e.contexts[i] = ctxInit(table[i], qp)
	}
}
