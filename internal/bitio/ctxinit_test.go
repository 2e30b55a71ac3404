package bitio

import "testing"

func TestCtxInit_StateWithinRange(t *testing.T) {
	for slice := SliceI; slice <= SliceB; slice++ {
		for qp := 0; qp <= 51; qp++ {
			for i := 0; i < NumContexts; i++ {
				ctx := ctxInit(initTables[slice][i], qp)
				if ctx.State > 63 {
					t.Fatalf("slice %d qp %d ctx %d: state %d out of 6-bit range", slice, qp, i, ctx.State)
				}
				if ctx.MPS > 1 {
					t.Fatalf("slice %d qp %d ctx %d: mps %d", slice, qp, i, ctx.MPS)
				}
			}
		}
	}
}

func TestCtxInit_Formula(t *testing.T) {
	// initValue 154 (CNU) is the neutral value: slope=0, offset=64,
	// so state=64 for every QP, mapping to (state=0, MPS=1).
	for qp := 0; qp <= 51; qp++ {
		got := ctxInit(154, qp)
		if got != (Context{State: 0, MPS: 1}) {
			t.Fatalf("qp %d: CNU init = %+v, want state 0 mps 1", qp, got)
		}
	}

	// A value with nonzero slope must move with QP.
	lo := ctxInit(107, 0)
	hi := ctxInit(107, 51)
	if lo == hi {
		t.Fatalf("initValue 107: expected QP-dependent state, got %+v at both ends", lo)
	}
}

func TestInitContexts_ResetsAllSlots(t *testing.T) {
	w := NewWriter(64)
	e := NewEncoder(w)
	// Dirty every context, then re-init and check each slot matches a
	// fresh derivation from the table.
	for i := 0; i < NumContexts; i++ {
		e.SetCtxState(CtxID(i), Context{State: 63, MPS: 1})
	}
	e.InitContexts(SliceB, 27)
	for i := 0; i < NumContexts; i++ {
		want := ctxInit(initTables[SliceB][i], 27)
		if e.Ctx(CtxID(i)) != want {
			t.Fatalf("ctx %d: got %+v want %+v", i, e.Ctx(CtxID(i)), want)
		}
	}
}
