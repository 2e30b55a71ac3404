package cuarray

import "testing"

// TestFillRect_IdenticalCells pins the replication invariant: every 4x4
// cell inside a CU's bounding box holds an identical record.
func TestFillRect_IdenticalCells(t *testing.T) {
	g := New(64, 64)
	r := Rect{X: 2, Y: 1, W: 4, H: 3}
	c := Cell{Log2Width: 4, Log2Height: 3, Mode: ModeInter, QP: 22}
	g.FillRect(r, c)

	if !g.AllIdenticalInRect(r) {
		t.Fatal("cells inside bounding box are not identical after FillRect")
	}
	if got := g.At(r.X, r.Y); got != c {
		t.Fatalf("At(origin) = %+v, want %+v", got, c)
	}
	if got := g.At(r.X+r.W-1, r.Y+r.H-1); got != c {
		t.Fatalf("At(corner) = %+v, want %+v", got, c)
	}
}

// TestView_WriteThroughMutatesParent pins the sub-view aliasing rule
// design note: a write through a View is visible in the parent grid
// because the view holds no cell data of its own.
func TestView_WriteThroughMutatesParent(t *testing.T) {
	g := New(32, 32)
	v := NewView(g, Rect{X: 4, Y: 4, W: 8, H: 8})

	c := Cell{Mode: ModeIntra, IntraLuma: 18}
	v.Set(1, 1, c)

	if got := g.At(5, 5); got != c {
		t.Fatalf("parent grid at (5,5) = %+v, want %+v", got, c)
	}
}

// TestView_Sub composes two nested views and checks writes still land
// at the correct root-grid coordinates.
func TestView_Sub(t *testing.T) {
	g := New(64, 64)
	outer := NewView(g, Rect{X: 8, Y: 8, W: 16, H: 16})
	inner := outer.Sub(Rect{X: 4, Y: 4, W: 4, H: 4})

	c := Cell{Mode: ModeIBC}
	inner.FillAll(c)

	if !g.AllIdenticalInRect(Rect{X: 12, Y: 12, W: 4, H: 4}) {
		t.Fatal("nested view write did not land on the expected root rectangle")
	}
	if got := g.At(12, 12); got != c {
		t.Fatalf("g.At(12,12) = %+v, want %+v", got, c)
	}
	// Outside the inner rectangle but inside the outer one: untouched.
	if got := g.At(8, 8); got == c {
		t.Fatal("write through nested view leaked outside its own rectangle")
	}
}
