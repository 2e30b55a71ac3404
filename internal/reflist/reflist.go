// Package reflist implements the ordered reference-frame list:
// (reconstructed picture, CU-grid, POC) tuples with no duplicate
// POCs, at most MaxRefFrames entries, and removal blocked while an
// uncompleted frame in the output window still refers to an entry.
package reflist

import (
	"github.com/pkg/errors"

	"github.com/shoalforge/uvgo/internal/cuarray"
	"github.com/shoalforge/uvgo/internal/picture"
)

// MaxRefFrames is the hard cap on simultaneously-held reference
// pictures.
const MaxRefFrames = 16

// Entry is one reference-list tuple.
type Entry struct {
	Pic  *picture.Picture
	Grid *cuarray.Grid
	POC  int64
}

// List is the ordered reference-picture collection built once per
// picture from the frame controller's pruning decision and
// consumed by motion search for candidate/MV-scaling lookups.
type List struct {
	entries []Entry
}

// New returns an empty List.
func New() *List { return &List{} }

// Len returns the number of entries currently held.
func (l *List) Len() int { return len(l.entries) }

// At returns the entry at list index idx.
func (l *List) At(idx int) Entry { return l.entries[idx] }

// ByPOC finds the entry with the given POC, or (Entry{}, false).
func (l *List) ByPOC(poc int64) (Entry, bool) {
	for _, e := range l.entries {
		if e.POC == poc {
			return e, true
		}
	}
	return Entry{}, false
}

// Add inserts e at the end of the list. Returns ErrBadConfig-class
// errors are not used here: a duplicate POC or an over-full list is a
// programmer-contract violation (the frame controller is responsible
// for pruning before calling Add), so both cases return a plain error
// for the caller to treat as a bug, not a recoverable condition.
func (l *List) Add(e Entry) error {
	if len(l.entries) >= MaxRefFrames {
		return errors.Errorf("reflist: cannot add POC %d, already at MaxRefFrames=%d", e.POC, MaxRefFrames)
	}
	for _, existing := range l.entries {
		if existing.POC == e.POC {
			return errors.Errorf("reflist: duplicate POC %d", e.POC)
		}
	}
	e.Pic.AddRef()
	l.entries = append(l.entries, e)
	return nil
}

// Remove drops the entry with the given POC if present and releases
// its reference. inUseByWindow reports, for a candidate POC, whether
// any uncompleted frame in the output window still refers to it; if
// so the entry is kept regardless of the frame controller's pruning
// decision, honoring the "removable only when no uncompleted frame...
// refers to them" invariant.
func (l *List) Remove(poc int64, inUseByWindow func(poc int64) bool) bool {
	for i, e := range l.entries {
		if e.POC != poc {
			continue
		}
		if inUseByWindow != nil && inUseByWindow(poc) {
			return false
		}
		e.Pic.Release()
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		return true
	}
	return false
}

// POCs returns the POCs currently held, in list order.
func (l *List) POCs() []int64 {
	out := make([]int64, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.POC
	}
	return out
}

// BuildIndexMap builds the per-list index map for one slice's
// reference list (L0 or L1): picks entries in the order given by
// pocOrder (the frame controller's list-construction order, e.g.
// nearest-past-first for L0) and returns their positions in l,
// skipping any POC not currently held.
func BuildIndexMap(l *List, pocOrder []int64) []int {
	idx := make([]int, 0, len(pocOrder))
	for _, poc := range pocOrder {
		for i, e := range l.entries {
			if e.POC == poc {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}
