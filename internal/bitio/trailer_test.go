package bitio

import (
	"bytes"
	"testing"
)

// TestTerminateAndFinish_FreshState pins the exact bytes of a
// substream trailer from a freshly started coder: encode_bin_trm(1)
// leaves low = (510-2) << 7 = 0xFE00 with 16 bits left, finish sees a
// clear carry bit and flushes low>>8 as 24-16 = 8 raw bits, and the
// stop bit plus zero alignment appends 0x80.
func TestTerminateAndFinish_FreshState(t *testing.T) {
	w := NewWriter(16)
	e := NewEncoder(w)

	e.EncodeBinTrm(1)
	if e.Range() != 2<<7 {
		t.Fatalf("range after terminating bin = %d, want %d", e.Range(), 2<<7)
	}
	e.Finish()
	if !bytes.Equal(w.Bytes(), []byte{0xfe}) {
		t.Fatalf("finish bytes = %x, want fe", w.Bytes())
	}

	w.Put(1, 1)
	w.AlignZero()
	if !bytes.Equal(w.Bytes(), []byte{0xfe, 0x80}) {
		t.Fatalf("trailer bytes = %x, want fe80", w.Bytes())
	}
}
