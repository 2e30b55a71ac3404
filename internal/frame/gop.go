package frame

// GOPEntry describes one slot of the GOP structure: its display-order
// offset within the GOP, QP cascade parameters, temporal layer, and
// the relative POCs of its negative (past) and positive (future)
// references.
type GOPEntry struct {
	POCOffset int
	QPOffset  int
	QPFactor  float64
	Layer     int
	IsRef     bool
	RefNeg    []int
	RefPos    []int
}

// DefaultGOP8 is the standard 8-frame hierarchical-B structure used
// when gop_len is 8 without low delay.
var DefaultGOP8 = []GOPEntry{
	{POCOffset: 8, QPOffset: 1, QPFactor: 0.442, Layer: 1, IsRef: true, RefNeg: []int{8, 16, 24}},
	{POCOffset: 4, QPOffset: 2, QPFactor: 0.3536, Layer: 2, IsRef: true, RefNeg: []int{4, 12}, RefPos: []int{4}},
	{POCOffset: 2, QPOffset: 3, QPFactor: 0.3536, Layer: 3, IsRef: true, RefNeg: []int{2, 10}, RefPos: []int{2, 6}},
	{POCOffset: 1, QPOffset: 4, QPFactor: 0.68, Layer: 4, RefNeg: []int{1}, RefPos: []int{1, 3, 7}},
	{POCOffset: 3, QPOffset: 4, QPFactor: 0.68, Layer: 4, RefNeg: []int{1, 3}, RefPos: []int{1, 5}},
	{POCOffset: 6, QPOffset: 3, QPFactor: 0.3536, Layer: 3, IsRef: true, RefNeg: []int{2, 6}, RefPos: []int{2}},
	{POCOffset: 5, QPOffset: 4, QPFactor: 0.68, Layer: 4, RefNeg: []int{1, 5}, RefPos: []int{1, 3}},
	{POCOffset: 7, QPOffset: 4, QPFactor: 0.68, Layer: 4, RefNeg: []int{1, 7}, RefPos: []int{1}},
}

// LowDelayGOP builds a low-delay structure of length n: every picture
// references only the past, with a shallow QP cascade.
func LowDelayGOP(n int) []GOPEntry {
	entries := make([]GOPEntry, n)
	for i := range entries {
		qpOff := 3
		if i == n-1 {
			qpOff = 1
		}
		entries[i] = GOPEntry{
			POCOffset: i + 1,
			QPOffset:  qpOff,
			QPFactor:  0.578,
			Layer:     1,
			IsRef:     true,
			RefNeg:    []int{1, 2, 3, 4},
		}
	}
	return entries
}
