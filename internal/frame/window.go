package frame

import "sync"

// Window is the frame-parallel output window: the set of frames
// currently in flight, each with the reference POCs it still needs.
// The reference list consults InUse before releasing an entry, and
// the output path pops completed frames strictly in submission
// order.
type Window struct {
	mu     sync.Mutex
	frames []windowEntry
}

type windowEntry struct {
	num  int
	refs []int64
	done bool
}

// Add registers a newly-prepared frame and the reference POCs it
// holds.
func (w *Window) Add(num int, refPOCs []int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, windowEntry{num: num, refs: append([]int64(nil), refPOCs...)})
}

// InUse reports whether any uncompleted frame in the window still
// references poc.
func (w *Window) InUse(poc int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range w.frames {
		if f.done {
			continue
		}
		for _, r := range f.refs {
			if r == poc {
				return true
			}
		}
	}
	return false
}

// MarkDone flags a frame's bitstream as written.
func (w *Window) MarkDone(num int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.frames {
		if w.frames[i].num == num {
			w.frames[i].done = true
			return
		}
	}
}

// PopHead removes and returns the head frame's number when it has
// completed; ok is false while the head is still encoding. Output
// order follows submission order even though encoding is parallel.
func (w *Window) PopHead() (num int, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.frames) == 0 || !w.frames[0].done {
		return 0, false
	}
	num = w.frames[0].num
	w.frames = w.frames[1:]
	return num, true
}

// Len returns the number of frames currently in flight.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames)
}
