// Package job implements the encoder's parallel scheduling
// substrate: a DAG of wavefront, tile, and frame jobs drained by a
// worker pool, with cross-frame reference dependencies and a
// bitstream-ordering barrier. The pool runs on golang.org/x/sync
// (errgroup workers, a semaphore bounding output-window admission);
// readiness is tracked lock-free with a per-job atomic predecessor
// counter.
package job

import (
	"sync"
	"sync/atomic"

	"github.com/shoalforge/uvgo/internal/uvgoerr"
)

// State is a job's lifecycle phase.
type State int32

const (
	StatePending State = iota // has unresolved predecessors
	StateReady                // queued, all predecessors done
	StateRunning
	StateDone
)

// Job is one scheduling record: a function, its predecessor set, and
// an atomic ready count. A job runs exactly once, after all its
// predecessors transition to done. Successor edges are pushed by
// DependOn, so every edge is explicit — never implied by submit
// order.
type Job struct {
	// Name identifies the job in logs and panics; by convention
	// "search r c", "bitstream r c", "alf", "emit".
	Name string

	fn func()

	remaining  atomic.Int32 // undone predecessors + 1 submit latch
	state      atomic.Int32
	submitted  atomic.Bool

	mu         sync.Mutex
	successors []*Job

	done chan struct{}

	pool *Pool
}

// New creates a pending job owned by p. The job holds one latch count
// until Submit so that DependOn edges added before submission cannot
// release it early.
func (p *Pool) New(name string, fn func()) *Job {
	j := &Job{Name: name, fn: fn, pool: p, done: make(chan struct{})}
	j.remaining.Store(1)
	return j
}

// DependOn adds pred as a predecessor of j. Must be called before
// j is submitted; adding an edge to an already-submitted job is a
// programmer-contract violation. A done predecessor contributes no
// count — the edge is already satisfied.
func (j *Job) DependOn(pred *Job) {
	if j.submitted.Load() {
		uvgoerr.Violation("job: DependOn(%s -> %s) after submit", j.Name, pred.Name)
	}
	pred.mu.Lock()
	if State(pred.state.Load()) != StateDone {
		j.remaining.Add(1)
		pred.successors = append(pred.successors, j)
	}
	pred.mu.Unlock()
}

// Submit releases the construction latch; once every predecessor has
// completed the job enters the pool's run queue. Submitting twice is
// a programmer-contract violation (it would make the job runnable
// twice).
func (j *Job) Submit() {
	if !j.submitted.CompareAndSwap(false, true) {
		uvgoerr.Violation("job: %s submitted twice", j.Name)
	}
	j.release()
}

// release decrements the remaining count and enqueues the job when it
// reaches zero.
func (j *Job) release() {
	if j.remaining.Add(-1) != 0 {
		return
	}
	j.state.Store(int32(StateReady))
	j.pool.enqueue(j)
}

// run executes the job body once and releases all successors.
func (j *Job) run() {
	if !j.state.CompareAndSwap(int32(StateReady), int32(StateRunning)) {
		uvgoerr.Violation("job: %s ran twice", j.Name)
	}
	j.fn()

	j.mu.Lock()
	j.state.Store(int32(StateDone))
	succ := j.successors
	j.successors = nil
	j.mu.Unlock()

	close(j.done)
	for _, s := range succ {
		s.release()
	}
}

// Wait blocks until the job has completed. This is the only blocking
// primitive the encoder uses: inside the API's flush and inside
// cross-frame dependency fulfillment.
func (j *Job) Wait() {
	<-j.done
}

// Done reports whether the job has completed without blocking.
func (j *Job) Done() bool {
	return State(j.state.Load()) == StateDone
}
