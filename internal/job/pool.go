package job

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/shoalforge/uvgo/internal/logging"
)

// Pool drains ready jobs with a fixed set of worker goroutines. Jobs
// are indivisible and never suspend; a worker picks a ready job,
// runs it to completion, and moves on.
type Pool struct {
	queue chan *Job
	g     *errgroup.Group

	// owf bounds how many frames may be in flight at once; admission
	// is taken in AdmitFrame and returned by the frame's emit job.
	owf *semaphore.Weighted

	log logging.Logger
}

// NewPool starts numWorkers workers with an output window of owfDepth
// frames (owfDepth <= 0 means no frame-level parallelism: one frame
// in flight at a time).
func NewPool(numWorkers, owfDepth int, log logging.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if owfDepth < 1 {
		owfDepth = 1
	}
	if log == nil {
		log = logging.Nop
	}
	p := &Pool{
		queue: make(chan *Job, 4*numWorkers),
		g:     &errgroup.Group{},
		owf:   semaphore.NewWeighted(int64(owfDepth)),
		log:   log,
	}
	for i := 0; i < numWorkers; i++ {
		p.g.Go(func() error {
			for j := range p.queue {
				j.run()
			}
			return nil
		})
	}
	return p
}

// enqueue hands a ready job to the workers. When the bounded queue is
// full the handoff spills to a goroutine, so a worker releasing the
// successors of a finished job can never block on its own pool — the
// fan-out of a wavefront row may make dozens of jobs ready at once.
func (p *Pool) enqueue(j *Job) {
	p.log.Debug("job ready: %s", j.Name)
	select {
	case p.queue <- j:
	default:
		go func() { p.queue <- j }()
	}
}

// AdmitFrame blocks until a frame slot is free in the output window
// (the owf option bounds how many frames are in flight). The
// matching ReleaseFrame is called by the frame's emit job once its
// bitstream is written.
func (p *Pool) AdmitFrame(ctx context.Context) error {
	return p.owf.Acquire(ctx, 1)
}

// ReleaseFrame returns a frame slot to the output window.
func (p *Pool) ReleaseFrame() {
	p.owf.Release(1)
}

// Close stops accepting jobs and waits for the workers to drain.
// Every submitted job must have become runnable by now — the encoder
// flushes by waiting on the output-window head before closing, so a
// pending job at Close is a dependency cycle.
func (p *Pool) Close() {
	close(p.queue)
	_ = p.g.Wait()
}
