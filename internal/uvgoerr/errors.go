// Package uvgoerr implements the encoder's four error classes:
// programmer-contract violations (which panic — they are bugs, not
// returned errors), input-validity failures, configuration conflicts,
// and resource exhaustion. Sentinel values support errors.Is while
// github.com/pkg/errors keeps the causal chain for diagnostics.
package uvgoerr

import "github.com/pkg/errors"

// Sentinel error classes. Callers compare with errors.Is against
// these, never against a concrete wrapped message.
var (
	// ErrBadInput marks a frame-level input validity failure (a
	// malformed ROI file, an ROI larger than 10000 in either
	// dimension). The frame fails; the encoder continues.
	ErrBadInput = errors.New("uvgo: bad input")

	// ErrBadConfig marks a configuration conflict discovered at
	// encoder init (an ROI file supplied alongside a pre-populated
	// ROI array, an unsupported chroma format). Encoder init fails.
	ErrBadConfig = errors.New("uvgo: bad config")

	// ErrResource marks allocation failure for a CTU coefficient
	// buffer or a reference picture. The frame fails and its partial
	// state is discarded.
	ErrResource = errors.New("uvgo: resource exhaustion")
)

// BadInput returns ErrBadInput wrapped with a formatted context message.
func BadInput(format string, args ...interface{}) error {
	return errors.Wrapf(ErrBadInput, format, args...)
}

// BadConfig returns ErrBadConfig wrapped with a formatted context message.
func BadConfig(format string, args ...interface{}) error {
	return errors.Wrapf(ErrBadConfig, format, args...)
}

// Resource returns ErrResource wrapped with a formatted context message.
func Resource(format string, args ...interface{}) error {
	return errors.Wrapf(ErrResource, format, args...)
}

// Violation panics with a programmer-contract violation: a dependency
// cycle in the job graph, a double-free of a job, PutByte called on a
// misaligned bitstream writer. These are impossible when the
// scheduler and bitstream writer are used correctly, so they are
// not returned errors: encoding aborts.
func Violation(format string, args ...interface{}) {
	panic(errors.Errorf(format, args...))
}
