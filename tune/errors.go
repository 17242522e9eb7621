package tune

import "errors"

// Sentinel error kinds surfaced by this package. Callers distinguish them
// with errors.Is; every returned error wraps one of these with %w.
var (
	// ErrOutOfRange means M or (N,K) falls outside the artifact's measured
	// grid. The time estimator returns it; the selector recovers locally by
	// falling back to the selector's simple extrapolation rule.
	ErrOutOfRange = errors.New("tune: out of range")

	// ErrArtifactParse means a malformed grammar, bad counts, or a
	// non-zero timing on an Absent slot.
	ErrArtifactParse = errors.New("tune: artifact parse error")

	// ErrArtifactMismatch means the backend/model/q_type tag does not
	// match the running build.
	ErrArtifactMismatch = errors.New("tune: artifact mismatch")

	// ErrAllocationFailure means the tuner's work buffer is too large for
	// host memory. Fatal; the tune aborts with no partial artifact.
	ErrAllocationFailure = errors.New("tune: allocation failure")

	// ErrKernelInvocation means an opaque failure surfaced by the external
	// kernel collaborator. Fatal to the current tune.
	ErrKernelInvocation = errors.New("tune: kernel invocation error")
)
