package domain

import "errors"

// Sentinel errors callers branch on. All are terminal to the current
// invocation; nothing in this system retries automatically.
var (
	// ErrInvalidTraceID rejects identifiers that are not canonical UUID
	// text. Raised before any I/O happens.
	ErrInvalidTraceID = errors.New("trace id is not a canonical UUID")

	// ErrTraceNotFound means the store has no rows for the trace. This is
	// distinct from a trace that exists but violates invariants.
	ErrTraceNotFound = errors.New("no events recorded for trace")

	// ErrNoRootEvent means an empty event set reached the resolver. The
	// loader guarantees non-emptiness, so seeing this indicates a caller
	// bypassed it.
	ErrNoRootEvent = errors.New("no root event could be resolved")
)
