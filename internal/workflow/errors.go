package workflow

import "errors"

// Failure kinds. Every operation failure wraps exactly one of these so handlers
// and callers can classify without string matching.
var (
	// ErrUnauthorized means the caller holds the wrong role for the operation.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrInvalidInput covers out-of-range inputs and null addresses.
	ErrInvalidInput = errors.New("invalid input")

	// ErrReportNotFound means the report id (or request id) is unknown.
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidState means the operation is not valid for the current status:
	// double-assign, duplicate decryption request, already-completed callback,
	// duplicate refund claim.
	ErrInvalidState = errors.New("operation invalid for current state")

	// ErrDeadlineNotReached means a refund was claimed before its deadline.
	ErrDeadlineNotReached = errors.New("deadline not reached")

	// ErrInvalidProof means the callback proof failed verification. The
	// operation closes without any state mutation.
	ErrInvalidProof = errors.New("proof verification failed")
)
