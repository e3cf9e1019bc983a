// Package errs defines the error taxonomy shared across the pipeline.
// Sentinels are matched with errors.Is; wrap them with fmt.Errorf("%w: ...").
package errs

import "errors"

var (
	// ErrValidation marks caller input rejected before any work happened
	// (empty text, overlap >= window). Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidArgument marks a bad query parameter such as top_k <= 0.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStoreUnavailable marks a backend I/O failure during
	// upsert/query/delete. The gateway does not retry; callers may.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrUpstream marks a failure of the external embedding or completion
	// service. Not retried automatically.
	ErrUpstream = errors.New("upstream service failed")

	// ErrTimeout marks a deadline hit on an external call. Retriable; no
	// partial state is committed.
	ErrTimeout = errors.New("operation timed out")
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidArgument)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
