package services

import "errors"

// Request-level error taxonomy. Every failure the admission path can produce
// wraps exactly one of these sentinels; handlers translate them to HTTP
// responses and nothing else inspects error strings.
var (
	// ErrUnauthenticated means the caller identity could not be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrQuotaExceeded means the daily limit is reached. No state is mutated.
	ErrQuotaExceeded = errors.New("daily quota exceeded")

	// ErrInvalidInput means the upload failed type or size validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAnalysisFailed means the vision model call failed or timed out.
	// The quota unit consumed at admission is not refunded.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrStorageUnavailable means the durable store could not complete an
	// operation after retries. It must never be treated as an admission.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
