// Package apierr classifies failures of the LLM provider into a small set of
// sentinels and retries the transient ones with bounded exponential backoff.
//
// Adapters wrap provider errors at the boundary with fmt.Errorf("%s: %w", msg, sentinel).
// Callers decide with errors.Is(err, apierr.ErrRateLimit) or IsTransient(err).
package apierr

import (
	"context"
	"errors"
)

// Transient provider failures. Retrying the same request may succeed.
var (
	// ErrRateLimit indicates the provider throttled the request.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout indicates the request did not complete in time.
	ErrTimeout = errors.New("request timeout")

	// ErrServer indicates a 5xx response from the provider.
	ErrServer = errors.New("provider server error")

	// ErrNetwork indicates the request never reached the provider or the connection broke.
	ErrNetwork = errors.New("network failure")
)

// Permanent provider failures. The run must stop and surface the cause.
var (
	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrQuotaExceeded indicates a billing or quota problem.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrContextLength indicates the input exceeded the model's context window.
	ErrContextLength = errors.New("input exceeds model context length")

	// ErrMalformedResponse indicates the provider answered without usable content.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// IsTransient reports whether err is worth retrying.
// Context cancellation is never transient, even when it wraps a timeout.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, ErrNetwork)
}

// IsProvider reports whether err was classified as any provider failure.
func IsProvider(err error) bool {
	for _, sentinel := range []error{
		ErrRateLimit, ErrTimeout, ErrServer, ErrNetwork,
		ErrAuthFailed, ErrQuotaExceeded, ErrBadRequest, ErrContextLength, ErrMalformedResponse,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
