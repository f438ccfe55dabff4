package capi

import "errors"

// ErrorKind classifies a failed dispatch so callers can decide whether a
// retry makes sense without parsing error strings.
type ErrorKind string

const (
	// KindConfiguration — credential or pixel id missing; detected before
	// any payload is built or any network activity happens.
	KindConfiguration ErrorKind = "configuration"

	// KindValidation — malformed input shape, detected before construction.
	KindValidation ErrorKind = "validation"

	// KindUpstream — the Conversions endpoint answered non-2xx; the result
	// carries the upstream status and raw body verbatim.
	KindUpstream ErrorKind = "upstream"

	// KindTransport — network failure or response-parse failure.
	KindTransport ErrorKind = "transport"
)

var (
	// ErrNotConfigured is returned when the pixel id or access token is unset.
	ErrNotConfigured = errors.New("capi not configured: pixel id and access token required")
)
