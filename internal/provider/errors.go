package provider

import "errors"

var (
	// ErrNotRegistered is returned when no provider is registered under the
	// requested identifier. Fixing it requires a configuration change, so
	// callers should not retry blindly.
	ErrNotRegistered = errors.New("no provider registered")

	// ErrMalformedResponse is returned when an upstream service replied but
	// the reply could not be parsed into the expected structure. Wrap it with
	// the raw payload so the log record is usable for diagnosis.
	ErrMalformedResponse = errors.New("malformed provider response")
)
