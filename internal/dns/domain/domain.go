// Package domain holds the data model of the resolver client: the query a user
// asks for, the DNS header, question and resource records decoded from a reply,
// and the outcome handed to the renderer. It has no knowledge of the wire format
// or of the network.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every layer. Callers wrap them with context and
// test for them with errors.Is.
var (
	// ErrInvalidName is returned when a domain name cannot be encoded.
	ErrInvalidName = errors.New("invalid domain name")

	// ErrInvalidQuery is returned when a Query fails validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrMalformedMessage is returned when response bytes disagree with their
	// declared lengths or offsets.
	ErrMalformedMessage = errors.New("malformed DNS message")

	// ErrTimeoutExceeded is returned when every attempt of an exchange timed out.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
)

// Reasons carried by ResolutionFailedError.
const (
	// ReasonMaxRetries is used when the transport exhausted all of its attempts.
	ReasonMaxRetries = "max retries exceeded"
	// ReasonNetwork is used when a socket error other than a timeout ended the exchange.
	ReasonNetwork = "network error"
)

// ResolutionFailedError reports a resolution that did not produce a reply.
// Err carries the underlying cause, e.g. ErrTimeoutExceeded.
type ResolutionFailedError struct {
	Reason string
	Err    error
}

func (e *ResolutionFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resolution failed: %s", e.Reason)
	}
	return fmt.Sprintf("resolution failed: %s: %v", e.Reason, e.Err)
}

func (e *ResolutionFailedError) Unwrap() error {
	return e.Err
}
