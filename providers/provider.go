// Package providers wraps hosted completion APIs behind a single Provider
// contract. Every adapter turns its own wire protocol into plain text or a
// typed *Error; none of them retry.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Prompt is what an adapter sends upstream: an optional system message and the user query.
type Prompt struct {
	System string
	Query  string
}

// Provider is the interface for completion backends. Implementations must be
// safe for concurrent use.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ErrorKind classifies why a provider call failed.
type ErrorKind string

const (
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindAuth      ErrorKind = "auth"
	ErrorKindQuota     ErrorKind = "quota"
	ErrorKindMalformed ErrorKind = "malformed"
	ErrorKindNetwork   ErrorKind = "network"
	ErrorKindEmpty     ErrorKind = "empty"
	ErrorKindUpstream  ErrorKind = "upstream"
)

// Error is a failure signalled by a provider adapter.
type Error struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a typed provider failure.
func NewError(provider string, kind ErrorKind, err error) *Error {
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// NewStatusError builds a typed failure from a non-2xx upstream status.
func NewStatusError(provider string, status int, err error) *Error {
	return &Error{Provider: provider, Kind: KindFromStatus(status), StatusCode: status, Err: err}
}

// KindFromStatus maps an upstream HTTP status to an ErrorKind.
func KindFromStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorKindAuth
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return ErrorKindQuota
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorKindTimeout
	default:
		return ErrorKindUpstream
	}
}

// Classify converts an arbitrary error returned while calling provider into a
// typed *Error. Errors that are already typed pass through unchanged.
func Classify(provider string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(provider, ErrorKindTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewError(provider, ErrorKindTimeout, err)
		}
		return NewError(provider, ErrorKindNetwork, err)
	}

	return NewError(provider, ErrorKindUpstream, err)
}

// KindOf returns the ErrorKind carried by err, or ErrorKindUpstream for untyped errors.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	return ErrorKindUpstream
}
