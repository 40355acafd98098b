package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FetchKind classifies a fetch failure.
type FetchKind string

const (
	FetchTimeout            FetchKind = "timeout"
	FetchRateLimited        FetchKind = "rate_limited"
	FetchSchemaMismatch     FetchKind = "schema_mismatch"
	FetchAuthFailure        FetchKind = "auth_failure"
	FetchNetworkUnreachable FetchKind = "network_unreachable"
)

// FetchError is a typed failure from a fetch cycle.
type FetchError struct {
	Kind     FetchKind
	Exchange string // "mexc" or "binance"
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Exchange, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient and worth retrying
// with backoff. Schema and auth failures are not.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchTimeout, FetchRateLimited, FetchNetworkUnreachable:
		return true
	}
	return false
}

// APIError is a non-2xx HTTP response from an exchange.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// classify maps a transport or HTTP error onto the fetch taxonomy.
func classify(exchangeName string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		kind := FetchNetworkUnreachable
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			kind = FetchRateLimited
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			kind = FetchAuthFailure
		case apiErr.StatusCode >= 500:
			kind = FetchNetworkUnreachable
		default:
			// Unexpected 4xx means we sent something the API no longer
			// understands: treat as schema drift, not transient.
			kind = FetchSchemaMismatch
		}
		return &FetchError{Kind: kind, Exchange: exchangeName, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: FetchTimeout, Exchange: exchangeName, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: FetchTimeout, Exchange: exchangeName, Err: err}
	}

	return &FetchError{Kind: FetchNetworkUnreachable, Exchange: exchangeName, Err: err}
}
