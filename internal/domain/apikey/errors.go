package apikey

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Kind classifies an error for the caller-facing surface.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindRateLimited
	KindNotFound
	KindUpstream
	KindUpstreamTimeout
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindUpstreamTimeout:
		return "upstream_timeout"
	default:
		return "internal"
	}
}

var (
	// ErrCredentialRequired is returned when a request carries no API key.
	ErrCredentialRequired = errors.New("credential required")
	// ErrInvalidCredential is returned for keys that are not in the store.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrCredentialExpired is returned for stored keys past their expiration.
	ErrCredentialExpired = errors.New("credential expired")
	// ErrForbidden is returned when the admin credential does not match.
	ErrForbidden = errors.New("forbidden")
	// ErrKeyNotFound is returned by revoke when no record matches.
	ErrKeyNotFound = errors.New("API key not found")
	// ErrInvalidQuota is returned when a caller supplies a non-positive quota.
	ErrInvalidQuota = errors.New("quota limit and windowSeconds must be positive integers")
	// ErrQuotaMisconfigured is returned when a stored record has a malformed
	// quota. Every request for such a key is rejected.
	ErrQuotaMisconfigured = errors.New("key quota is misconfigured")
	// ErrDuplicateSecret is returned when inserting a secret that is already stored.
	ErrDuplicateSecret = errors.New("duplicate secret")
)

// BadRequestError carries a caller mistake that is reported verbatim.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// RateLimitedError is returned when a key has no tokens left.
type RateLimitedError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// UpstreamError wraps a failure to reach the inference backend.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "backend unavailable: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	var (
		badReq   *BadRequestError
		limited  *RateLimitedError
		upstream *UpstreamError
	)
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &badReq), errors.Is(err, ErrInvalidQuota):
		return KindBadRequest
	case errors.Is(err, ErrCredentialRequired),
		errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrCredentialExpired):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.As(err, &limited):
		return KindRateLimited
	case errors.Is(err, ErrKeyNotFound):
		return KindNotFound
	case errors.As(err, &upstream):
		if errors.Is(upstream.Err, context.DeadlineExceeded) {
			return KindUpstreamTimeout
		}
		return KindUpstream
	default:
		return KindInternal
	}
}
