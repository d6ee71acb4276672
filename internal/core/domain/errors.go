package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInterval   = errors.New("invalid interval")
	ErrInvalidLimit      = errors.New("invalid limit")
	ErrInvalidHits       = errors.New("invalid hits")
	ErrEmptyIdentity     = errors.New("identity is required")
	ErrInvalidState      = errors.New("invalid limiter state")
	ErrLockTimeout       = errors.New("timed out acquiring identity lock")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// RateLimitExceededError carrega a decisão que foi rejeitada.
type RateLimitExceededError struct {
	RateLimit RateLimit
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q, retry after %s",
		e.RateLimit.Identifier, e.RateLimit.RetryAfter.UTC().Format("2006-01-02T15:04:05.000000Z07:00"))
}

func (e *RateLimitExceededError) Unwrap() error {
	return ErrRateLimitExceeded
}

func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}
