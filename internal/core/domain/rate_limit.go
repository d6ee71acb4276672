package domain

import (
	"context"
	"time"
)

// RateLimit é o resultado de uma chamada a Consume.
type RateLimit struct {
	Identifier      string
	Limit           int
	RemainingTokens int
	Accepted        bool
	RetryAfter      time.Time
}

func NewRateLimit(identifier string, limit, hitCount int, retryAfter time.Time) RateLimit {
	return RateLimit{
		Identifier:      identifier,
		Limit:           limit,
		RemainingTokens: max(limit-hitCount, 0),
		Accepted:        hitCount <= limit,
		RetryAfter:      retryAfter,
	}
}

// EnsureAccepted devolve um *RateLimitExceededError quando a decisão foi rejeitada.
func (r RateLimit) EnsureAccepted() error {
	if !r.Accepted {
		return &RateLimitExceededError{RateLimit: r}
	}
	return nil
}

// Wait bloqueia até RetryAfter ou até o contexto ser cancelado.
func (r RateLimit) Wait(ctx context.Context) error {
	delay := time.Until(r.RetryAfter)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
