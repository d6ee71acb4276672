// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
)

type RateLimiter interface {
	Consume(ctx context.Context, identity string, hits int) (domain.RateLimit, error)
	Reset(ctx context.Context, identity string) error
}
