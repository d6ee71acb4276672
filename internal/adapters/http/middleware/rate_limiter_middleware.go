// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/ports"
	"github.com/JeanGrijp/sliding-window-limiter/internal/logger"
)

const rateLimitExceededMessage = "you have reached the maximum number of requests or actions allowed within a certain time frame"

const defaultAPIKeyHeader = "API_KEY"

type Options struct {
	// APIKeyHeader identifica o cliente; sem ele, o IP é usado.
	APIKeyHeader string
	Logger       *zap.Logger
	Now          func() time.Time
}

type decisionKey struct{}

// DecisionFromContext devolve a decisão tomada pelo middleware para a requisição.
func DecisionFromContext(ctx context.Context) (domain.RateLimit, bool) {
	decision, ok := ctx.Value(decisionKey{}).(domain.RateLimit)
	return decision, ok
}

func NewRateLimiterMiddleware(limiter ports.RateLimiter, opts Options) func(http.Handler) http.Handler {
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = defaultAPIKeyHeader
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity := strings.TrimSpace(r.Header.Get(opts.APIKeyHeader))
			if identity == "" {
				identity = ExtractIP(r)
			}

			decision, err := limiter.Consume(r.Context(), identity, 1)
			if err != nil {
				opts.Logger.Error("rate limiter failed",
					zap.String("identity", logger.MaskIdentity(identity)),
					zap.Error(err),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			WriteRateLimitHeaders(w, decision, opts.Now())

			if !decision.Accepted {
				writeTooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), decisionKey{}, decision)))
		})
	}
}

// WriteRateLimitHeaders publica a decisão nos headers X-RateLimit-* e, quando
// rejeitada, em Retry-After (segundos, arredondado para cima).
func WriteRateLimitHeaders(w http.ResponseWriter, decision domain.RateLimit, now time.Time) {
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.RemainingTokens))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.RetryAfter.Unix(), 10))

	if !decision.Accepted {
		headers.Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter, now)))
	}
}

func retryAfterSeconds(retryAfter, now time.Time) int {
	wait := retryAfter.Sub(now)
	if wait <= 0 {
		return 0
	}
	seconds := int(wait / time.Second)
	if wait%time.Second != 0 {
		seconds++
	}
	return seconds
}

func ExtractIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if xRealIP != "" {
		return xRealIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}

	return host
}

func writeTooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(rateLimitExceededMessage))
}
