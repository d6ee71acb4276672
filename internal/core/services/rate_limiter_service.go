package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/ports"
)

// Config agrega os parâmetros utilizados pelo serviço de rate limiting.
type Config struct {
	Limit           int
	IntervalSeconds int
	Locker          ports.Locker
	Logger          *zap.Logger
	Clock           func() time.Time
}

// RateLimiterService implementa a lógica central de rate limiting com janela
// deslizante aproximada.
type RateLimiterService struct {
	storage ports.Storage
	locker  ports.Locker
	logger  *zap.Logger
	now     func() time.Time

	limit           int
	intervalSeconds int
}

var _ ports.RateLimiter = (*RateLimiterService)(nil)

// NewRateLimiterService cria uma nova instância do serviço.
func NewRateLimiterService(storage ports.Storage, cfg Config) (*RateLimiterService, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, %d given", domain.ErrInvalidLimit, cfg.Limit)
	}
	if cfg.IntervalSeconds < 1 {
		return nil, fmt.Errorf("%w: the interval must be a positive integer, %d given", domain.ErrInvalidInterval, cfg.IntervalSeconds)
	}
	if cfg.Locker == nil {
		cfg.Locker = ports.NoLock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &RateLimiterService{
		storage:         storage,
		locker:          cfg.Locker,
		logger:          cfg.Logger,
		now:             cfg.Clock,
		limit:           cfg.Limit,
		intervalSeconds: cfg.IntervalSeconds,
	}, nil
}

func (s *RateLimiterService) Limit() int { return s.limit }

func (s *RateLimiterService) IntervalSeconds() int { return s.intervalSeconds }

// Consume registra hits para identity e informa se o total da janela
// deslizante continua dentro do limite. Os hits são registrados mesmo quando
// a decisão é negativa.
func (s *RateLimiterService) Consume(ctx context.Context, identity string, hits int) (domain.RateLimit, error) {
	id, err := normalizeIdentity(identity)
	if err != nil {
		return domain.RateLimit{}, err
	}
	if hits < 0 {
		return domain.RateLimit{}, fmt.Errorf("%w: hits must not be negative, %d given", domain.ErrInvalidHits, hits)
	}

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return domain.RateLimit{}, fmt.Errorf("lock %q: %w", id, err)
	}
	defer unlock()

	now := s.now()

	window, err := s.activeWindow(ctx, id, now)
	if err != nil {
		return domain.RateLimit{}, err
	}

	window.Add(hits)
	count := window.HitCount(now)
	decision := domain.NewRateLimit(id, s.limit, count, window.RetryAfter())

	ttl, _ := window.ExpirationTime()
	if err := s.storage.Save(ctx, window, ttl); err != nil {
		return domain.RateLimit{}, fmt.Errorf("save window %q: %w", id, err)
	}

	if !decision.Accepted {
		s.logger.Debug("rate limit exceeded",
			zap.String("identity", id),
			zap.Int("hit_count", count),
			zap.Int("limit", s.limit),
			zap.Time("retry_after", decision.RetryAfter),
		)
	}

	return decision, nil
}

// Reset remove o estado salvo para identity.
func (s *RateLimiterService) Reset(ctx context.Context, identity string) error {
	id, err := normalizeIdentity(identity)
	if err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return fmt.Errorf("lock %q: %w", id, err)
	}
	defer unlock()

	if err := s.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete window %q: %w", id, err)
	}
	return nil
}

func (s *RateLimiterService) activeWindow(ctx context.Context, id string, now time.Time) (*domain.SlidingWindow, error) {
	window, ok, err := s.storage.Fetch(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidState) {
			return nil, fmt.Errorf("fetch window %q: %w", id, err)
		}
		s.logger.Warn("discarding unreadable window state", zap.String("identity", id), zap.Error(err))
		ok = false
	}
	if ok && window.ID() != id {
		s.logger.Warn("discarding window state stored for another identity",
			zap.String("identity", id), zap.String("stored_id", window.ID()))
		ok = false
	}

	switch {
	case !ok:
		return domain.NewSlidingWindow(id, s.intervalSeconds, now)
	case window.IsExpired(now):
		return domain.NewSlidingWindowFromPrevious(window, s.intervalSeconds, now)
	default:
		return window, nil
	}
}

func normalizeIdentity(identity string) (string, error) {
	id := strings.TrimSpace(identity)
	if id == "" {
		return "", domain.ErrEmptyIdentity
	}
	return id, nil
}
