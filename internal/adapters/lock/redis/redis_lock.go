// Package redis implementa um lock distribuído por identificador sobre o Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/ports"
)

const (
	defaultKeyPrefix  = "ratelimit:lock"
	defaultTTL        = 5 * time.Second
	defaultRetryDelay = 10 * time.Millisecond
	defaultWait       = 2 * time.Second
)

// Só apaga a chave se ela ainda pertencer a quem adquiriu o lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Config struct {
	KeyPrefix string
	// TTL limita por quanto tempo um lock órfão bloqueia o identificador.
	TTL        time.Duration
	RetryDelay time.Duration
	// MaxWait é o tempo máximo de espera quando o contexto não tem deadline.
	MaxWait time.Duration
}

type Locker struct {
	client *redis.Client
	cfg    Config
	logger *zap.Logger
}

var _ ports.Locker = (*Locker)(nil)

func New(client *redis.Client, cfg Config, logger *zap.Logger) *Locker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locker{client: client, cfg: cfg, logger: logger}
}

// Lock tenta adquirir o lock até conseguir, até o contexto terminar ou até MaxWait.
func (l *Locker) Lock(ctx context.Context, id string) (func(), error) {
	key := fmt.Sprintf("%s:%s", l.cfg.KeyPrefix, id)
	token := uuid.NewString()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.MaxWait)
		defer cancel()
	}

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if acquired {
			return l.release(key, token), nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, id)
			}
			return nil, ctx.Err()
		case <-time.After(l.cfg.RetryDelay):
		}
	}
}

func (l *Locker) release(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release identity lock", zap.String("key", key), zap.Error(err))
		}
	}
}
