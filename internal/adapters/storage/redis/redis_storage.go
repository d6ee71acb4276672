// Package redis disponibiliza a implementação do storage baseada em Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/ports"
)

const defaultKeyPrefix = "ratelimit:window"

type Storage struct {
	client    *redis.Client
	keyPrefix string
}

var _ ports.Storage = (*Storage)(nil)

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// New conecta ao Redis e valida a conexão com um PING.
func New(cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient reaproveita um client existente (por exemplo, compartilhado com o lock).
func NewWithClient(client *redis.Client, keyPrefix string) *Storage {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Storage{client: client, keyPrefix: keyPrefix}
}

func (s *Storage) Client() *redis.Client {
	return s.client
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) Fetch(ctx context.Context, id string) (*domain.SlidingWindow, bool, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var rec domain.WindowRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, false, fmt.Errorf("%w: decode %q: %v", domain.ErrInvalidState, id, err)
	}

	window, err := domain.SlidingWindowFromRecord(rec)
	if err != nil {
		return nil, false, err
	}
	return window, true, nil
}

// Save grava a janela. Sem ttl o Redis preserva a expiração atual da chave (KEEPTTL).
func (s *Storage) Save(ctx context.Context, window *domain.SlidingWindow, ttl time.Duration) error {
	payload, err := json.Marshal(window.Record())
	if err != nil {
		return fmt.Errorf("encode window %q: %w", window.ID(), err)
	}

	expiration := ttl
	if ttl <= 0 {
		expiration = redis.KeepTTL
	}

	if err := s.client.Set(ctx, s.key(window.ID()), payload, expiration).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *Storage) key(id string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, id)
}
