// Package memory implementa o storage em memória, útil para desenvolvimento,
// testes e instâncias únicas.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/ports"
)

type entry struct {
	record    domain.WindowRecord
	expiresAt time.Time // zero: sem expiração
}

type Storage struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

var _ ports.Storage = (*Storage)(nil)

type Option func(*Storage)

func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Storage {
	s := &Storage{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch devolve sempre uma cópia reconstruída a partir do registro salvo,
// como faria um backend remoto.
func (s *Storage) Fetch(_ context.Context, id string) (*domain.SlidingWindow, bool, error) {
	s.mu.Lock()
	ent, ok := s.entries[id]
	if ok && s.expired(ent) {
		delete(s.entries, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, false, nil
	}

	window, err := domain.SlidingWindowFromRecord(ent.record)
	if err != nil {
		return nil, false, err
	}
	return window, true, nil
}

func (s *Storage) Save(_ context.Context, window *domain.SlidingWindow, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := window.ID()
	ent := entry{record: window.Record()}

	switch {
	case ttl > 0:
		ent.expiresAt = s.now().Add(ttl)
	default:
		if prev, ok := s.entries[id]; ok && !s.expired(prev) {
			ent.expiresAt = prev.expiresAt
		}
	}

	s.entries[id] = ent
	return nil
}

func (s *Storage) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep remove entradas expiradas e devolve quantas foram removidas.
func (s *Storage) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, ent := range s.entries {
		if s.expired(ent) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// StartJanitor inicia uma goroutine que chama Sweep periodicamente.
// Pare cancelando o contexto.
func (s *Storage) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}

func (s *Storage) expired(ent entry) bool {
	return !ent.expiresAt.IsZero() && !s.now().Before(ent.expiresAt)
}
