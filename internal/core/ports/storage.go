// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"

	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
)

// Storage persiste o estado das janelas por identificador.
//
// Fetch devolve ok == false quando não há estado salvo. Save com ttl > 0
// define a retenção; ttl == 0 significa "sem sugestão" e o backend deve manter
// a expiração que já conhece.
type Storage interface {
	Fetch(ctx context.Context, id string) (window *domain.SlidingWindow, ok bool, err error)
	Save(ctx context.Context, window *domain.SlidingWindow, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Locker garante exclusão mútua por identificador durante o ciclo
// fetch-modify-save. Sem ele, chamadas concorrentes podem perder atualizações.
type Locker interface {
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// NoLock é o Locker padrão para uso em um único goroutine.
type NoLock struct{}

func (NoLock) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}
