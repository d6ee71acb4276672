// Package memory implementa um lock por identificador válido dentro do processo.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/ports"
)

type keyLock struct {
	ch   chan struct{}
	refs int
}

// Locker mantém um semáforo de capacidade 1 por identificador enquanto houver
// alguém segurando ou esperando por ele.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

var _ ports.Locker = (*Locker)(nil)

func New() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

func (l *Locker) Lock(ctx context.Context, id string) (func(), error) {
	kl := l.acquireRef(id)

	select {
	case kl.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-kl.ch
				l.releaseRef(id)
			})
		}, nil
	case <-ctx.Done():
		l.releaseRef(id)
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrLockTimeout, id, ctx.Err())
	}
}

// Held informa quantos identificadores têm lock ativo ou espera pendente.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Locker) acquireRef(id string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[id]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[id] = kl
	}
	kl.refs++
	return kl
}

func (l *Locker) releaseRef(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[id]
	if !ok {
		return
	}
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, id)
	}
}
