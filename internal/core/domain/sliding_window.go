// Package domain concentra entidades e estruturas centrais do rate limiter.
package domain

import (
	"fmt"
	"math"
	"time"
)

// SlidingWindow representa uma janela fixa de contagem para um identificador,
// guardando também o total da janela anterior para aproximar uma janela deslizante.
type SlidingWindow struct {
	id                    string
	hitCount              int
	hitCountForLastWindow int
	intervalSeconds       int
	windowEndAt           time.Time

	// cached indica que a janela veio do storage; nunca é persistido.
	cached bool
}

// NewSlidingWindow cria uma janela nova que termina em now + intervalSeconds.
func NewSlidingWindow(id string, intervalSeconds int, now time.Time) (*SlidingWindow, error) {
	if intervalSeconds < 1 {
		return nil, fmt.Errorf("%w: the interval must be a positive integer, %d given", ErrInvalidInterval, intervalSeconds)
	}

	return &SlidingWindow{
		id:              id,
		intervalSeconds: intervalSeconds,
		windowEndAt:     now.Add(secondsToDuration(intervalSeconds)),
	}, nil
}

// NewSlidingWindowFromPrevious deriva a janela seguinte a partir de previous.
// O total anterior só é herdado se a nova janela ainda não tiver terminado;
// caso contrário a janela começa limpa.
func NewSlidingWindowFromPrevious(previous *SlidingWindow, intervalSeconds int, now time.Time) (*SlidingWindow, error) {
	next, err := NewSlidingWindow(previous.id, intervalSeconds, now)
	if err != nil {
		return nil, err
	}

	windowEndAt := previous.windowEndAt.Add(secondsToDuration(intervalSeconds))
	if now.Before(windowEndAt) {
		next.hitCountForLastWindow = previous.hitCount
		next.windowEndAt = windowEndAt
	}

	return next, nil
}

func (w *SlidingWindow) ID() string { return w.id }

func (w *SlidingWindow) IntervalSeconds() int { return w.intervalSeconds }

func (w *SlidingWindow) HitCountForLastWindow() int { return w.hitCountForLastWindow }

func (w *SlidingWindow) WindowEndAt() time.Time { return w.windowEndAt }

// Cached informa se a janela foi carregada do storage.
func (w *SlidingWindow) Cached() bool { return w.cached }

func (w *SlidingWindow) IsExpired(now time.Time) bool {
	return now.After(w.windowEndAt)
}

// Add soma hits à janela atual. Não há limite superior aqui; a capacidade é
// verificada pelo serviço.
func (w *SlidingWindow) Add(hits int) {
	if hits <= 0 {
		return
	}
	w.hitCount += hits
}

// HitCount calcula o total aproximado da janela deslizante: a contribuição da
// janela anterior decai linearmente até zero ao longo da janela atual.
func (w *SlidingWindow) HitCount(now time.Time) int {
	interval := float64(w.intervalSeconds)
	startOfWindow := w.windowEndAt.Add(-secondsToDuration(w.intervalSeconds))

	elapsed := now.Sub(startOfWindow).Seconds() / interval
	elapsed = math.Min(math.Max(elapsed, 0), 1)

	return int(math.Floor(float64(w.hitCountForLastWindow)*(1-elapsed) + float64(w.hitCount)))
}

// CurrentWindowHitCount devolve apenas os hits registrados na janela atual.
func (w *SlidingWindow) CurrentWindowHitCount() int { return w.hitCount }

// ExpirationTime sugere por quanto tempo o storage deve manter a janela: o
// restante desta janela e a próxima inteira. Janelas carregadas do storage
// não sugerem nada (ok == false) para não estender a expiração já existente.
func (w *SlidingWindow) ExpirationTime() (ttl time.Duration, ok bool) {
	if w.cached {
		return 0, false
	}
	return 2 * secondsToDuration(w.intervalSeconds), true
}

// RetryAfter é o instante em que a janela atual termina.
func (w *SlidingWindow) RetryAfter() time.Time {
	return w.windowEndAt
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
