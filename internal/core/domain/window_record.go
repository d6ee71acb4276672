package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// WindowRecord é a projeção persistida de uma SlidingWindow. O campo
// transitório cached fica de fora.
type WindowRecord struct {
	ID                    string  `json:"id"`
	HitCount              int     `json:"hit_count"`
	IntervalSeconds       int     `json:"interval_seconds"`
	HitCountForLastWindow int     `json:"hit_count_for_last_window"`
	WindowEndAt           float64 `json:"window_end_at"`
}

// Record gera a projeção persistida da janela.
func (w *SlidingWindow) Record() WindowRecord {
	return WindowRecord{
		ID:                    w.id,
		HitCount:              w.hitCount,
		IntervalSeconds:       w.intervalSeconds,
		HitCountForLastWindow: w.hitCountForLastWindow,
		WindowEndAt:           toUnixSeconds(w.windowEndAt),
	}
}

// SlidingWindowFromRecord reconstrói uma janela lida do storage. A janela
// resultante é sempre marcada como cached.
func SlidingWindowFromRecord(rec WindowRecord) (*SlidingWindow, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidState)
	}
	if rec.IntervalSeconds < 1 {
		return nil, fmt.Errorf("%w: interval %d for %q", ErrInvalidState, rec.IntervalSeconds, rec.ID)
	}
	if rec.HitCount < 0 || rec.HitCountForLastWindow < 0 {
		return nil, fmt.Errorf("%w: negative hit count for %q", ErrInvalidState, rec.ID)
	}

	return &SlidingWindow{
		id:                    rec.ID,
		hitCount:              rec.HitCount,
		hitCountForLastWindow: rec.HitCountForLastWindow,
		intervalSeconds:       rec.IntervalSeconds,
		windowEndAt:           fromUnixSeconds(rec.WindowEndAt),
		cached:                true,
	}, nil
}

func toUnixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func fromUnixSeconds(seconds float64) time.Time {
	return time.UnixMicro(int64(math.Round(seconds * 1e6)))
}
