package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
)

func newTestStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return NewWithClient(client, "test"), server
}

func TestStorage_FetchMissing(t *testing.T) {
	storage, _ := newTestStorage(t)

	window, ok, err := storage.Fetch(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if ok || window != nil {
		t.Fatalf("expected no window, got %+v", window)
	}
}

func TestStorage_SaveAndFetch(t *testing.T) {
	storage, server := newTestStorage(t)
	ctx := context.Background()

	window, err := domain.NewSlidingWindow("user-1", 60, time.Now())
	if err != nil {
		t.Fatalf("NewSlidingWindow returned error: %v", err)
	}
	window.Add(4)

	if err := storage.Save(ctx, window, 2*time.Minute); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if ttl := server.TTL("test:user-1"); ttl != 2*time.Minute {
		t.Fatalf("expected ttl 2m, got %v", ttl)
	}

	loaded, ok, err := storage.Fetch(ctx, "user-1")
	if err != nil || !ok {
		t.Fatalf("Fetch returned ok=%v err=%v", ok, err)
	}
	if !loaded.Cached() {
		t.Fatalf("expected fetched window to be cached")
	}
	if loaded.CurrentWindowHitCount() != 4 || loaded.IntervalSeconds() != 60 {
		t.Fatalf("unexpected window: hits=%d interval=%d", loaded.CurrentWindowHitCount(), loaded.IntervalSeconds())
	}
	if !loaded.WindowEndAt().Equal(window.WindowEndAt().Truncate(time.Microsecond)) {
		t.Fatalf("expected window end %s, got %s", window.WindowEndAt(), loaded.WindowEndAt())
	}
}

func TestStorage_SaveWithoutHintKeepsExpiry(t *testing.T) {
	storage, server := newTestStorage(t)
	ctx := context.Background()

	window, err := domain.NewSlidingWindow("user-2", 30, time.Now())
	if err != nil {
		t.Fatalf("NewSlidingWindow returned error: %v", err)
	}
	if err := storage.Save(ctx, window, time.Minute); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	server.FastForward(20 * time.Second)

	window.Add(1)
	if err := storage.Save(ctx, window, 0); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if ttl := server.TTL("test:user-2"); ttl != 40*time.Second {
		t.Fatalf("expected remaining ttl of 40s to be kept, got %v", ttl)
	}
}

func TestStorage_ExpiredKeyIsAbsent(t *testing.T) {
	storage, server := newTestStorage(t)
	ctx := context.Background()

	window, err := domain.NewSlidingWindow("user-3", 1, time.Now())
	if err != nil {
		t.Fatalf("NewSlidingWindow returned error: %v", err)
	}
	if err := storage.Save(ctx, window, 2*time.Second); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	server.FastForward(3 * time.Second)

	if _, ok, err := storage.Fetch(ctx, "user-3"); err != nil || ok {
		t.Fatalf("expected expired key to be absent, ok=%v err=%v", ok, err)
	}
}

func TestStorage_FetchUndecodablePayload(t *testing.T) {
	storage, server := newTestStorage(t)

	if err := server.Set("test:broken", "not-json"); err != nil {
		t.Fatalf("failed to seed miniredis: %v", err)
	}

	_, ok, err := storage.Fetch(context.Background(), "broken")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for undecodable payload")
	}
}

func TestStorage_Delete(t *testing.T) {
	storage, server := newTestStorage(t)
	ctx := context.Background()

	window, err := domain.NewSlidingWindow("user-4", 10, time.Now())
	if err != nil {
		t.Fatalf("NewSlidingWindow returned error: %v", err)
	}
	if err := storage.Save(ctx, window, 20*time.Second); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := storage.Delete(ctx, "user-4"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if server.Exists("test:user-4") {
		t.Fatalf("expected key to be deleted")
	}
	if err := storage.Delete(ctx, "user-4"); err != nil {
		t.Fatalf("deleting a missing key must not fail: %v", err)
	}
}

func TestStorage_FetchFailsWhenServerDown(t *testing.T) {
	storage, server := newTestStorage(t)
	server.Close()

	if _, _, err := storage.Fetch(context.Background(), "user-5"); err == nil {
		t.Fatalf("expected error when redis is unavailable")
	}
}
