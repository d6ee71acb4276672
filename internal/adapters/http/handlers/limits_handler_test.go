package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"github.com/JeanGrijp/sliding-window-limiter/internal/adapters/storage/memory"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/services"
)

func newTestRouter(t *testing.T, limit int) http.Handler {
	t.Helper()

	limiter, err := services.NewRateLimiterService(memory.New(), services.Config{Limit: limit, IntervalSeconds: 60})
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	r := chi.NewRouter()
	r.Mount("/limits", NewLimitsHandler(limiter, zaptest.NewLogger(t)).Routes())
	return r
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestLimitsHandler_ConsumeAndReset(t *testing.T) {
	router := newTestRouter(t, 3)

	w := do(t, router, http.MethodPost, "/limits/user-1/consume?hits=3")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body decisionResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Identity != "user-1" || body.Limit != 3 || body.RemainingTokens != 0 || !body.Accepted {
		t.Fatalf("unexpected decision: %+v", body)
	}

	w = do(t, router, http.MethodPost, "/limits/user-1/consume")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on rejection")
	}

	w = do(t, router, http.MethodDelete, "/limits/user-1")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/limits/user-1/consume")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after reset, got %d", w.Code)
	}
}

func TestLimitsHandler_RejectsBadHits(t *testing.T) {
	router := newTestRouter(t, 3)

	if w := do(t, router, http.MethodPost, "/limits/user-1/consume?hits=abc"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-integer hits, got %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/limits/user-1/consume?hits=-2"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative hits, got %d", w.Code)
	}
}

type brokenLimiter struct{ err error }

func (b brokenLimiter) Consume(context.Context, string, int) (domain.RateLimit, error) {
	return domain.RateLimit{}, b.err
}

func (b brokenLimiter) Reset(context.Context, string) error { return b.err }

func TestLimitsHandler_MapsErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.New("redis set: broken pipe"), http.StatusInternalServerError},
		{domain.ErrLockTimeout, http.StatusServiceUnavailable},
		{domain.ErrEmptyIdentity, http.StatusBadRequest},
	}

	for _, tc := range cases {
		r := chi.NewRouter()
		r.Mount("/limits", NewLimitsHandler(brokenLimiter{err: tc.err}, zaptest.NewLogger(t)).Routes())

		if w := do(t, r, http.MethodPost, "/limits/k/consume"); w.Code != tc.want {
			t.Fatalf("consume with %v: expected %d, got %d", tc.err, tc.want, w.Code)
		}
		if w := do(t, r, http.MethodDelete, "/limits/k"); w.Code != tc.want {
			t.Fatalf("reset with %v: expected %d, got %d", tc.err, tc.want, w.Code)
		}
	}
}

func TestTestHandler_IncludesDecision(t *testing.T) {
	w := httptest.NewRecorder()
	TestHandler(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "Request successful" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["rate_limit"]; ok {
		t.Fatalf("did not expect rate_limit without middleware")
	}
}
