package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JeanGrijp/sliding-window-limiter/internal/adapters/http/middleware"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/ports"
)

type decisionResponse struct {
	Identity        string    `json:"identity"`
	Limit           int       `json:"limit"`
	RemainingTokens int       `json:"remaining_tokens"`
	Accepted        bool      `json:"accepted"`
	RetryAfter      time.Time `json:"retry_after"`
}

func newDecisionResponse(d domain.RateLimit) decisionResponse {
	return decisionResponse{
		Identity:        d.Identifier,
		Limit:           d.Limit,
		RemainingTokens: d.RemainingTokens,
		Accepted:        d.Accepted,
		RetryAfter:      d.RetryAfter.UTC(),
	}
}

// LimitsHandler expõe Consume e Reset do limiter por identificador.
type LimitsHandler struct {
	limiter ports.RateLimiter
	logger  *zap.Logger
	now     func() time.Time
}

func NewLimitsHandler(limiter ports.RateLimiter, logger *zap.Logger) *LimitsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LimitsHandler{limiter: limiter, logger: logger, now: time.Now}
}

// Routes monta POST /{identity}/consume e DELETE /{identity}.
func (h *LimitsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{identity}/consume", h.Consume)
	r.Delete("/{identity}", h.Reset)
	return r
}

func (h *LimitsHandler) Consume(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	hits := 1
	if raw := r.URL.Query().Get("hits"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hits must be an integer"})
			return
		}
		hits = n
	}

	decision, err := h.limiter.Consume(r.Context(), identity, hits)
	if err != nil {
		h.writeError(w, "consume", err)
		return
	}

	middleware.WriteRateLimitHeaders(w, decision, h.now())

	status := http.StatusOK
	if !decision.Accepted {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, newDecisionResponse(decision))
}

func (h *LimitsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.limiter.Reset(r.Context(), chi.URLParam(r, "identity")); err != nil {
		h.writeError(w, "reset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LimitsHandler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyIdentity), errors.Is(err, domain.ErrInvalidHits):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrLockTimeout):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "identity is busy, try again"})
	default:
		h.logger.Error("limiter operation failed", zap.String("operation", op), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": http.StatusText(http.StatusInternalServerError)})
	}
}
