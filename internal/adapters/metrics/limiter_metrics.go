// Package metrics instrumenta o rate limiter com coletores Prometheus.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JeanGrijp/sliding-window-limiter/internal/core/domain"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/ports"
)

type Options struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
	Buckets    []float64
}

type Collectors struct {
	Decisions *prometheus.CounterVec
	Hits      prometheus.Counter
	Errors    *prometheus.CounterVec
	Duration  prometheus.Histogram
	Resets    prometheus.Counter
}

// NewCollectors cria e registra os coletores; coletores já registrados são reaproveitados.
func NewCollectors(opts Options) (*Collectors, error) {
	if opts.Namespace == "" {
		opts.Namespace = "ratelimit"
	}
	if opts.Subsystem == "" {
		opts.Subsystem = "sliding_window"
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if len(opts.Buckets) == 0 {
		opts.Buckets = prometheus.DefBuckets
	}

	decisions, err := register(opts.Registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "decisions_total",
		Help:      "Consume decisions partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	hits, err := register(opts.Registerer, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "hits_total",
		Help:      "Hits recorded by successful consume calls, accepted or not.",
	}))
	if err != nil {
		return nil, err
	}

	errs, err := register(opts.Registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "errors_total",
		Help:      "Limiter calls that failed, partitioned by operation and kind.",
	}, []string{"operation", "kind"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(opts.Registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "consume_duration_seconds",
		Help:      "Time spent in consume, including storage round trips and locking.",
		Buckets:   opts.Buckets,
	}))
	if err != nil {
		return nil, err
	}

	resets, err := register(opts.Registerer, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "resets_total",
		Help:      "Identities reset.",
	}))
	if err != nil {
		return nil, err
	}

	return &Collectors{
		Decisions: decisions,
		Hits:      hits,
		Errors:    errs,
		Duration:  duration,
		Resets:    resets,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// InstrumentedLimiter decora um ports.RateLimiter registrando métricas.
type InstrumentedLimiter struct {
	next       ports.RateLimiter
	collectors *Collectors
}

var _ ports.RateLimiter = (*InstrumentedLimiter)(nil)

func NewInstrumentedLimiter(next ports.RateLimiter, collectors *Collectors) *InstrumentedLimiter {
	return &InstrumentedLimiter{next: next, collectors: collectors}
}

func (l *InstrumentedLimiter) Consume(ctx context.Context, identity string, hits int) (domain.RateLimit, error) {
	start := time.Now()
	decision, err := l.next.Consume(ctx, identity, hits)
	l.collectors.Duration.Observe(time.Since(start).Seconds())

	if err != nil {
		l.collectors.Errors.WithLabelValues("consume", errorKind(err)).Inc()
		return decision, err
	}

	outcome := "accepted"
	if !decision.Accepted {
		outcome = "rejected"
	}
	l.collectors.Decisions.WithLabelValues(outcome).Inc()
	l.collectors.Hits.Add(float64(hits))

	return decision, nil
}

func (l *InstrumentedLimiter) Reset(ctx context.Context, identity string) error {
	if err := l.next.Reset(ctx, identity); err != nil {
		l.collectors.Errors.WithLabelValues("reset", errorKind(err)).Inc()
		return err
	}
	l.collectors.Resets.Inc()
	return nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyIdentity), errors.Is(err, domain.ErrInvalidHits):
		return "invalid_request"
	case errors.Is(err, domain.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "storage"
	}
}
