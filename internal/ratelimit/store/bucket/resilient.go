package bucket

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"ingestgate/internal/ratelimit/metrics"
	"ingestgate/internal/ratelimit/models"
	"ingestgate/internal/ratelimit/ports"
	"ingestgate/pkg/platform/circuit"
)

// ResilientStore fronts the shared counter store with a circuit breaker.
// Failed calls are answered by an in-memory fallback with Degraded set, so
// limits are still enforced (per instance) while the primary is down.
//
// While the breaker is open the primary is only probed once per probe
// interval. A successful probe answers its own request from the primary,
// still marked degraded; every other request is served by the fallback
// until enough probes succeed to close the breaker. Each request is
// counted in exactly one store.
type ResilientStore struct {
	primary  ports.BucketStore
	fallback ports.BucketStore
	breaker  *circuit.Breaker

	probeInterval time.Duration
	lastProbe     atomic.Int64 // unix nanos

	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type ResilientOption func(*ResilientStore)

func WithBreaker(b *circuit.Breaker) ResilientOption {
	return func(s *ResilientStore) {
		if b != nil {
			s.breaker = b
		}
	}
}

func WithProbeInterval(d time.Duration) ResilientOption {
	return func(s *ResilientStore) {
		if d > 0 {
			s.probeInterval = d
		}
	}
}

func WithResilientLogger(logger *slog.Logger) ResilientOption {
	return func(s *ResilientStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithResilientMetrics(m *metrics.Metrics) ResilientOption {
	return func(s *ResilientStore) {
		s.metrics = m
	}
}

func WithResilientClock(now func() time.Time) ResilientOption {
	return func(s *ResilientStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewResilient wraps primary. A nil fallback gets a fresh in-memory store.
func NewResilient(primary, fallback ports.BucketStore, opts ...ResilientOption) *ResilientStore {
	if fallback == nil {
		fallback = NewInMemoryBucketStore()
	}
	s := &ResilientStore{
		primary:       primary,
		fallback:      fallback,
		breaker:       circuit.New("ratelimit-store"),
		probeInterval: time.Second,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Degraded reports whether limits are currently enforced by the fallback.
func (s *ResilientStore) Degraded() bool {
	return s.breaker.IsOpen()
}

func (s *ResilientStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	return s.AllowN(ctx, key, 1, limit, window)
}

func (s *ResilientStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error) {
	if s.breaker.IsOpen() && !s.claimProbe() {
		return s.degraded(ctx, key, cost, limit, window)
	}

	result, err := s.primary.AllowN(ctx, key, cost, limit, window)
	if err != nil {
		s.metrics.IncrementStoreErrors()
		_, change := s.breaker.RecordFailure()
		if change.Opened {
			s.metrics.SetDegraded(true)
			s.logger.ErrorContext(ctx, "rate limit store unavailable, enforcing limits in memory",
				"breaker", s.breaker.Name(), "error", err)
		} else {
			s.logger.WarnContext(ctx, "rate limit store call failed", "error", err)
		}
		return s.degraded(ctx, key, cost, limit, window)
	}

	usePrimary, change := s.breaker.RecordSuccess()
	if change.Closed {
		s.metrics.SetDegraded(false)
		s.logger.InfoContext(ctx, "rate limit store recovered", "breaker", s.breaker.Name())
	}
	if !usePrimary {
		result.Degraded = true
	}
	return result, nil
}

// Reset clears both stores so a reset issued in degraded mode sticks after
// recovery.
func (s *ResilientStore) Reset(ctx context.Context, key string, window time.Duration) error {
	if err := s.fallback.Reset(ctx, key, window); err != nil {
		return err
	}
	return s.primary.Reset(ctx, key, window)
}

func (s *ResilientStore) GetCurrentCount(ctx context.Context, key string, window time.Duration) (int, error) {
	if s.breaker.IsOpen() {
		return s.fallback.GetCurrentCount(ctx, key, window)
	}
	return s.primary.GetCurrentCount(ctx, key, window)
}

func (s *ResilientStore) degraded(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error) {
	result, err := s.fallback.AllowN(ctx, key, cost, limit, window)
	if err != nil {
		return nil, err
	}
	result.Degraded = true
	return result, nil
}

// claimProbe lets exactly one caller per interval through to the primary.
func (s *ResilientStore) claimProbe() bool {
	now := s.now().UnixNano()
	last := s.lastProbe.Load()
	if now-last < s.probeInterval.Nanoseconds() {
		return false
	}
	return s.lastProbe.CompareAndSwap(last, now)
}
