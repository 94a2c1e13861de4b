package bucket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"ingestgate/internal/ratelimit/metrics"
	"ingestgate/internal/ratelimit/models"
	"ingestgate/pkg/platform/circuit"
)

var errStoreDown = errors.New("connection refused")

// flakyStore is an in-memory store whose AllowN fails while down is set.
type flakyStore struct {
	*InMemoryBucketStore
	down  atomic.Bool
	calls atomic.Int32
}

func (f *flakyStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return nil, errStoreDown
	}
	return f.InMemoryBucketStore.AllowN(ctx, key, cost, limit, window)
}

type ResilientStoreSuite struct {
	suite.Suite
	ctx      context.Context
	clock    *fakeClock
	primary  *flakyStore
	fallback *InMemoryBucketStore
	metrics  *metrics.Metrics
	store    *ResilientStore
}

func TestResilientStoreSuite(t *testing.T) {
	suite.Run(t, new(ResilientStoreSuite))
}

func (s *ResilientStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)}
	s.primary = &flakyStore{InMemoryBucketStore: NewInMemoryBucketStore(WithClock(s.clock.Now))}
	s.fallback = NewInMemoryBucketStore(WithClock(s.clock.Now))
	s.metrics = metrics.New(nil)
	s.store = NewResilient(s.primary, s.fallback,
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(2))),
		WithProbeInterval(time.Second),
		WithResilientLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithResilientMetrics(s.metrics),
		WithResilientClock(s.clock.Now),
	)
}

func (s *ResilientStoreSuite) TestHealthyPrimaryIsAuthoritative() {
	result, err := s.store.Allow(s.ctx, "k", 5, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.False(result.Degraded)
	s.False(s.store.Degraded())

	count, err := s.fallback.GetCurrentCount(s.ctx, "k", time.Minute)
	s.Require().NoError(err)
	s.Equal(0, count, "fallback untouched while healthy")
}

func (s *ResilientStoreSuite) TestFailureServedByFallback() {
	s.primary.down.Store(true)

	result, err := s.store.Allow(s.ctx, "k", 5, time.Minute)
	s.Require().NoError(err, "store errors never surface to the caller")
	s.True(result.Allowed)
	s.True(result.Degraded)
	s.False(s.store.Degraded(), "one failure does not open the breaker")
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.StoreErrors))
}

func (s *ResilientStoreSuite) TestOpenBreakerEnforcesLimitsInMemory() {
	s.primary.down.Store(true)
	for range 2 {
		_, err := s.store.Allow(s.ctx, "k", 3, time.Minute)
		s.Require().NoError(err)
	}
	s.True(s.store.Degraded())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Degraded))

	result, err := s.store.Allow(s.ctx, "k", 3, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.True(result.Degraded)

	result, err = s.store.Allow(s.ctx, "k", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed, "fallback budget exhausted")
	s.True(result.Degraded)
}

func (s *ResilientStoreSuite) TestOpenBreakerProbesOncePerInterval() {
	s.primary.down.Store(true)
	for range 2 {
		_, _ = s.store.Allow(s.ctx, "k", 100, time.Minute)
	}
	s.Require().True(s.store.Degraded())
	before := s.primary.calls.Load()

	for range 10 {
		_, _ = s.store.Allow(s.ctx, "k", 100, time.Minute)
	}
	s.Equal(before+1, s.primary.calls.Load(), "only the first call in the interval probes")

	s.clock.Set(s.clock.Now().Add(time.Second))
	_, _ = s.store.Allow(s.ctx, "k", 100, time.Minute)
	s.Equal(before+2, s.primary.calls.Load())
}

func (s *ResilientStoreSuite) TestRecoveryClosesBreaker() {
	s.primary.down.Store(true)
	for range 2 {
		_, _ = s.store.Allow(s.ctx, "k", 100, time.Minute)
	}
	s.Require().True(s.store.Degraded())

	s.primary.down.Store(false)
	for i := range 2 {
		s.clock.Set(s.clock.Now().Add(time.Second))
		result, err := s.store.Allow(s.ctx, "k", 100, time.Minute)
		s.Require().NoError(err)
		if i == 0 {
			s.True(result.Degraded, "fallback stays authoritative until the breaker closes")
		}
	}
	s.False(s.store.Degraded())
	s.Equal(float64(0), testutil.ToFloat64(s.metrics.Degraded))

	result, err := s.store.Allow(s.ctx, "k", 100, time.Minute)
	s.Require().NoError(err)
	s.False(result.Degraded)
}

func (s *ResilientStoreSuite) TestResetClearsBothStores() {
	_, _ = s.primary.InMemoryBucketStore.Allow(s.ctx, "k", 5, time.Minute)
	_, _ = s.fallback.Allow(s.ctx, "k", 5, time.Minute)

	s.Require().NoError(s.store.Reset(s.ctx, "k", time.Minute))

	p, _ := s.primary.GetCurrentCount(s.ctx, "k", time.Minute)
	f, _ := s.fallback.GetCurrentCount(s.ctx, "k", time.Minute)
	s.Equal(0, p)
	s.Equal(0, f)
}

func (s *ResilientStoreSuite) TestSuccessfulProbeCountsOnce() {
	s.primary.down.Store(true)
	for range 2 {
		_, _ = s.store.Allow(s.ctx, "k", 100, time.Minute)
	}
	s.Require().True(s.store.Degraded())
	fallbackBefore, err := s.fallback.GetCurrentCount(s.ctx, "k", time.Minute)
	s.Require().NoError(err)

	s.primary.down.Store(false)
	s.clock.Set(s.clock.Now().Add(time.Second))
	result, err := s.store.Allow(s.ctx, "k", 100, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.True(result.Degraded, "breaker still half-open after one success")
	s.Require().True(s.store.Degraded())

	primaryCount, err := s.primary.GetCurrentCount(s.ctx, "k", time.Minute)
	s.Require().NoError(err)
	fallbackAfter, err := s.fallback.GetCurrentCount(s.ctx, "k", time.Minute)
	s.Require().NoError(err)
	s.Equal(1, primaryCount)
	s.Equal(fallbackBefore, fallbackAfter, "probe request is not counted again in the fallback")
}
