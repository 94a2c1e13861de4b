package bucket

import (
	"context"
	"sync"
	"time"

	"ingestgate/internal/ratelimit/models"
)

// sweepEvery bounds how many calls may pass between expired-window sweeps.
const sweepEvery = 1024

// InMemoryBucketStore implements BucketStore with fixed windows held in
// process memory. It backs single-instance deployments and the degraded
// mode fallback; counters are not shared across instances.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*fixedWindow
	now     func() time.Time
	calls   int
}

// fixedWindow is the counter for one key in the window starting at start.
type fixedWindow struct {
	start time.Time
	end   time.Time
	count int
}

type MemoryOption func(*InMemoryBucketStore)

// WithClock overrides the store's time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryBucketStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewInMemoryBucketStore(opts ...MemoryOption) *InMemoryBucketStore {
	s := &InMemoryBucketStore{
		buckets: make(map[string]*fixedWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New is an alias for NewInMemoryBucketStore.
func New(opts ...MemoryOption) *InMemoryBucketStore {
	return NewInMemoryBucketStore(opts...)
}

func (s *InMemoryBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	return s.AllowN(ctx, key, 1, limit, window)
}

// AllowN checks and increments under one lock, so concurrent callers can
// never push the count past limit.
func (s *InMemoryBucketStore) AllowN(_ context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeSweep(now)
	fw := s.current(key, now, window)

	if fw.count+cost > limit {
		return models.Rejected(limit, fw.count, fw.end, now), nil
	}
	fw.count += cost
	return models.Admitted(limit, fw.count, fw.end), nil
}

func (s *InMemoryBucketStore) Reset(_ context.Context, key string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

func (s *InMemoryBucketStore) GetCurrentCount(_ context.Context, key string, window time.Duration) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	fw, ok := s.buckets[key]
	if !ok || !now.Before(fw.end) || now.Before(fw.start) {
		return 0, nil
	}
	return fw.count, nil
}

// Len reports the number of tracked keys, including expired ones not yet swept.
func (s *InMemoryBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// current returns the live window for key, rolling it over when now has
// crossed the boundary. Caller holds s.mu.
func (s *InMemoryBucketStore) current(key string, now time.Time, window time.Duration) *fixedWindow {
	start := models.WindowStart(now, window)
	fw, ok := s.buckets[key]
	if !ok || !fw.start.Equal(start) {
		fw = &fixedWindow{start: start, end: start.Add(window)}
		s.buckets[key] = fw
	}
	return fw
}

// maybeSweep drops windows that have ended. Caller holds s.mu.
func (s *InMemoryBucketStore) maybeSweep(now time.Time) {
	s.calls++
	if s.calls < sweepEvery {
		return
	}
	s.calls = 0
	for key, fw := range s.buckets {
		if !now.Before(fw.end) {
			delete(s.buckets, key)
		}
	}
}
