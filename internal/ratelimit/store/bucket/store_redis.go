package bucket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ingestgate/internal/ratelimit/models"
)

// allowScript increments KEYS[1] by ARGV[1] only if the result stays within
// ARGV[2]. The TTL (ARGV[3], ms) is set on the first increment of a window.
// Returns {admitted, count}.
var allowScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local cost = tonumber(ARGV[1])
if current + cost > tonumber(ARGV[2]) then
	return {0, current}
end
local n = redis.call('INCRBY', KEYS[1], cost)
if n == cost then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return {1, n}
`)

// RedisBucketStore implements BucketStore on a shared Redis so every gateway
// instance draws from the same budget. One key exists per window:
// "<key>:<window start ms>".
type RedisBucketStore struct {
	client redis.Cmdable
	now    func() time.Time
}

type RedisOption func(*RedisBucketStore)

func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisBucketStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRedis(client redis.Cmdable, opts ...RedisOption) *RedisBucketStore {
	s := &RedisBucketStore{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	return s.AllowN(ctx, key, 1, limit, window)
}

func (s *RedisBucketStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := s.now()
	start := models.WindowStart(now, window)
	end := start.Add(window)
	// Outlive the window by one full length to absorb clock skew between instances.
	ttl := end.Sub(now) + window

	res, err := allowScript.Run(ctx, s.client,
		[]string{models.WindowKey(key, start.UnixMilli())},
		cost, limit, ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis allow %s: %w", key, err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("redis allow %s: unexpected reply length %d", key, len(res))
	}

	count := int(res[1])
	if res[0] == 0 {
		return models.Rejected(limit, count, end, now), nil
	}
	return models.Admitted(limit, count, end), nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string, window time.Duration) error {
	start := models.WindowStart(s.now(), window)
	if err := s.client.Del(ctx, models.WindowKey(key, start.UnixMilli())).Err(); err != nil {
		return fmt.Errorf("redis reset %s: %w", key, err)
	}
	return nil
}

func (s *RedisBucketStore) GetCurrentCount(ctx context.Context, key string, window time.Duration) (int, error) {
	start := models.WindowStart(s.now(), window)
	n, err := s.client.Get(ctx, models.WindowKey(key, start.UnixMilli())).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis count %s: %w", key, err)
	}
	return n, nil
}
