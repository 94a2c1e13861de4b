package bucket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ingestgate/internal/ratelimit/models"
)

// allowQuery inserts the first hit of a window or adds cost to an existing
// row, but only while the new count stays within $5. Zero rows returned
// means the request was rejected and nothing was written.
const allowQuery = `
INSERT INTO rate_limit_counters (key, window_start, count, expires_at)
SELECT $1, $2::timestamptz, $3::integer, $4::timestamptz
WHERE $3::integer <= $5::integer
ON CONFLICT (key, window_start) DO UPDATE
	SET count = rate_limit_counters.count + EXCLUDED.count
	WHERE rate_limit_counters.count + EXCLUDED.count <= $5::integer
RETURNING count`

// PostgresBucketStore implements BucketStore on the rate_limit_counters
// table. It lets deployments without Redis share counters through the
// database they already run.
type PostgresBucketStore struct {
	db  *sql.DB
	now func() time.Time
}

type PostgresOption func(*PostgresBucketStore)

func WithPostgresClock(now func() time.Time) PostgresOption {
	return func(s *PostgresBucketStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresBucketStore {
	s := &PostgresBucketStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	return s.AllowN(ctx, key, 1, limit, window)
}

func (s *PostgresBucketStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := s.now()
	start := models.WindowStart(now, window)
	end := start.Add(window)

	var count int
	err := s.db.QueryRowContext(ctx, allowQuery, key, start, cost, end, limit).Scan(&count)
	if err == nil {
		return models.Admitted(limit, count, end), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres allow %s: %w", key, err)
	}

	current, err := s.countAt(ctx, key, start)
	if err != nil {
		return nil, err
	}
	return models.Rejected(limit, current, end, now), nil
}

func (s *PostgresBucketStore) Reset(ctx context.Context, key string, window time.Duration) error {
	start := models.WindowStart(s.now(), window)
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_limit_counters WHERE key = $1 AND window_start = $2`, key, start); err != nil {
		return fmt.Errorf("postgres reset %s: %w", key, err)
	}
	return nil
}

func (s *PostgresBucketStore) GetCurrentCount(ctx context.Context, key string, window time.Duration) (int, error) {
	return s.countAt(ctx, key, models.WindowStart(s.now(), window))
}

// DeleteExpired removes rows whose window has ended and returns how many
// were dropped.
func (s *PostgresBucketStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rate_limit_counters WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("postgres delete expired counters: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresBucketStore) countAt(ctx context.Context, key string, start time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM rate_limit_counters WHERE key = $1 AND window_start = $2`, key, start).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres count %s: %w", key, err)
	}
	return count, nil
}
