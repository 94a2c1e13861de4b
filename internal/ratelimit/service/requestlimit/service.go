package requestlimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ingestgate/internal/ratelimit/config"
	"ingestgate/internal/ratelimit/metrics"
	"ingestgate/internal/ratelimit/models"
	"ingestgate/internal/ratelimit/ports"
	dErrors "ingestgate/pkg/domain-errors"
	"ingestgate/pkg/platform/privacy"
	"ingestgate/pkg/requestcontext"
)

// BucketStore is aliased so callers need not import ports directly.
type BucketStore = ports.BucketStore

const defaultCounterTimeout = 250 * time.Millisecond

// Service runs the IP and credential limiters.
type Service struct {
	buckets        BucketStore
	config         *config.Holder
	logger         *slog.Logger
	metrics        *metrics.Metrics
	counterTimeout time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConfig pins a static budget config.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = config.NewHolder(cfg)
	}
}

// WithConfigHolder reads budgets from a holder that a watcher may swap.
func WithConfigHolder(h *config.Holder) Option {
	return func(s *Service) {
		if h != nil {
			s.config = h
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCounterTimeout bounds each counter store call.
func WithCounterTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.counterTimeout = d
		}
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}

	svc := &Service{
		buckets:        buckets,
		config:         config.NewHolder(config.DefaultConfig()),
		logger:         slog.Default(),
		counterTimeout: defaultCounterTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckIP counts one request against the IP limiter.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit, ok := s.config.Current().GetIPLimit(class)
	if !ok {
		return s.denyUnconfigured(ctx, models.LimiterIP, class), nil
	}
	return s.check(ctx, models.LimiterIP, ip, class, limit, privacy.AnonymizeIP(ip))
}

// CheckCredential counts one request against the partner's budget.
func (s *Service) CheckCredential(ctx context.Context, partnerID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit, ok := s.config.Current().GetCredentialLimit(class)
	if !ok {
		return s.denyUnconfigured(ctx, models.LimiterCredential, class), nil
	}
	return s.check(ctx, models.LimiterCredential, partnerID, class, limit, partnerID)
}

// CheckBoth runs the IP limiter, then the credential limiter. A request the
// IP limiter rejects never touches the credential counter; a request the
// credential limiter rejects keeps the IP unit it already spent. When both
// admit, the more restrictive result is returned for the response headers.
func (s *Service) CheckBoth(ctx context.Context, ip, partnerID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	ipRes, err := s.CheckIP(ctx, ip, class)
	if err != nil {
		return nil, err
	}
	if !ipRes.Allowed {
		return ipRes, nil
	}

	credRes, err := s.CheckCredential(ctx, partnerID, class)
	if err != nil {
		return nil, err
	}
	if !credRes.Allowed {
		credRes.Degraded = credRes.Degraded || ipRes.Degraded
		return credRes, nil
	}

	res := moreRestrictiveResult(ipRes, credRes)
	res.Degraded = ipRes.Degraded || credRes.Degraded
	return res, nil
}

// Reset clears the current window of one limiter subject for the given
// classes.
func (s *Service) Reset(ctx context.Context, kind models.LimiterKind, identifier string, classes ...models.EndpointClass) error {
	cfg := s.config.Current()
	for _, class := range classes {
		var (
			limit config.Limit
			ok    bool
		)
		if kind == models.LimiterIP {
			limit, ok = cfg.GetIPLimit(class)
		} else {
			limit, ok = cfg.GetCredentialLimit(class)
		}
		window := config.DefaultWindow
		if ok {
			window = limit.Window
		}

		key := models.NewRateLimitKey(kind, identifier, class)
		storeCtx, cancel := s.storeContext(ctx)
		err := s.buckets.Reset(storeCtx, key, window)
		cancel()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limit")
		}
	}
	return nil
}

func (s *Service) check(
	ctx context.Context,
	kind models.LimiterKind,
	identifier string,
	class models.EndpointClass,
	limit config.Limit,
	logIdentifier string,
) (*models.RateLimitResult, error) {
	start := time.Now()
	key := models.NewRateLimitKey(kind, identifier, class)

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	result, err := s.buckets.Allow(storeCtx, key, limit.Budget(), limit.Window)
	if err != nil {
		s.logger.ErrorContext(ctx, "rate limit check failed",
			"limiter", kind, "endpoint_class", class, "identifier", logIdentifier, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	result.Limiter = kind
	result.ApplyBurst(limit.Burst)
	s.metrics.ObserveDecision(string(kind), string(class), result.Allowed, start)

	if !result.Allowed {
		s.logger.WarnContext(ctx, "rate limit exceeded",
			"limiter", kind,
			"endpoint_class", class,
			"identifier", logIdentifier,
			"limit", result.Limit,
			"window_seconds", int(limit.Window.Seconds()),
			"degraded", result.Degraded,
		)
	}
	return result, nil
}

// denyUnconfigured rejects requests for a class with no budget rather than
// letting them through unlimited.
func (s *Service) denyUnconfigured(ctx context.Context, kind models.LimiterKind, class models.EndpointClass) *models.RateLimitResult {
	s.metrics.IncrementConfigMissing(string(kind), string(class))
	s.logger.ErrorContext(ctx, "rate limit config missing, denying request",
		"limiter", kind, "endpoint_class", class)
	now := requestcontext.Now(ctx)
	return &models.RateLimitResult{
		Allowed:    false,
		ResetAt:    now.Add(config.DefaultWindow),
		RetryAfter: int(config.DefaultWindow.Seconds()),
		Limiter:    kind,
	}
}

// storeContext detaches the counter call from request cancellation so an
// increment is never abandoned halfway, bounded by the counter timeout.
func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.counterTimeout)
}

// moreRestrictiveResult returns the result with fewer remaining requests,
// or the earlier reset time if remaining counts are equal.
func moreRestrictiveResult(a, b *models.RateLimitResult) *models.RateLimitResult {
	if a.Remaining < b.Remaining {
		return a
	}
	if b.Remaining < a.Remaining {
		return b
	}
	if a.ResetAt.Before(b.ResetAt) {
		return a
	}
	return b
}
