// Package gate authenticates partner requests and enforces the IP and
// credential rate limits before any handler runs.
package gate

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	partnermodels "ingestgate/internal/partner/models"
	"ingestgate/internal/ratelimit/models"
	"ingestgate/internal/ratelimit/ports"
	dErrors "ingestgate/pkg/domain-errors"
	"ingestgate/pkg/platform/audit"
	"ingestgate/pkg/platform/httputil"
	"ingestgate/pkg/platform/privacy"
	"ingestgate/pkg/requestcontext"
)

const (
	HeaderAPIKey        = "X-API-Key"
	HeaderLimit         = "X-RateLimit-Limit"
	HeaderRemaining     = "X-RateLimit-Remaining"
	HeaderReset         = "X-RateLimit-Reset"
	HeaderBurstRemain   = "X-RateLimit-Burst-Remaining"
	HeaderLimiterStatus = "X-RateLimit-Status"

	bearerPrefix = "bearer "
)

// Resolver maps a presented API key to a partner identity.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (partnermodels.Identity, error)
}

// Limiter checks budgets. CheckBoth runs the IP limiter, then the
// credential limiter.
type Limiter interface {
	CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error)
	CheckBoth(ctx context.Context, ip, partnerID string, class models.EndpointClass) (*models.RateLimitResult, error)
}

type Gate struct {
	resolver Resolver
	limiter  Limiter
	emitter  audit.Emitter
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// WithEmitter sets where SecurityEvents for rejected requests go.
func WithEmitter(e audit.Emitter) Option {
	return func(g *Gate) { g.emitter = e }
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

func New(resolver Resolver, limiter Limiter, opts ...Option) *Gate {
	g := &Gate{
		resolver: resolver,
		limiter:  limiter,
		emitter:  audit.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require returns middleware admitting only authenticated partners within
// both budgets of class. The metadata middleware must run first.
func (g *Gate) Require(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			userAgent := requestcontext.UserAgent(ctx)

			raw := ExtractCredential(r)
			if raw == "" {
				g.reject(ctx, audit.KindMissingCredential, "ip", ip, "user_agent", userAgent)
				writeUnauthenticated(w, dErrors.New(dErrors.CodeUnauthenticated, "Missing API key"))
				return
			}

			identity, err := g.resolver.Resolve(ctx, raw)
			if err != nil {
				if !dErrors.HasCode(err, dErrors.CodeUnauthenticated) {
					g.logger.ErrorContext(ctx, "credential resolution failed",
						"ip_prefix", privacy.AnonymizeIP(ip),
						"error", err,
					)
					httputil.WriteError(w, err)
					return
				}
				g.reject(ctx, audit.KindInvalidCredential, "ip", ip, "user_agent", userAgent)
				writeUnauthenticated(w, err)
				return
			}

			partnerID := identity.PartnerID.String()
			result, err := g.limiter.CheckBoth(ctx, ip, partnerID, class)
			if err != nil {
				g.logger.ErrorContext(ctx, "rate limit check failed",
					"ip_prefix", privacy.AnonymizeIP(ip),
					"partner_id", partnerID,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				g.reject(ctx, audit.KindRateLimitExceeded,
					"ip", ip,
					"user_agent", userAgent,
					"partner_id", partnerID,
					"detail", string(result.Limiter),
				)
				writeRateLimitExceeded(w, result)
				return
			}

			ctx = requestcontext.WithPartnerID(ctx, identity.PartnerID)
			ctx = requestcontext.WithCredentialID(ctx, identity.CredentialID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LimitIP returns middleware enforcing only the IP budget of class, for
// routes that are not partner-authenticated.
func (g *Gate) LimitIP(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := g.limiter.CheckIP(ctx, ip, class)
			if err != nil {
				g.logger.ErrorContext(ctx, "rate limit check failed",
					"ip_prefix", privacy.AnonymizeIP(ip),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				g.reject(ctx, audit.KindRateLimitExceeded,
					"ip", ip,
					"user_agent", requestcontext.UserAgent(ctx),
					"detail", string(result.Limiter),
				)
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) reject(ctx context.Context, kind audit.Kind, kv ...any) {
	g.metrics.IncrementRejection(kind)
	ports.LogAudit(ctx, g.logger, g.emitter, kind, kv...)
}

// ExtractCredential returns the bearer token or, failing that, the
// X-API-Key header. Other Authorization schemes are ignored.
func ExtractCredential(r *http.Request) string {
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if len(authz) > len(bearerPrefix) && strings.EqualFold(authz[:len(bearerPrefix)], bearerPrefix) {
			if token := strings.TrimSpace(authz[len(bearerPrefix):]); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(r.Header.Get(HeaderAPIKey))
}

func writeUnauthenticated(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="ingest"`)
	httputil.WriteError(w, err)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	h := w.Header()
	h.Set(HeaderLimit, strconv.Itoa(result.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(result.Remaining))
	h.Set(HeaderReset, strconv.FormatInt(result.ResetAt.Unix(), 10))
	h.Set(HeaderBurstRemain, strconv.Itoa(result.BurstRemaining))
	if result.Degraded {
		h.Set(HeaderLimiterStatus, "degraded")
	}
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	httputil.WriteRetryAfter(w, result.RetryAfter)
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "Rate limit exceeded",
		Limiter:    result.Limiter,
		Limit:      result.Limit,
		Remaining:  result.Remaining,
		ResetAt:    result.ResetAt.UTC().Truncate(time.Second),
		RetryAfter: result.RetryAfter,
	})
}
