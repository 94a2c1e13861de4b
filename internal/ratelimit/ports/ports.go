// Package ports defines shared interfaces for the ratelimit module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"
	"log/slog"
	"time"

	"ingestgate/internal/ratelimit/models"
	"ingestgate/pkg/platform/attrs"
	"ingestgate/pkg/platform/audit"
	request "ingestgate/pkg/platform/middleware/request"
)

// BucketStore manages fixed-window rate limit counters. Every method
// addresses the window containing the store's current time.
type BucketStore interface {
	// Allow is AllowN with a cost of one.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)

	// AllowN adds cost to the counter only if the result stays within limit.
	// The check and the increment are one atomic step; a rejected call
	// leaves the counter untouched.
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error)

	// Reset clears the counter for the current window.
	Reset(ctx context.Context, key string, window time.Duration) error

	// GetCurrentCount returns the count in the current window.
	GetCurrentCount(ctx context.Context, key string, window time.Duration) (int, error)
}

// LogAudit writes a structured audit log line and, when emitter is set,
// a SecurityEvent. kv are slog key/value pairs; "partner_id", "ip",
// "user_agent" and "detail" are lifted into the event.
func LogAudit(ctx context.Context, logger *slog.Logger, emitter audit.Emitter, kind audit.Kind, kv ...any) {
	if requestID := request.GetRequestID(ctx); requestID != "" {
		kv = append(kv, "request_id", requestID)
	}
	if logger != nil {
		args := append(kv, "event", string(kind), "log_type", "audit")
		logger.InfoContext(ctx, string(kind), args...)
	}
	if emitter == nil {
		return
	}
	emitter.Emit(ctx, audit.SecurityEvent{
		Kind:      kind,
		PartnerID: attrs.ExtractString(kv, "partner_id"),
		IP:        attrs.ExtractString(kv, "ip"),
		UserAgent: attrs.ExtractString(kv, "user_agent"),
		Detail:    attrs.ExtractString(kv, "detail"),
	})
}
