// Package admin implements operator actions on rate limit state.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ingestgate/internal/ratelimit/metrics"
	"ingestgate/internal/ratelimit/models"
	"ingestgate/internal/ratelimit/ports"
	"ingestgate/pkg/platform/audit"
	"ingestgate/pkg/requestcontext"
)

// Limiter clears counters. Implemented by requestlimit.Service.
type Limiter interface {
	Reset(ctx context.Context, kind models.LimiterKind, identifier string, classes ...models.EndpointClass) error
}

// AuditPublisher receives the reset audit record.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.SecurityEvent)
}

type Service struct {
	limiter        Limiter
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(limiter Limiter, opts ...Option) (*Service, error) {
	if limiter == nil {
		return nil, errors.New("limiter is required")
	}
	s := &Service{limiter: limiter, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ResetRateLimit clears the current window for an IP or partner and records
// who asked for it.
func (s *Service) ResetRateLimit(ctx context.Context, req *models.ResetRateLimitRequest) (*models.ResetRateLimitResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	classes := req.Classes()
	if err := s.limiter.Reset(ctx, req.Type, req.Identifier, classes...); err != nil {
		return nil, err
	}
	s.metrics.IncrementResets(string(req.Type))

	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = string(c)
	}
	kv := []any{
		"ip", requestcontext.ClientIP(ctx),
		"user_agent", requestcontext.UserAgent(ctx),
		"detail", string(req.Type) + ":" + req.Identifier + " classes=" + strings.Join(names, ","),
	}
	if req.Type == models.LimiterCredential {
		kv = append(kv, "partner_id", req.Identifier)
	}
	var emitter audit.Emitter
	if s.auditPublisher != nil {
		emitter = s.auditPublisher
	}
	ports.LogAudit(ctx, s.logger, emitter, audit.KindRateLimitReset, kv...)

	return &models.ResetRateLimitResponse{
		Type:       req.Type,
		Identifier: req.Identifier,
		Classes:    classes,
	}, nil
}
