package admin

//go:generate mockgen -source=admin.go -destination=mocks/mocks.go -package=mocks Limiter,AuditPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ingestgate/internal/ratelimit/admin/mocks"
	"ingestgate/internal/ratelimit/models"
	dErrors "ingestgate/pkg/domain-errors"
	"ingestgate/pkg/platform/audit"
	"ingestgate/pkg/requestcontext"
)

// =============================================================================
// Admin Service Test Suite
// =============================================================================
// The admin service resets limiter counters on operator request. Tests cover
// constructor invariants, input validation, error propagation, and the audit
// record written for every reset.

type AdminServiceSuite struct {
	suite.Suite
	ctrl               *gomock.Controller
	mockLimiter        *mocks.MockLimiter
	mockAuditPublisher *mocks.MockAuditPublisher
	service            *Service
}

func TestAdminServiceSuite(t *testing.T) {
	suite.Run(t, new(AdminServiceSuite))
}

func (s *AdminServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockLimiter = mocks.NewMockLimiter(s.ctrl)
	s.mockAuditPublisher = mocks.NewMockAuditPublisher(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service, _ = New(
		s.mockLimiter,
		WithLogger(logger),
		WithAuditPublisher(s.mockAuditPublisher),
	)
}

func (s *AdminServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AdminServiceSuite) TestNew() {
	s.Run("nil limiter returns error", func() {
		_, err := New(nil)
		s.Error(err)
		s.Contains(err.Error(), "limiter is required")
	})

	s.Run("with options applies options", func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc, err := New(s.mockLimiter, WithLogger(logger), WithAuditPublisher(s.mockAuditPublisher))
		s.NoError(err)
		s.Equal(logger, svc.logger)
		s.Equal(s.mockAuditPublisher, svc.auditPublisher)
	})
}

func (s *AdminServiceSuite) TestResetRateLimit() {
	ctx := requestcontext.WithClientMetadata(context.Background(), "10.0.0.5", "ops-cli/1.2")

	s.Run("ip reset for one class emits audit record", func() {
		s.mockLimiter.EXPECT().
			Reset(gomock.Any(), models.LimiterIP, "203.0.113.7", models.ClassIngest).
			Return(nil)
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, e audit.SecurityEvent) {
				s.Equal(audit.KindRateLimitReset, e.Kind)
				s.Equal("10.0.0.5", e.IP, "records the operator's address")
				s.Equal("ops-cli/1.2", e.UserAgent)
				s.Contains(e.Detail, "ip:203.0.113.7")
				s.Empty(e.PartnerID)
			})

		resp, err := s.service.ResetRateLimit(ctx, &models.ResetRateLimitRequest{
			Type: "ip", Identifier: "203.0.113.7", Class: "ingest",
		})
		s.Require().NoError(err)
		s.Equal([]models.EndpointClass{models.ClassIngest}, resp.Classes)
	})

	s.Run("credential reset without class clears every class", func() {
		partnerID := "6f1d7c2e-3b0a-4d4e-9a57-1e2f3a4b5c6d"
		s.mockLimiter.EXPECT().
			Reset(gomock.Any(), models.LimiterCredential, partnerID,
				models.ClassIngest, models.ClassRead, models.ClassAdmin).
			Return(nil)
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, e audit.SecurityEvent) {
				s.Equal(partnerID, e.PartnerID)
			})

		resp, err := s.service.ResetRateLimit(ctx, &models.ResetRateLimitRequest{
			Type: "credential", Identifier: partnerID,
		})
		s.Require().NoError(err)
		s.Len(resp.Classes, 3)
	})

	s.Run("invalid request never reaches the limiter", func() {
		_, err := s.service.ResetRateLimit(ctx, &models.ResetRateLimitRequest{Type: "user_id", Identifier: "x"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("limiter error propagates without audit", func() {
		s.mockLimiter.EXPECT().Reset(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(dErrors.Wrap(errors.New("redis down"), dErrors.CodeInternal, "failed to reset rate limit"))

		_, err := s.service.ResetRateLimit(ctx, &models.ResetRateLimitRequest{
			Type: "ip", Identifier: "203.0.113.7", Class: "read",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
