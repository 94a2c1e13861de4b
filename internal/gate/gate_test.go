package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	partnermodels "ingestgate/internal/partner/models"
	"ingestgate/internal/partner/secrets"
	partnerservice "ingestgate/internal/partner/service"
	partnerstore "ingestgate/internal/partner/store"
	"ingestgate/internal/ratelimit/config"
	"ingestgate/internal/ratelimit/models"
	"ingestgate/internal/ratelimit/service/requestlimit"
	"ingestgate/internal/ratelimit/store/bucket"
	id "ingestgate/pkg/domain"
	dErrors "ingestgate/pkg/domain-errors"
	"ingestgate/pkg/platform/audit"
	metadata "ingestgate/pkg/platform/middleware/metadata"
	"ingestgate/pkg/requestcontext"
	httptestutil "ingestgate/pkg/testutil"
)

const clientAddr = "198.51.100.23:51000"

type recordingEmitter struct {
	mu     sync.Mutex
	events []audit.SecurityEvent
}

func (r *recordingEmitter) Emit(_ context.Context, e audit.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) all() []audit.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.SecurityEvent(nil), r.events...)
}

type GateSuite struct {
	suite.Suite
	now       time.Time
	emitter   *recordingEmitter
	metrics   *Metrics
	partnerID id.PartnerID
	apiKey    string
	handler   http.Handler
	reached   int
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// 10s into a minute-aligned window.
	s.now = time.Date(2026, 5, 4, 12, 30, 10, 0, time.UTC)

	partners := partnerstore.NewInMemory()
	s.partnerID = id.PartnerID(uuid.New())
	s.Require().NoError(partners.CreatePartner(ctx, &partnermodels.Partner{ID: s.partnerID, Name: "acme", Active: true}))
	hash, err := secrets.HashWithCost("s3cr3t-value", bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(partners.CreateCredential(ctx, &partnermodels.Credential{
		ID: id.CredentialID(uuid.New()), PartnerID: s.partnerID, KeyID: "pk_acme", SecretHash: hash,
	}))
	s.apiKey = partnermodels.FormatAPIKey("pk_acme", "s3cr3t-value")

	dummy, err := secrets.HashWithCost("dummy", bcrypt.MinCost)
	s.Require().NoError(err)
	resolver := partnerservice.New(partners, partnerservice.WithLogger(logger), partnerservice.WithDummyHash(dummy))

	store := bucket.NewInMemoryBucketStore(bucket.WithClock(func() time.Time { return s.now }))
	limiter, err := requestlimit.New(store,
		requestlimit.WithLogger(logger),
		requestlimit.WithConfig(&config.Config{Classes: map[models.EndpointClass]config.ClassLimits{
			models.ClassIngest: {
				IP:         config.Limit{RequestsPerWindow: 3, Burst: 2, Window: time.Minute},
				Credential: config.Limit{RequestsPerWindow: 100, Window: time.Minute},
			},
		}}),
	)
	s.Require().NoError(err)

	s.emitter = &recordingEmitter{}
	s.metrics = NewMetrics(nil)
	g := New(resolver, limiter, WithLogger(logger), WithEmitter(s.emitter), WithMetrics(s.metrics))

	s.reached = 0
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.reached++
		s.Equal(s.partnerID, requestcontext.PartnerID(r.Context()))
		s.False(requestcontext.CredentialID(r.Context()).IsNil())
		w.WriteHeader(http.StatusCreated)
	})
	s.handler = metadata.ClientMetadata(false)(g.Require(models.ClassIngest)(inner))
}

func (s *GateSuite) do(apiKey string) *httptest.ResponseRecorder {
	req := httptestutil.NewIngestRequest(s.T(), map[string]any{"eventType": "user_engagement"}, apiKey, clientAddr)
	req.Header.Set("User-Agent", "partner-sdk/3.1")
	return httptestutil.DoRequest(s.handler, req)
}

func (s *GateSuite) TestMissingCredential() {
	rec := s.do("")

	httptestutil.AssertStatusAndError(s.T(), rec, http.StatusUnauthorized, "Missing API key")
	s.Zero(s.reached)
	events := s.emitter.all()
	s.Require().Len(events, 1, "exactly one security event per rejection")
	s.Equal(audit.KindMissingCredential, events[0].Kind)
	s.Equal("198.51.100.23", events[0].IP)
	s.Equal("partner-sdk/3.1", events[0].UserAgent)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Rejections.WithLabelValues(string(audit.KindMissingCredential))))
}

func (s *GateSuite) TestInvalidCredential() {
	for _, key := range []string{"pk_acme.wrong-secret", "pk_unknown.s3cr3t-value", "no-separator"} {
		rec := s.do(key)
		s.Equal(http.StatusUnauthorized, rec.Code, key)
	}
	events := s.emitter.all()
	s.Require().Len(events, 3)
	for _, e := range events {
		s.Equal(audit.KindInvalidCredential, e.Kind)
		s.Empty(e.PartnerID)
	}
}

func (s *GateSuite) TestBearerCredentialAccepted() {
	req := httptestutil.NewIngestRequest(s.T(), map[string]any{}, "", clientAddr)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	rec := httptestutil.DoRequest(s.handler, req)

	s.Equal(http.StatusCreated, rec.Code)
	s.Equal(1, s.reached)
	s.Equal("5", rec.Header().Get(HeaderLimit))
	s.Equal("4", rec.Header().Get(HeaderRemaining))
	s.Equal("1", rec.Header().Get(HeaderBurstRemain))
	s.Empty(s.emitter.all())
}

func (s *GateSuite) TestBurstExhaustionThenRollover() {
	for i := range 5 {
		rec := s.do(s.apiKey)
		s.Require().Equal(http.StatusCreated, rec.Code, "request %d", i+1)
	}

	rec := s.do(s.apiKey)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("50", rec.Header().Get("Retry-After"))
	s.Equal("0", rec.Header().Get(HeaderRemaining))
	body := httptestutil.UnmarshalResponse[models.RateLimitExceededResponse](s.T(), rec)
	s.Equal("Rate limit exceeded", body.Error)
	s.Equal(models.LimiterIP, body.Limiter)

	events := s.emitter.all()
	s.Require().Len(events, 1)
	s.Equal(audit.KindRateLimitExceeded, events[0].Kind)
	s.Equal("ip", events[0].Detail)
	s.Equal(s.partnerID.String(), events[0].PartnerID)

	s.now = s.now.Add(50 * time.Second)
	rec = s.do(s.apiKey)
	s.Equal(http.StatusCreated, rec.Code, "budget restored at the window boundary")
	s.Equal(6, s.reached)
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string) (partnermodels.Identity, error) {
	return partnermodels.Identity{}, dErrors.Wrap(errors.New("connection refused"), dErrors.CodeInternal, "credential lookup failed")
}

type unusedLimiter struct{ called bool }

func (l *unusedLimiter) CheckIP(context.Context, string, models.EndpointClass) (*models.RateLimitResult, error) {
	l.called = true
	return nil, errors.New("unexpected")
}

func (l *unusedLimiter) CheckBoth(context.Context, string, string, models.EndpointClass) (*models.RateLimitResult, error) {
	l.called = true
	return nil, errors.New("unexpected")
}

func (s *GateSuite) TestResolverFailureFailsClosed() {
	limiter := &unusedLimiter{}
	g := New(failingResolver{}, limiter, WithEmitter(s.emitter), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h := g.Require(models.ClassIngest)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		s.Fail("handler must not run")
	}))

	rec := httptestutil.DoRequest(h, httptestutil.NewIngestRequest(s.T(), map[string]any{}, s.apiKey, clientAddr))
	httptestutil.AssertStatusAndError(s.T(), rec, http.StatusInternalServerError, "Internal server error")
	s.False(limiter.called)
	s.Empty(s.emitter.all())
}

func (s *GateSuite) TestLimitIPOnly() {
	store := bucket.NewInMemoryBucketStore()
	limiter, err := requestlimit.New(store, requestlimit.WithConfig(&config.Config{Classes: map[models.EndpointClass]config.ClassLimits{
		models.ClassAdmin: {
			IP:         config.Limit{RequestsPerWindow: 1, Window: time.Minute},
			Credential: config.Limit{RequestsPerWindow: 1, Window: time.Minute},
		},
	}}))
	s.Require().NoError(err)
	g := New(nil, limiter, WithEmitter(s.emitter), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h := metadata.ClientMetadata(false)(g.LimitIP(models.ClassAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/admin/rate-limit/reset", nil)
		r.RemoteAddr = clientAddr
		return httptestutil.DoRequest(h, r)
	}
	s.Equal(http.StatusOK, req().Code)
	rec := req()
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.NotEmpty(rec.Header().Get("Retry-After"))

	events := s.emitter.all()
	s.Require().Len(events, 1)
	s.Equal("ip", events[0].Detail)
	s.Empty(events[0].PartnerID)
}

func (s *GateSuite) TestDegradedLimiterIsAdvertised() {
	g := New(nil, degradedLimiter{}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h := g.LimitIP(models.ClassIngest)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptestutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("degraded", rec.Header().Get(HeaderLimiterStatus))
}

type degradedLimiter struct{}

func (degradedLimiter) CheckIP(context.Context, string, models.EndpointClass) (*models.RateLimitResult, error) {
	res := models.Admitted(10, 1, time.Now().Add(time.Minute))
	res.Limiter = models.LimiterIP
	res.Degraded = true
	return res, nil
}

func (degradedLimiter) CheckBoth(ctx context.Context, ip, _ string, class models.EndpointClass) (*models.RateLimitResult, error) {
	return degradedLimiter{}.CheckIP(ctx, ip, class)
}

func TestExtractCredential(t *testing.T) {
	cases := []struct {
		name   string
		authz  string
		apiKey string
		want   string
	}{
		{name: "bearer", authz: "Bearer abc.def", want: "abc.def"},
		{name: "bearer case insensitive", authz: "bearer abc.def", want: "abc.def"},
		{name: "api key header", apiKey: " abc.def ", want: "abc.def"},
		{name: "bearer wins over api key", authz: "Bearer one.two", apiKey: "three.four", want: "one.two"},
		{name: "basic scheme falls back to api key", authz: "Basic Zm9vOmJhcg==", apiKey: "abc.def", want: "abc.def"},
		{name: "empty bearer", authz: "Bearer ", want: ""},
		{name: "nothing", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
			if tc.authz != "" {
				req.Header.Set("Authorization", tc.authz)
			}
			if tc.apiKey != "" {
				req.Header.Set(HeaderAPIKey, tc.apiKey)
			}
			if got := ExtractCredential(req); got != tc.want {
				t.Errorf("ExtractCredential() = %q, want %q", got, tc.want)
			}
		})
	}
}
