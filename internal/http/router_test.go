package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"ingestgate/internal/gate"
	ingesthandler "ingestgate/internal/ingest/handler"
	ingestmodels "ingestgate/internal/ingest/models"
	ingestservice "ingestgate/internal/ingest/service"
	ingeststore "ingestgate/internal/ingest/store"
	insightservice "ingestgate/internal/insight/service"
	insightstore "ingestgate/internal/insight/store"
	partnermodels "ingestgate/internal/partner/models"
	"ingestgate/internal/partner/secrets"
	partnerservice "ingestgate/internal/partner/service"
	partnerstore "ingestgate/internal/partner/store"
	platformmetrics "ingestgate/internal/platform/metrics"
	"ingestgate/internal/ratelimit/admin"
	"ingestgate/internal/ratelimit/config"
	rlhandler "ingestgate/internal/ratelimit/handler"
	"ingestgate/internal/ratelimit/models"
	"ingestgate/internal/ratelimit/service/requestlimit"
	"ingestgate/internal/ratelimit/store/bucket"
	id "ingestgate/pkg/domain"
	"ingestgate/pkg/platform/audit"
	"ingestgate/pkg/platform/audit/store/memory"
	adminmw "ingestgate/pkg/platform/middleware/admin"
	"ingestgate/pkg/testutil"
)

const (
	adminToken = "op-token"
	partnerIP  = "203.0.113.40:40000"
	validBody  = `{"eventType":"user_engagement","payload":{"userId":"u-1","engagementType":"click","engagementAt":"2026-03-01T10:00:00Z"}}`
)

type RouterSuite struct {
	suite.Suite
	router  http.Handler
	sink    *memory.InMemoryStore
	apiKey  string
	dbError error
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.sink = memory.NewInMemoryStore()
	s.dbError = nil
	emitter := audit.EmitterFunc(func(ctx context.Context, e audit.SecurityEvent) {
		s.Require().NoError(s.sink.Write(ctx, []audit.SecurityEvent{e}))
	})

	partners := partnerstore.NewInMemory()
	partnerID := id.PartnerID(uuid.New())
	s.Require().NoError(partners.CreatePartner(ctx, &partnermodels.Partner{ID: partnerID, Name: "globex", Active: true}))
	hash, err := secrets.HashWithCost("router-secret", bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(partners.CreateCredential(ctx, &partnermodels.Credential{
		ID: id.CredentialID(uuid.New()), PartnerID: partnerID, KeyID: "pk_globex", SecretHash: hash,
	}))
	s.apiKey = partnermodels.FormatAPIKey("pk_globex", "router-secret")
	dummy, err := secrets.HashWithCost("dummy", bcrypt.MinCost)
	s.Require().NoError(err)
	resolver := partnerservice.New(partners, partnerservice.WithLogger(logger), partnerservice.WithDummyHash(dummy))

	limiter, err := requestlimit.New(bucket.NewInMemoryBucketStore(), requestlimit.WithConfig(&config.Config{
		Classes: map[models.EndpointClass]config.ClassLimits{
			models.ClassIngest: {
				IP:         config.Limit{RequestsPerWindow: 100, Window: time.Minute},
				Credential: config.Limit{RequestsPerWindow: 100, Window: time.Minute},
			},
			models.ClassRead: {
				IP:         config.Limit{RequestsPerWindow: 100, Window: time.Minute},
				Credential: config.Limit{RequestsPerWindow: 100, Window: time.Minute},
			},
			models.ClassAdmin: {
				IP:         config.Limit{RequestsPerWindow: 2, Window: time.Minute},
				Credential: config.Limit{RequestsPerWindow: 2, Window: time.Minute},
			},
		},
	}))
	s.Require().NoError(err)

	deriver, err := insightservice.New(insightstore.NewInMemory(), insightservice.WithLogger(logger))
	s.Require().NoError(err)
	ingest, err := ingestservice.New(ingeststore.NewInMemory(), deriver,
		ingestservice.WithLogger(logger), ingestservice.WithEmitter(emitter))
	s.Require().NoError(err)
	resets, err := admin.New(limiter, admin.WithLogger(logger), admin.WithAuditPublisher(emitter))
	s.Require().NoError(err)

	reg := prometheus.NewRegistry()
	s.router = NewRouter(Deps{
		Logger:      logger,
		Gate:        gate.New(resolver, limiter, gate.WithLogger(logger), gate.WithEmitter(emitter)),
		Ingest:      ingesthandler.New(ingest, logger),
		Admin:       rlhandler.New(resets, logger),
		AdminToken:  adminToken,
		Gatherer:    reg,
		HTTPMetrics: platformmetrics.NewHTTP(reg),
		Checks: map[string]Check{
			"postgres": func(context.Context) error { return s.dbError },
		},
	})
}

func (s *RouterSuite) kinds() []audit.Kind {
	events, err := s.sink.ListAll(context.Background())
	s.Require().NoError(err)
	out := make([]audit.Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func (s *RouterSuite) post(body, apiKey string) *httptest.ResponseRecorder {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/ingest", body)
	req.RemoteAddr = partnerIP
	if apiKey != "" {
		req.Header.Set(gate.HeaderAPIKey, apiKey)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *RouterSuite) TestIngestEndToEnd() {
	rec := s.post(validBody, s.apiKey)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	testutil.AssertSecurityHeaders(s.T(), rec)
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
	s.NotEmpty(rec.Header().Get(gate.HeaderLimit))

	resp := testutil.UnmarshalResponse[ingestmodels.IngestResponse](s.T(), rec)
	s.True(resp.Success)
	s.Require().NotNil(resp.InsightID)

	get := testutil.NewRequest(s.T(), http.MethodGet, "/ingest/events/"+resp.EventID)
	get.RemoteAddr = partnerIP
	get.Header.Set("Authorization", "Bearer "+s.apiKey)
	rec = testutil.DoRequest(s.router, get)
	s.Equal(http.StatusOK, rec.Code)
	s.Empty(s.kinds())
}

func (s *RouterSuite) TestReadBackMatchesSubmittedPayload() {
	for _, tc := range testutil.RoundTripCases() {
		s.Run(tc.EventType, func() {
			rec := s.post(tc.Body(), s.apiKey)
			s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
			created := testutil.UnmarshalResponse[ingestmodels.IngestResponse](s.T(), rec)

			get := testutil.NewRequest(s.T(), http.MethodGet, "/ingest/events/"+created.EventID)
			get.RemoteAddr = partnerIP
			get.Header.Set(gate.HeaderAPIKey, s.apiKey)
			rec = testutil.DoRequest(s.router, get)
			s.Require().Equal(http.StatusOK, rec.Code)

			readBack := testutil.UnmarshalResponse[struct {
				EventType string          `json:"eventType"`
				Payload   json.RawMessage `json:"payload"`
			}](s.T(), rec)
			s.Equal(tc.EventType, readBack.EventType)
			s.JSONEq(tc.Payload, string(readBack.Payload))
		})
	}
}

func (s *RouterSuite) TestRejectionsCarrySecurityHeadersAndOneEvent() {
	rec := s.post(validBody, "")
	testutil.AssertStatusAndError(s.T(), rec, http.StatusUnauthorized, "Missing API key")
	testutil.AssertSecurityHeaders(s.T(), rec)

	rec = s.post(`{"eventType":`, s.apiKey)
	testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "Invalid JSON")
	testutil.AssertSecurityHeaders(s.T(), rec)

	rec = s.post(`{"eventType":"user_engagement","payload":{}}`, s.apiKey)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(testutil.FieldErrors(s.T(), rec), "payload.userId")

	s.Equal([]audit.Kind{audit.KindMissingCredential, audit.KindInvalidJSON, audit.KindInvalidData}, s.kinds())
}

func (s *RouterSuite) TestCORSPreflight() {
	req := testutil.NewRequest(s.T(), http.MethodOptions, "/ingest")
	req.Header.Set("Origin", "https://partner.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-API-Key, Content-Type")
	rec := testutil.DoRequest(s.router, req)

	s.Less(rec.Code, 300)
	s.Equal("*", rec.Header().Get("Access-Control-Allow-Origin"))
	s.Empty(s.kinds(), "preflight is not an authentication attempt")
}

func (s *RouterSuite) TestHealth() {
	rec := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	s.Equal(http.StatusOK, rec.Code)
	testutil.AssertJSONContains(s.T(), rec, "status", "ok")

	s.dbError = errors.New("connection refused")
	rec = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	testutil.AssertJSONContains(s.T(), rec, "status", "degraded")
}

func (s *RouterSuite) TestMetricsEndpoint() {
	s.post(validBody, s.apiKey)
	rec := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `ingestgate_http_requests_total{method="POST",route="/ingest",status="201"} 1`)
}

func (s *RouterSuite) TestAdminRequiresTokenAndHasOwnBudget() {
	reset := func(token string) *httptest.ResponseRecorder {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/admin/rate-limit/reset",
			`{"type":"ip","identifier":"203.0.113.40"}`)
		req.RemoteAddr = "192.0.2.99:1000"
		if token != "" {
			req.Header.Set(adminmw.HeaderAdminToken, token)
		}
		return testutil.DoRequest(s.router, req)
	}

	s.Equal(http.StatusUnauthorized, reset("wrong").Code)
	s.Equal(http.StatusOK, reset(adminToken).Code)
	s.Equal(http.StatusTooManyRequests, reset(adminToken).Code)
	s.Equal([]audit.Kind{audit.KindRateLimitReset, audit.KindRateLimitExceeded}, s.kinds())
}

func (s *RouterSuite) TestUnknownRoute() {
	rec := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/nope"))
	s.Equal(http.StatusNotFound, rec.Code)
	testutil.AssertSecurityHeaders(s.T(), rec)
}
