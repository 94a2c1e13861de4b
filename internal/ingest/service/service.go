// Package service runs the ingest pipeline after the gate: validate,
// persist, derive.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ingestgate/internal/ingest/metrics"
	"ingestgate/internal/ingest/models"
	"ingestgate/internal/ingest/validation"
	insightmodels "ingestgate/internal/insight/models"
	id "ingestgate/pkg/domain"
	dErrors "ingestgate/pkg/domain-errors"
	"ingestgate/pkg/platform/audit"
	"ingestgate/pkg/platform/privacy"
	"ingestgate/pkg/platform/sentinel"
	"ingestgate/pkg/requestcontext"
)

const (
	defaultWriteTimeout = 3 * time.Second
	defaultReadTimeout  = 2 * time.Second

	stageValidate = "validate"
	stageStore    = "store"
	stageDerive   = "derive"
)

var tracer = otel.Tracer("ingestgate/internal/ingest")

// EventStore persists accepted events.
type EventStore interface {
	Save(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, partnerID id.PartnerID, eventID id.EventID) (*models.Event, error)
}

// InsightDeriver derives and reads back insights.
type InsightDeriver interface {
	Derive(ctx context.Context, partnerID id.PartnerID, eventID id.EventID, eventType string) (*insightmodels.Insight, error)
	Find(ctx context.Context, partnerID id.PartnerID, eventID id.EventID) (*insightmodels.Insight, error)
}

type Service struct {
	events       EventStore
	insights     InsightDeriver
	emitter      audit.Emitter
	logger       *slog.Logger
	metrics      *metrics.Metrics
	writeTimeout time.Duration
	readTimeout  time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithEmitter sets where SecurityEvents for rejected bodies go.
func WithEmitter(e audit.Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

func New(events EventStore, insights InsightDeriver, opts ...Option) (*Service, error) {
	if events == nil {
		return nil, errors.New("event store is required")
	}
	if insights == nil {
		return nil, errors.New("insight deriver is required")
	}
	s := &Service{
		events:       events,
		insights:     insights,
		emitter:      audit.Discard,
		logger:       slog.Default(),
		writeTimeout: defaultWriteTimeout,
		readTimeout:  defaultReadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ingest reads and validates body, stores it as an event owned by partnerID and
// derives its insight. A failed event write is CodeStorage and stops the
// pipeline. A failed insight write is logged and reported as a nil
// InsightID: the event stays stored.
func (s *Service) Ingest(ctx context.Context, partnerID id.PartnerID, body io.Reader) (*models.Result, error) {
	ctx, span := tracer.Start(ctx, "ingest.Ingest", trace.WithAttributes(
		attribute.String("partner.id", partnerID.String()),
	))
	defer span.End()

	start := time.Now()
	payload, err := s.parse(body)
	s.metrics.ObserveStage(stageValidate, start)
	if err != nil {
		s.reject(ctx, partnerID, err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}

	event := &models.Event{
		ID:        id.NewEventID(),
		PartnerID: partnerID,
		EventType: payload.EventType(),
		Payload:   payload,
		CreatedAt: requestcontext.Now(ctx).UTC(),
	}
	span.SetAttributes(
		attribute.String("event.type", string(event.EventType)),
		attribute.String("event.id", event.ID.String()),
	)

	if err := s.store(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "event write failed")
		s.metrics.IncrementRejected(string(dErrors.CodeStorage))
		s.logger.ErrorContext(ctx, "failed to store event",
			"request_id", requestcontext.RequestID(ctx),
			"partner_id", partnerID.String(),
			"event_type", string(event.EventType),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "Failed to store event")
	}
	s.metrics.IncrementAccepted(string(event.EventType))

	result := &models.Result{Event: event}
	start = time.Now()
	insight, err := s.insights.Derive(ctx, partnerID, event.ID, string(event.EventType))
	s.metrics.ObserveStage(stageDerive, start)
	if err != nil {
		s.metrics.IncrementPartialSuccess()
		s.logger.WarnContext(ctx, "insight derivation failed, event kept",
			"request_id", requestcontext.RequestID(ctx),
			"partner_id", partnerID.String(),
			"event_id", event.ID.String(),
			"error", err,
		)
		return result, nil
	}
	insightID := insight.ID.String()
	result.InsightID = &insightID
	return result, nil
}

func (s *Service) parse(body io.Reader) (models.Payload, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, dErrors.Wrap(err, dErrors.CodeMalformedInput, "Request body too large")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedInput, "Invalid JSON")
	}
	return validation.Parse(raw)
}

func (s *Service) store(ctx context.Context, event *models.Event) error {
	defer s.metrics.ObserveStage(stageStore, time.Now())
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()
	return s.events.Save(writeCtx, event)
}

// Get returns an event and its insight, if any. Events owned by other
// partners and malformed ids are both CodeNotFound.
func (s *Service) Get(ctx context.Context, partnerID id.PartnerID, rawEventID string) (*models.EventResponse, error) {
	ctx, span := tracer.Start(ctx, "ingest.Get")
	defer span.End()

	eventID, err := id.ParseEventID(rawEventID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "Event not found")
	}

	readCtx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()
	event, err := s.events.FindByID(readCtx, partnerID, eventID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "Event not found")
	}
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "failed to read event", "event_id", eventID.String(), "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "Failed to read event")
	}

	resp := &models.EventResponse{
		ID:        event.ID.String(),
		PartnerID: event.PartnerID.String(),
		EventType: event.EventType,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
	}
	insight, err := s.insights.Find(readCtx, partnerID, eventID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read insight", "event_id", eventID.String(), "error", err)
	}
	if insight != nil {
		resp.Insight = &models.InsightResponse{
			ID:              insight.ID.String(),
			ModelName:       insight.ModelName,
			Prediction:      insight.Prediction,
			ConfidenceScore: insight.ConfidenceScore,
			CreatedAt:       insight.CreatedAt,
		}
	}
	return resp, nil
}

// reject records exactly one SecurityEvent for a body the validator refused.
func (s *Service) reject(ctx context.Context, partnerID id.PartnerID, err error) {
	code := dErrors.CodeOf(err)
	s.metrics.IncrementRejected(string(code))

	kind := audit.KindInvalidData
	if code == dErrors.CodeMalformedInput {
		kind = audit.KindInvalidJSON
	}
	ip := requestcontext.ClientIP(ctx)
	s.logger.InfoContext(ctx, string(kind),
		"event", string(kind),
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"partner_id", partnerID.String(),
		"ip_prefix", privacy.AnonymizeIP(ip),
	)
	s.emitter.Emit(ctx, audit.SecurityEvent{
		Kind:      kind,
		PartnerID: partnerID.String(),
		IP:        ip,
		UserAgent: requestcontext.UserAgent(ctx),
		Detail:    detail(err),
	})
}

// detail summarizes a validation failure as "field: message; ...".
func detail(err error) string {
	de, ok := dErrors.From(err)
	if !ok {
		return err.Error()
	}
	if len(de.Fields) == 0 && len(de.FormErrors) == 0 {
		return de.Message
	}
	out := ""
	for _, msg := range de.FormErrors {
		out = appendDetail(out, msg)
	}
	for _, field := range slices.Sorted(maps.Keys(de.Fields)) {
		for _, msg := range de.Fields[field] {
			out = appendDetail(out, field+": "+msg)
		}
	}
	return out
}

func appendDetail(out, part string) string {
	if out == "" {
		return part
	}
	return out + "; " + part
}
