// Package service derives and persists insights for accepted events.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ingestgate/internal/insight/models"
	id "ingestgate/pkg/domain"
	dErrors "ingestgate/pkg/domain-errors"
	"ingestgate/pkg/platform/sentinel"
)

const defaultWriteTimeout = 2 * time.Second

var tracer = otel.Tracer("ingestgate/internal/insight")

// Store persists insights. Save returns sentinel.ErrConflict when the event
// already has one.
type Store interface {
	Save(ctx context.Context, insight *models.Insight) error
	FindByEventID(ctx context.Context, partnerID id.PartnerID, eventID id.EventID) (*models.Insight, error)
}

// Deriver turns an accepted event into a stored insight.
type Deriver struct {
	store        Store
	predictor    Predictor
	logger       *slog.Logger
	writeTimeout time.Duration
	now          func() time.Time
}

type Option func(*Deriver)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Deriver) { d.logger = logger }
}

func WithPredictor(p Predictor) Option {
	return func(d *Deriver) { d.predictor = p }
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(d *Deriver) {
		if timeout > 0 {
			d.writeTimeout = timeout
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Deriver) { d.now = now }
}

func New(store Store, opts ...Option) (*Deriver, error) {
	if store == nil {
		return nil, errors.New("insight store is required")
	}
	d := &Deriver{
		store:        store,
		predictor:    DefaultTable(),
		logger:       slog.Default(),
		writeTimeout: defaultWriteTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Derive predicts and stores the insight for one event. The write runs
// detached from ctx cancellation and bounded by the write timeout; any
// failure is CodeDerivation.
func (d *Deriver) Derive(ctx context.Context, partnerID id.PartnerID, eventID id.EventID, eventType string) (*models.Insight, error) {
	ctx, span := tracer.Start(ctx, "insight.Derive")
	defer span.End()
	span.SetAttributes(attribute.String("event.type", eventType), attribute.String("event.id", eventID.String()))

	prediction := d.predictor.Predict(eventType)
	insight := &models.Insight{
		ID:              id.NewInsightID(),
		EventID:         eventID,
		PartnerID:       partnerID,
		ModelName:       models.ModelName(eventType),
		Prediction:      prediction.Label,
		ConfidenceScore: clamp(prediction.Confidence),
		CreatedAt:       d.now().UTC(),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.writeTimeout)
	defer cancel()
	if err := d.store.Save(writeCtx, insight); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insight write failed")
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeDerivation, "insight already exists for event")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeDerivation, "failed to store insight")
	}
	return insight, nil
}

// Find returns the insight for eventID, or nil when there is none.
func (d *Deriver) Find(ctx context.Context, partnerID id.PartnerID, eventID id.EventID) (*models.Insight, error) {
	insight, err := d.store.FindByEventID(ctx, partnerID, eventID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find insight: %w", err)
	}
	return insight, nil
}

func clamp(c float64) float64 {
	return min(max(c, 0), 1)
}
