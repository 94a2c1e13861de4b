package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ingestgate/internal/ingest/models"
	id "ingestgate/pkg/domain"
	dErrors "ingestgate/pkg/domain-errors"
	"ingestgate/pkg/platform/httputil"
	"ingestgate/pkg/requestcontext"
)

const defaultMaxBodyBytes = 1 << 20

// Service is the ingest pipeline as seen by the transport.
type Service interface {
	Ingest(ctx context.Context, partnerID id.PartnerID, body io.Reader) (*models.Result, error)
	Get(ctx context.Context, partnerID id.PartnerID, eventID string) (*models.EventResponse, error)
}

// Handler serves the partner-facing ingest endpoints. Both routes expect
// the gate to have attached a partner to the request context.
type Handler struct {
	svc          Service
	logger       *slog.Logger
	maxBodyBytes int64
}

type Option func(*Handler)

// WithMaxBodyBytes caps the request body; larger bodies are malformed input.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func New(svc Service, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{svc: svc, logger: logger, maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleIngest accepts one partner event: POST /ingest.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	partnerID, ok := partnerFrom(ctx, w)
	if !ok {
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	result, err := h.svc.Ingest(ctx, partnerID, body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result.ToResponse())
}

// HandleGetEvent reads back one of the caller's events:
// GET /ingest/events/{eventID}.
func (h *Handler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	partnerID, ok := partnerFrom(ctx, w)
	if !ok {
		return
	}

	resp, err := h.svc.Get(ctx, partnerID, chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func partnerFrom(ctx context.Context, w http.ResponseWriter) (id.PartnerID, bool) {
	partnerID := requestcontext.PartnerID(ctx)
	if partnerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "Missing API key"))
		return id.PartnerID{}, false
	}
	return partnerID, true
}
