package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"ingestgate/internal/ratelimit/models"
	dErrors "ingestgate/pkg/domain-errors"
	"ingestgate/pkg/platform/httputil"
	request "ingestgate/pkg/platform/middleware/request"
)

// Service is the admin surface the handler needs.
type Service interface {
	ResetRateLimit(ctx context.Context, req *models.ResetRateLimitRequest) (*models.ResetRateLimitResponse, error)
}

// Handler serves the rate limit admin endpoints. Callers mount it behind the
// admin token middleware.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterAdmin mounts the admin routes on r.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/rate-limit/reset", h.HandleReset)
}

// HandleReset clears an IP or partner counter: POST /admin/rate-limit/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var req models.ResetRateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid rate limit reset request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeMalformedInput, "Invalid JSON"))
		return
	}

	resp, err := h.svc.ResetRateLimit(ctx, &req)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "rate limit reset failed", "request_id", requestID, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
