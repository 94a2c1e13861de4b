package request

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"ingestgate/pkg/requestcontext"
)

func TestMiddleware_PropagatesRequestIDAndTime(t *testing.T) {
	var gotID string
	var gotTime time.Time
	h := chimiddleware.RequestID(Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		gotTime = requestcontext.Now(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "partner-trace-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "partner-trace-1", gotID)
	assert.Equal(t, "partner-trace-1", rec.Header().Get(HeaderRequestID))
	assert.WithinDuration(t, time.Now(), gotTime, time.Second)
}
