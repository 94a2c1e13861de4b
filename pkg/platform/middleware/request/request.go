// Package request stamps each HTTP request with a correlation id and a
// request-scoped clock reading.
package request

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"ingestgate/pkg/requestcontext"
)

// HeaderRequestID is echoed on every response.
const HeaderRequestID = "X-Request-ID"

// Middleware must run after chi's middleware.RequestID. It copies the id into
// requestcontext, echoes it, and captures "now" once so every stage of the
// pipeline stamps records with the same instant.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := chimiddleware.GetReqID(ctx)
		if reqID != "" {
			w.Header().Set(HeaderRequestID, reqID)
		}
		ctx = requestcontext.WithRequestID(ctx, reqID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the correlation id for ctx.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
