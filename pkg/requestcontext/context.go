// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing
// net/http. Tests inject them directly:
//
//	ctx = requestcontext.WithPartnerID(ctx, partnerID)
//	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", "curl/8.0")
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "ingestgate/pkg/domain"
)

type (
	partnerIDKey    struct{}
	credentialIDKey struct{}
	clientIPKey     struct{}
	userAgentKey    struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
)

// -----------------------------------------------------------------------------
// Gate identity
// -----------------------------------------------------------------------------

// PartnerID returns the partner resolved by the gate, or the nil ID.
func PartnerID(ctx context.Context) id.PartnerID {
	if partnerID, ok := ctx.Value(partnerIDKey{}).(id.PartnerID); ok {
		return partnerID
	}
	return id.PartnerID{}
}

func WithPartnerID(ctx context.Context, partnerID id.PartnerID) context.Context {
	return context.WithValue(ctx, partnerIDKey{}, partnerID)
}

// CredentialID returns the credential that authenticated the request.
func CredentialID(ctx context.Context) id.CredentialID {
	if credentialID, ok := ctx.Value(credentialIDKey{}).(id.CredentialID); ok {
		return credentialID
	}
	return id.CredentialID{}
}

func WithCredentialID(ctx context.Context, credentialID id.CredentialID) context.Context {
	return context.WithValue(ctx, credentialIDKey{}, credentialID)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent)
// -----------------------------------------------------------------------------

func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	return ctx
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, falling back to time.Now() outside
// of HTTP handling (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
